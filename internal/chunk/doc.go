// Package chunk splits long input into pieces small enough for a single
// VOICEPEAK request, cutting at sentence endings first and at commas or
// spaces when a sentence alone is too long.
package chunk
