// Package engine drives the VOICEPEAK command-line binary. Each request runs
// under a system-wide lock, every attempt is bounded by a timeout that kills
// the process, and failed attempts are retried after a fixed pause.
package engine
