// Package audio plays synthesized WAV files and manages the temporary
// artifacts they live in. Playback goes through an external command such
// as mpv, or in-process through oto/v3 when vp is built with cgo.
package audio
