// Package cache keeps synthesized audio on disk, zstd-compressed, so that
// speaking the same text with the same voice again skips the engine.
package cache
