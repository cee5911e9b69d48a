package cache

import (
	"errors"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when cache data cannot be decoded
	ErrCacheCorrupted = errors.New("cache data corrupted")
)

// Stats holds cache counters.
type Stats struct {
	Capacity  int64 // Maximum size on disk in bytes
	Size      int64 // Current size on disk in bytes
	ItemCount int64

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64 // hits / (hits + misses)

	LastAccess time.Time
}

// Config holds configuration for a disk cache.
type Config struct {
	Dir              string
	Capacity         int64         // Bytes
	TTL              time.Duration // Entries older than this are pruned on open
	CompressionLevel int           // Zstd level (1-22); 0 disables compression
}

// DefaultConfig returns the default cache configuration rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:              dir,
		Capacity:         512 * 1024 * 1024, // 512MB
		TTL:              30 * 24 * time.Hour,
		CompressionLevel: 3,
	}
}
