// Package limiter windows the rows rowpick prints with --limit, --offset and --tail.
package limiter

import (
	"errors"
	"fmt"
)

// ErrConflict is returned when --limit and --tail are combined.
var ErrConflict = errors.New("--limit and --tail are mutually exclusive")

// Config holds the windowing parameters. Zero values disable each one.
type Config struct {
	Limit  int // keep at most this many rows
	Offset int // skip this many rows first; ignored with Tail
	Tail   int // keep only the last N rows
}

// Validate rejects negative values and Limit combined with Tail.
func (c Config) Validate() error {
	if c.Limit < 0 {
		return fmt.Errorf("--limit must be non-negative, got %d", c.Limit)
	}
	if c.Offset < 0 {
		return fmt.Errorf("--offset must be non-negative, got %d", c.Offset)
	}
	if c.Tail < 0 {
		return fmt.Errorf("--tail must be non-negative, got %d", c.Tail)
	}
	if c.Limit > 0 && c.Tail > 0 {
		return ErrConflict
	}
	return nil
}

// IsActive reports whether any windowing is configured.
func (c Config) IsActive() bool {
	return c.Limit > 0 || c.Offset > 0 || c.Tail > 0
}

// Bounds returns the half-open window [start, end) over n items.
func (c Config) Bounds(n int) (start, end int) {
	if c.Tail > 0 {
		return max(n-c.Tail, 0), n
	}
	start = min(c.Offset, n)
	end = n
	if c.Limit > 0 {
		end = min(start+c.Limit, n)
	}
	return start, end
}

// Apply returns the configured window of items. The result shares the
// backing array of items.
func Apply[T any](c Config, items []T) []T {
	if !c.IsActive() {
		return items
	}
	start, end := c.Bounds(len(items))
	return items[start:end]
}
