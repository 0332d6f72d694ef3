// Package cache stores provider responses keyed by phone number and window.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a byte store with per-entry expiry
type Cache interface {
	// Fetch returns the cached value and whether it was found
	Fetch(ctx context.Context, key string) ([]byte, bool, error)
	Store(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Name() string
}

// Key builds the cache key for one phone number over a time window
func Key(phoneNumber string, start, end time.Time) string {
	return fmt.Sprintf("provider:%s:%d:%d", phoneNumber, start.UTC().Unix(), end.UTC().Unix())
}

// Noop never stores anything
type Noop struct{}

func (Noop) Fetch(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Noop) Store(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Ping(context.Context) error                                 { return nil }
func (Noop) Name() string                                               { return "noop" }
