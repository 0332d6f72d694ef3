package provider

import (
	"time"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// MaxRetryAfter caps how long a Retry-After header may stall one identifier
	MaxRetryAfter = 30 * time.Second
)

// Paths are JMESPath expressions locating fields in a provider page
type Paths struct {
	Items     string // Array of messages within a page; prefer not_null over || so empty arrays survive
	Cursor    string // Next page cursor; empty or null ends pagination
	Text      string
	Timestamp string
	Phone     string
	Direction string
	HasMedia  string
}

// DefaultPaths accepts the common provider encodings
func DefaultPaths() Paths {
	return Paths{
		Items:     "not_null(messages, data, items)",
		Cursor:    "next_cursor || paging.next || meta.next_cursor",
		Text:      "text || body",
		Timestamp: "timestamp || created_at || sent_at",
		Phone:     "phone_number || phone || to",
		Direction: "direction || role",
		HasMedia:  "has_media",
	}
}

// Config holds provider client configuration
type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	PageSize       int
	MaxPages       int           // Upper bound on pages per identifier (0 means unbounded)
	MaxRetries     int           // Retries per page after the first attempt
	RetryBaseDelay time.Duration // Unit of the fibonacci backoff
	Concurrency    int           // Identifiers fetched at once
	CacheTTL       time.Duration // Zero disables caching
	Paths          Paths
}

// DefaultConfig returns default provider client configuration
func DefaultConfig() Config {
	return Config{
		Timeout:        DefaultTimeout,
		PageSize:       100,
		MaxPages:       50,
		MaxRetries:     3,
		RetryBaseDelay: 500 * time.Millisecond,
		Concurrency:    4,
		CacheTTL:       5 * time.Minute,
		Paths:          DefaultPaths(),
	}
}
