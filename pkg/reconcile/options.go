package reconcile

import (
	"errors"
	"fmt"
)

// ErrInvalidOptions is returned when reconciliation options are misconfigured
var ErrInvalidOptions = errors.New("invalid reconciliation options")

// Scope controls how long an external record stays consumed once matched
type Scope string

const (
	// ScopeBatch gives every batch its own consumption set. Batches run
	// concurrently and one external record may be matched once per batch.
	ScopeBatch Scope = "batch"
	// ScopeGlobal threads one consumption set through every batch in order,
	// so an external record is matched at most once per run.
	ScopeGlobal Scope = "global"
)

const (
	DefaultBatchSize = 100
	DefaultThreshold = 0.8
	DefaultWorkers   = 4
)

// Options configures a reconciliation run
type Options struct {
	BatchSize int     // Internal records per batch (default: 100)
	Threshold float64 // Minimum similarity to accept a match, in (0,1] (default: 0.8)
	Workers   int     // Concurrent batches under ScopeBatch (default: 4)
	Scope     Scope   // Consumption scope (default: batch)
}

// DefaultOptions returns default reconciliation options
func DefaultOptions() Options {
	return Options{
		BatchSize: DefaultBatchSize,
		Threshold: DefaultThreshold,
		Workers:   DefaultWorkers,
		Scope:     ScopeBatch,
	}
}

// Validate rejects options that would make the run meaningless.
// Values are never defaulted here.
func (o Options) Validate() error {
	// Written as a positive range check so NaN is rejected
	if !(o.Threshold > 0 && o.Threshold <= 1) {
		return fmt.Errorf("%w: threshold must be in (0,1], got %v", ErrInvalidOptions, o.Threshold)
	}
	if o.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be at least 1, got %d", ErrInvalidOptions, o.BatchSize)
	}
	if o.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidOptions, o.Workers)
	}
	switch o.Scope {
	case ScopeBatch, ScopeGlobal:
	default:
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidOptions, o.Scope)
	}
	return nil
}

// ParseScope converts a configuration string into a Scope
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeBatch, ScopeGlobal:
		return Scope(s), nil
	}
	return "", fmt.Errorf("%w: unknown scope %q", ErrInvalidOptions, s)
}
