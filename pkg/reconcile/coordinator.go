// Package reconcile splits internal records into batches, matches each batch
// against the full external pool and merges the results.
package reconcile

import (
	"context"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/matching"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/models"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/tracing"
)

// Coordinator runs the matcher over batches of internal records
type Coordinator struct {
	matcher *matching.Matcher
	logger  ectologger.Logger
}

// NewCoordinator creates a new batch coordinator
func NewCoordinator(matcher *matching.Matcher, logger ectologger.Logger) *Coordinator {
	if matcher == nil {
		matcher = matching.NewMatcher(nil)
	}
	return &Coordinator{
		matcher: matcher,
		logger:  logger,
	}
}

// Reconcile matches every internal record against the external pool.
// Options are validated before any matching work starts.
func (c *Coordinator) Reconcile(ctx context.Context, internal []models.InternalMessageRecord, external []models.ExternalMessageRecord, opts Options) (*models.ReconciliationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "reconcile.Coordinator.Reconcile")
	defer span.End()

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	batches := Split(internal, opts.BatchSize)
	pool := c.matcher.NewPool(external)

	fields := map[string]any{
		"internal_count": len(internal),
		"external_count": len(external),
		"batch_count":    len(batches),
		"batch_size":     opts.BatchSize,
		"threshold":      opts.Threshold,
		"scope":          string(opts.Scope),
	}
	tracing.SetAttributes(ctx, fields)
	log := c.logger.WithContext(ctx).WithFields(fields)
	log.Debug("Starting reconciliation")

	var (
		results []matching.BatchResult
		err     error
	)
	switch opts.Scope {
	case ScopeGlobal:
		results, err = c.runSequential(ctx, batches, pool, opts.Threshold)
	default:
		results, err = c.runConcurrent(ctx, batches, pool, opts)
	}
	if err != nil {
		return nil, err
	}

	merged := Merge(results, len(external))

	log.WithFields(map[string]any{
		"matched":            merged.Statistics.Matched,
		"unmatched":          merged.Statistics.Unmatched,
		"average_confidence": merged.Statistics.AverageConfidence,
	}).Info("Reconciliation complete")

	return merged, nil
}

// runSequential threads one consumption set through every batch in order
func (c *Coordinator) runSequential(ctx context.Context, batches [][]models.InternalMessageRecord, pool *matching.Pool, threshold float64) ([]matching.BatchResult, error) {
	consumed := matching.NewConsumptionSet(len(pool.Records))
	results := make([]matching.BatchResult, len(batches))
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results[i] = c.matcher.Match(batch, pool, threshold, consumed)
	}
	return results, nil
}

type indexedBatch struct {
	index int
	batch []models.InternalMessageRecord
}

// runConcurrent matches batches on a bounded worker pool. Each batch gets its
// own consumption set so batches share no mutable state.
func (c *Coordinator) runConcurrent(ctx context.Context, batches [][]models.InternalMessageRecord, pool *matching.Pool, opts Options) ([]matching.BatchResult, error) {
	results := make([]matching.BatchResult, len(batches))
	if len(batches) == 0 {
		return results, nil
	}

	concurrency := min(opts.Workers, len(batches))

	workerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	batchChan := make(chan indexedBatch)
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range batchChan {
				results[item.index] = c.matcher.Match(item.batch, pool, opts.Threshold, nil)
			}
		}()
	}

	go func() {
		defer close(batchChan)
		for i, batch := range batches {
			select {
			case <-workerCtx.Done():
				return
			case batchChan <- indexedBatch{index: i, batch: batch}:
			}
		}
	}()

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Split partitions records into contiguous batches of size; the last batch may be shorter
func Split(records []models.InternalMessageRecord, size int) [][]models.InternalMessageRecord {
	if size < 1 || len(records) == 0 {
		return nil
	}
	batches := make([][]models.InternalMessageRecord, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batches = append(batches, records[start:end])
	}
	return batches
}

// Merge concatenates batch results in order and sums their counts. The
// average confidence is recomputed over every matched outcome.
func Merge(results []matching.BatchResult, totalExternal int) *models.ReconciliationResult {
	merged := &models.ReconciliationResult{
		Matched:   make([]models.MatchOutcome, 0),
		Unmatched: make([]models.MatchOutcome, 0),
	}

	for _, r := range results {
		merged.Matched = append(merged.Matched, r.Matched...)
		merged.Unmatched = append(merged.Unmatched, r.Unmatched...)

		stats := &merged.Statistics
		stats.TotalInternal += r.Statistics.TotalInternal
		stats.Matched += r.Statistics.Matched
		stats.Unmatched += r.Statistics.Unmatched
		stats.FirstContact.Total += r.Statistics.FirstContact.Total
		stats.FirstContact.Matched += r.Statistics.FirstContact.Matched
		stats.FirstContact.Unmatched += r.Statistics.FirstContact.Unmatched
	}

	merged.Statistics.TotalExternal = totalExternal
	merged.Statistics.AverageConfidence = models.AverageConfidence(merged.Matched)
	return merged
}
