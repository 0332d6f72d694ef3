package provider

import (
	"context"
	"sync"
	"time"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/metrics"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/models"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/normalizers"
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/tracing"
)

// IdentifierResult is the outcome of fetching one phone number
type IdentifierResult struct {
	Records []models.ExternalMessageRecord
	Success bool
}

// FetchError records why one phone number could not be fetched
type FetchError struct {
	PhoneNumber string `json:"phone_number"`
	Error       string `json:"error"`
}

// FetchResult holds every identifier's records plus the failures
type FetchResult struct {
	Identifiers []string
	Results     map[string]IdentifierResult
	Errors      []FetchError
}

// Pool concatenates successful records in identifier order
func (r *FetchResult) Pool() []models.ExternalMessageRecord {
	pool := make([]models.ExternalMessageRecord, 0)
	if r == nil {
		return pool
	}
	for _, id := range r.Identifiers {
		pool = append(pool, r.Results[id].Records...)
	}
	return pool
}

// Fetch retrieves records for every phone number. A failed phone number
// contributes an error entry and an empty record list; it never fails the call.
func (c *Client) Fetch(ctx context.Context, identifiers []string, start, end time.Time) *FetchResult {
	ctx, span := tracing.StartSpan(ctx, "provider.Client.Fetch")
	defer span.End()

	ids := UniqueIdentifiers(identifiers)
	result := &FetchResult{
		Identifiers: ids,
		Results:     make(map[string]IdentifierResult, len(ids)),
		Errors:      make([]FetchError, 0),
	}
	if len(ids) == 0 {
		return result
	}

	type outcome struct {
		records []models.ExternalMessageRecord
		err     error
	}
	outcomes := make([]outcome, len(ids))

	concurrency := min(c.config.Concurrency, len(ids))
	indexChan := make(chan int)
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexChan {
				records, err := c.FetchIdentifier(ctx, ids[idx], start, end)
				outcomes[idx] = outcome{records: records, err: err}
			}
		}()
	}

	for i := range ids {
		indexChan <- i
	}
	close(indexChan)
	wg.Wait()

	for i, id := range ids {
		o := outcomes[i]
		if o.err != nil {
			metrics.ProviderFetchesTotal.WithLabelValues(metrics.StatusFailure).Inc()
			c.logger.WithContext(ctx).WithError(o.err).WithField("phone_number", id).Warn("Provider fetch failed")
			result.Results[id] = IdentifierResult{Records: []models.ExternalMessageRecord{}, Success: false}
			result.Errors = append(result.Errors, FetchError{PhoneNumber: id, Error: o.err.Error()})
			continue
		}
		metrics.ProviderFetchesTotal.WithLabelValues(metrics.StatusSuccess).Inc()
		result.Results[id] = IdentifierResult{Records: o.records, Success: true}
	}

	return result
}

// UniqueIdentifiers trims identifiers and drops blanks and repeats, keeping first-seen order
func UniqueIdentifiers(identifiers []string) []string {
	seen := make(map[string]struct{}, len(identifiers))
	out := make([]string, 0, len(identifiers))
	for _, id := range identifiers {
		id = normalizers.Trim(id)
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
