// Package matching assigns internal message records to provider records by
// approximate text and temporal plausibility.
//
// Assignment is greedy: internal records are processed in input order and each
// takes its best remaining candidate. This approximates an optimal bipartite
// assignment but is order dependent.
package matching

import (
	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/models"
)

// Consumption tracks which pool positions have been taken by a matched outcome
type Consumption interface {
	IsConsumed(index int) bool
	Consume(index int)
}

// ConsumptionSet is a Consumption backed by a bitmap over pool positions.
// It is not safe for concurrent use.
type ConsumptionSet struct {
	taken []bool
}

// NewConsumptionSet creates an empty set for a pool of the given size
func NewConsumptionSet(poolSize int) *ConsumptionSet {
	return &ConsumptionSet{taken: make([]bool, poolSize)}
}

// IsConsumed reports whether the pool position has been matched
func (c *ConsumptionSet) IsConsumed(index int) bool {
	return index < len(c.taken) && c.taken[index]
}

// Consume marks the pool position as matched; out of range positions are ignored
func (c *ConsumptionSet) Consume(index int) {
	if index < len(c.taken) {
		c.taken[index] = true
	}
}

// Count returns how many pool positions are consumed
func (c *ConsumptionSet) Count() int {
	n := 0
	for _, t := range c.taken {
		if t {
			n++
		}
	}
	return n
}

// Pool is an external record pool with precomputed text profiles
type Pool struct {
	Records  []models.ExternalMessageRecord
	profiles []Profile
}

// BatchResult is the output of matching one batch
type BatchResult struct {
	Matched    []models.MatchOutcome
	Unmatched  []models.MatchOutcome
	Statistics models.ReconciliationStatistics
}

// Matcher pairs internal records with external records
type Matcher struct {
	scorer *Scorer
}

// NewMatcher creates a new matcher
func NewMatcher(scorer *Scorer) *Matcher {
	if scorer == nil {
		scorer = NewScorer()
	}
	return &Matcher{scorer: scorer}
}

// NewPool profiles every external record once
func (m *Matcher) NewPool(records []models.ExternalMessageRecord) *Pool {
	profiles := make([]Profile, len(records))
	for i, r := range records {
		profiles[i] = m.scorer.NewProfile(r.Text)
	}
	return &Pool{Records: records, profiles: profiles}
}

// Match assigns each internal record in batch to at most one external record.
// A nil consumption starts a fresh set scoped to this call. An empty batch
// returns no outcomes and zeroed statistics.
func (m *Matcher) Match(batch []models.InternalMessageRecord, pool *Pool, threshold float64, consumed Consumption) BatchResult {
	result := BatchResult{
		Matched:   make([]models.MatchOutcome, 0),
		Unmatched: make([]models.MatchOutcome, 0),
	}
	// An empty batch reports zeroed statistics, TotalExternal included
	if len(batch) == 0 {
		return result
	}
	if pool == nil {
		pool = &Pool{}
	}
	if consumed == nil {
		consumed = NewConsumptionSet(len(pool.Records))
	}

	result.Statistics.TotalExternal = len(pool.Records)

	for _, internal := range batch {
		bestIndex := -1
		bestScore := 0.0

		if internal.Text != "" {
			profile := m.scorer.NewProfile(internal.Text)
			for i, external := range pool.Records {
				if consumed.IsConsumed(i) {
					continue
				}
				// The provider can only confirm a message after we recorded it
				if external.Timestamp.Before(internal.SentAt) {
					continue
				}
				if external.Text == "" {
					continue
				}
				score := m.scorer.CompareProfiles(profile, pool.profiles[i])
				if score > bestScore {
					bestScore = score
					bestIndex = i
				}
			}
		}

		result.Statistics.TotalInternal++
		if internal.IsFirstContact() {
			result.Statistics.FirstContact.Total++
		}

		if bestIndex >= 0 && bestScore >= threshold {
			consumed.Consume(bestIndex)
			result.Matched = append(result.Matched, models.NewMatched(internal, pool.Records[bestIndex], bestIndex, bestScore))
			result.Statistics.Matched++
			if internal.IsFirstContact() {
				result.Statistics.FirstContact.Matched++
			}
			continue
		}

		result.Unmatched = append(result.Unmatched, models.NewUnmatched(internal, bestScore))
		result.Statistics.Unmatched++
		if internal.IsFirstContact() {
			result.Statistics.FirstContact.Unmatched++
		}
	}

	result.Statistics.AverageConfidence = models.AverageConfidence(result.Matched)

	return result
}
