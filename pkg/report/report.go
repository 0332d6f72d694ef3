// Package report shapes a reconciliation result into the delivery report
package report

import (
	"sort"
	"time"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/models"
)

// DateLayout is the key format for the by-date grouping
const DateLayout = "2006-01-02"

// Params controls what Build emits
type Params struct {
	IncludeDetails     bool
	WindowStart        time.Time
	WindowEnd          time.Time
	SubjectIdentifiers []string
}

// FirstContactSummary is the first contact sub-metric
type FirstContactSummary struct {
	Total         int    `json:"total" yaml:"total"`
	Matched       int    `json:"matched" yaml:"matched"`
	Unmatched     int    `json:"unmatched" yaml:"unmatched"`
	UnmatchedRate string `json:"unmatched_rate" yaml:"unmatched_rate"`
}

// Summary is always present in a report
type Summary struct {
	WindowStart                 time.Time           `json:"window_start" yaml:"window_start"`
	WindowEnd                   time.Time           `json:"window_end" yaml:"window_end"`
	PhoneNumberCount            int                 `json:"phone_number_count" yaml:"phone_number_count"`
	PhoneNumbers                []string            `json:"phone_numbers" yaml:"phone_numbers"`
	TotalInternal               int                 `json:"total_internal" yaml:"total_internal"`
	TotalExternal               int                 `json:"total_external" yaml:"total_external"`
	Matched                     int                 `json:"matched" yaml:"matched"`
	Unmatched                   int                 `json:"unmatched" yaml:"unmatched"`
	MatchRate                   string              `json:"match_rate" yaml:"match_rate"`
	AverageConfidence           float64             `json:"average_confidence" yaml:"average_confidence"`
	AverageConfidencePercentage string              `json:"average_confidence_percentage" yaml:"average_confidence_percentage"`
	FirstContact                FirstContactSummary `json:"first_contact" yaml:"first_contact"`
}

// Group is one key of an unmatched breakdown
type Group struct {
	Count    int                   `json:"count" yaml:"count"`
	Outcomes []models.MatchOutcome `json:"outcomes" yaml:"outcomes"`
}

// Details is emitted only when requested
type Details struct {
	Matched          []models.MatchOutcome `json:"matched" yaml:"matched"`
	Unmatched        []models.MatchOutcome `json:"unmatched" yaml:"unmatched"`
	UnmatchedByType  map[string]*Group     `json:"unmatched_by_type" yaml:"unmatched_by_type"`
	UnmatchedByPhone map[string]*Group     `json:"unmatched_by_phone_number" yaml:"unmatched_by_phone_number"`
	UnmatchedByDate  map[string]*Group     `json:"unmatched_by_date" yaml:"unmatched_by_date"`
}

// FetchError records a provider fetch that failed for one phone number
type FetchError struct {
	PhoneNumber string `json:"phone_number" yaml:"phone_number"`
	Error       string `json:"error" yaml:"error"`
}

// Report is the output of a reconciliation request
type Report struct {
	RunID       string       `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Summary     Summary      `json:"summary" yaml:"summary"`
	Details     *Details     `json:"details,omitempty" yaml:"details,omitempty"`
	FetchErrors []FetchError `json:"fetch_errors,omitempty" yaml:"fetch_errors,omitempty"`
}

// Build converts a reconciliation result into a report
func Build(result *models.ReconciliationResult, params Params) *Report {
	if result == nil {
		result = &models.ReconciliationResult{}
	}
	stats := result.Statistics

	identifiers := params.SubjectIdentifiers
	if identifiers == nil {
		identifiers = []string{}
	}

	r := &Report{
		Summary: Summary{
			WindowStart:                 params.WindowStart,
			WindowEnd:                   params.WindowEnd,
			PhoneNumberCount:            len(identifiers),
			PhoneNumbers:                identifiers,
			TotalInternal:               stats.TotalInternal,
			TotalExternal:               stats.TotalExternal,
			Matched:                     stats.Matched,
			Unmatched:                   stats.Unmatched,
			MatchRate:                   models.FormatRate(stats.Matched, stats.TotalInternal),
			AverageConfidence:           stats.AverageConfidence,
			AverageConfidencePercentage: models.FormatPercentage(stats.AverageConfidence),
			FirstContact: FirstContactSummary{
				Total:         stats.FirstContact.Total,
				Matched:       stats.FirstContact.Matched,
				Unmatched:     stats.FirstContact.Unmatched,
				UnmatchedRate: models.FormatRate(stats.FirstContact.Unmatched, stats.FirstContact.Total),
			},
		},
	}

	if !params.IncludeDetails {
		return r
	}

	r.Details = &Details{
		Matched:   nonNil(result.Matched),
		Unmatched: nonNil(result.Unmatched),
		UnmatchedByType: GroupBy(result.Unmatched, func(o models.MatchOutcome) string {
			return o.Internal.MessageType
		}),
		UnmatchedByPhone: GroupBy(result.Unmatched, func(o models.MatchOutcome) string {
			return o.Internal.PhoneNumber
		}),
		UnmatchedByDate: GroupBy(result.Unmatched, func(o models.MatchOutcome) string {
			return o.Internal.SentAt.UTC().Format(DateLayout)
		}),
	}
	return r
}

// GroupBy buckets outcomes by key, preserving input order within each bucket
func GroupBy(outcomes []models.MatchOutcome, key func(models.MatchOutcome) string) map[string]*Group {
	groups := make(map[string]*Group)
	for _, o := range outcomes {
		k := key(o)
		g, ok := groups[k]
		if !ok {
			g = &Group{Outcomes: make([]models.MatchOutcome, 0)}
			groups[k] = g
		}
		g.Outcomes = append(g.Outcomes, o)
		g.Count++
	}
	return groups
}

// SortedKeys returns the keys of a grouping in ascending order
func SortedKeys(groups map[string]*Group) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func nonNil(outcomes []models.MatchOutcome) []models.MatchOutcome {
	if outcomes == nil {
		return []models.MatchOutcome{}
	}
	return outcomes
}
