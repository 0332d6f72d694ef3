package models

import "github.com/shopspring/decimal"

// OutcomeStatus is the variant of a match outcome
type OutcomeStatus string

const (
	OutcomeStatusMatched   OutcomeStatus = "matched"
	OutcomeStatusUnmatched OutcomeStatus = "unmatched"
)

// UnmatchedReason explains why an internal record found no match
type UnmatchedReason string

const (
	UnmatchedReasonBelowThreshold UnmatchedReason = "below_threshold" // best candidate scored under the threshold
	UnmatchedReasonNoCandidate    UnmatchedReason = "no_candidate"    // no temporally eligible candidate scored above zero
)

// MatchOutcome is the classification of one internal record
type MatchOutcome struct {
	Status               OutcomeStatus          `json:"status" yaml:"status"`
	Internal             InternalMessageRecord  `json:"internal" yaml:"internal"`
	External             *ExternalMessageRecord `json:"external,omitempty" yaml:"external,omitempty"`
	ExternalIndex        int                    `json:"external_index" yaml:"external_index"`
	Score                float64                `json:"score" yaml:"score"`
	ConfidencePercentage string                 `json:"confidence_percentage,omitempty" yaml:"confidence_percentage,omitempty"`
	Reason               UnmatchedReason        `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// NewMatched builds a matched outcome pairing an internal record with the
// external record at index in the pool.
func NewMatched(internal InternalMessageRecord, external ExternalMessageRecord, index int, score float64) MatchOutcome {
	return MatchOutcome{
		Status:               OutcomeStatusMatched,
		Internal:             internal,
		External:             &external,
		ExternalIndex:        index,
		Score:                score,
		ConfidencePercentage: FormatPercentage(score),
	}
}

// NewUnmatched builds an unmatched outcome carrying the best observed score
func NewUnmatched(internal InternalMessageRecord, bestScore float64) MatchOutcome {
	reason := UnmatchedReasonNoCandidate
	if bestScore > 0 {
		reason = UnmatchedReasonBelowThreshold
	}
	return MatchOutcome{
		Status:        OutcomeStatusUnmatched,
		Internal:      internal,
		ExternalIndex: -1,
		Score:         bestScore,
		Reason:        reason,
	}
}

// IsMatched reports whether the outcome is the matched variant
func (o MatchOutcome) IsMatched() bool {
	return o.Status == OutcomeStatusMatched
}

// FirstContactStatistics is the sub-count for first contact messages
type FirstContactStatistics struct {
	Total     int `json:"total" yaml:"total"`
	Matched   int `json:"matched" yaml:"matched"`
	Unmatched int `json:"unmatched" yaml:"unmatched"`
}

// ReconciliationStatistics summarizes a reconciliation run or one batch of it
type ReconciliationStatistics struct {
	TotalInternal     int                    `json:"total_internal" yaml:"total_internal"`
	TotalExternal     int                    `json:"total_external" yaml:"total_external"`
	Matched           int                    `json:"matched" yaml:"matched"`
	Unmatched         int                    `json:"unmatched" yaml:"unmatched"`
	AverageConfidence float64                `json:"average_confidence" yaml:"average_confidence"`
	FirstContact      FirstContactStatistics `json:"first_contact" yaml:"first_contact"`
}

// ReconciliationResult is the merged output of every batch
type ReconciliationResult struct {
	Matched    []MatchOutcome           `json:"matched" yaml:"matched"`
	Unmatched  []MatchOutcome           `json:"unmatched" yaml:"unmatched"`
	Statistics ReconciliationStatistics `json:"statistics" yaml:"statistics"`
}

// AverageConfidence returns the mean score of the matched outcomes
func AverageConfidence(matched []MatchOutcome) float64 {
	if len(matched) == 0 {
		return 0
	}
	var sum float64
	for _, m := range matched {
		sum += m.Score
	}
	return sum / float64(len(matched))
}

// FormatPercentage renders a [0,1] ratio as a two decimal percentage
func FormatPercentage(ratio float64) string {
	return decimal.NewFromFloat(ratio).Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

// FormatRate renders part/total as a percentage, "0%" when total is zero
func FormatRate(part, total int) string {
	if total == 0 {
		return "0%"
	}
	return decimal.NewFromInt(int64(part)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(decimal.NewFromInt(100)).
		StringFixed(2) + "%"
}
