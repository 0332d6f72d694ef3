package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "0%", FormatRate(0, 0))
	assert.Equal(t, "0%", FormatRate(3, 0))
	assert.Equal(t, "0.00%", FormatRate(0, 4))
	assert.Equal(t, "50.00%", FormatRate(1, 2))
	assert.Equal(t, "33.33%", FormatRate(1, 3))
	assert.Equal(t, "66.67%", FormatRate(2, 3))
	assert.Equal(t, "100.00%", FormatRate(7, 7))
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "0.00%", FormatPercentage(0))
	assert.Equal(t, "90.00%", FormatPercentage(0.9))
	assert.Equal(t, "85.71%", FormatPercentage(0.857142))
	assert.Equal(t, "100.00%", FormatPercentage(1))
}

func TestOutcomes(t *testing.T) {
	in := InternalMessageRecord{ID: "1"}

	t.Run("matched", func(t *testing.T) {
		o := NewMatched(in, ExternalMessageRecord{Text: "x"}, 3, 0.92)
		assert.True(t, o.IsMatched())
		assert.Equal(t, 3, o.ExternalIndex)
		assert.Equal(t, "x", o.External.Text)
		assert.Equal(t, "92.00%", o.ConfidencePercentage)
		assert.Empty(t, o.Reason)
	})

	t.Run("unmatched with a scored candidate", func(t *testing.T) {
		o := NewUnmatched(in, 0.4)
		assert.False(t, o.IsMatched())
		assert.Equal(t, UnmatchedReasonBelowThreshold, o.Reason)
		assert.Equal(t, 0.4, o.Score)
		assert.Nil(t, o.External)
	})

	t.Run("unmatched without candidates", func(t *testing.T) {
		o := NewUnmatched(in, 0)
		assert.Equal(t, UnmatchedReasonNoCandidate, o.Reason)
	})
}

func TestAverageConfidence(t *testing.T) {
	assert.Equal(t, 0.0, AverageConfidence(nil))
	assert.InDelta(t, 0.9, AverageConfidence([]MatchOutcome{{Score: 0.8}, {Score: 1.0}}), 1e-9)
}
