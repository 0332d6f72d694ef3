package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorer_Compare(t *testing.T) {
	s := NewScorer()

	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "hello there", "hello there", 1.0},
		{"equal after normalization", "Your payment is due", "your payment is due!!", 1.0},
		{"whitespace ignored", "ab cd", "abcd", 1.0},
		{"empty left", "", "hello", 0.0},
		{"empty right", "hello", "", 0.0},
		{"empty after normalization", "!!!", "hello", 0.0},
		{"single rune mismatch", "a", "b", 0.0},
		{"single rune equal", "a", "A", 1.0},
		{"single rune against word", "a", "ab", 0.0},
		{"disjoint", "abc", "xyz", 0.0},
		{"partial overlap", "night", "nacht", 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, s.Compare(tt.a, tt.b), 1e-9)
		})
	}
}

func TestScorer_CompareIsSymmetricAndBounded(t *testing.T) {
	s := NewScorer()
	pairs := [][2]string{
		{"Your code is 1234", "your code is 4321"},
		{"see you tomorrow", "see you tomorow"},
		{"aaaa", "aa"},
		{"hello", "help"},
	}
	for _, p := range pairs {
		ab := s.Compare(p[0], p[1])
		ba := s.Compare(p[1], p[0])
		assert.InDelta(t, ab, ba, 1e-12)
		assert.GreaterOrEqual(t, ab, 0.0)
		assert.LessOrEqual(t, ab, 1.0)
	}
}

func TestScorer_RepeatedBigramsAreCountedAsMultiset(t *testing.T) {
	s := NewScorer()
	// "aaaa" has {aa:3}, "aa" has {aa:1}; 2*1/(3+1)
	assert.InDelta(t, 0.5, s.Compare("aaaa", "aa"), 1e-9)
}

func TestScorer_Levenshtein(t *testing.T) {
	s := NewScorer()

	assert.Equal(t, 3, s.LevenshteinDistance("kitten", "sitting"))
	assert.Equal(t, 0, s.LevenshteinDistance("", ""))
	assert.Equal(t, 5, s.LevenshteinDistance("", "hello"))

	assert.InDelta(t, 1.0-3.0/7.0, s.Levenshtein("kitten", "sitting"), 1e-9)
	assert.InDelta(t, 1.0, s.Levenshtein("Hello!", "hello"), 1e-9)
	assert.InDelta(t, 0.0, s.Levenshtein("", "..."), 1e-9)
}
