package matching

import (
	"unicode"

	"github.com/4rvnd/ara-whatsapp-verification-checker/pkg/normalizers"
)

// Scorer provides string comparison algorithms for message text
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Profile is a message prepared for repeated Dice comparisons
type Profile struct {
	Normalized string
	runes      []rune
	bigrams    map[[2]rune]int
}

// NewProfile normalizes text and indexes its bigrams.
// Whitespace is ignored for bigram purposes.
func (s *Scorer) NewProfile(text string) Profile {
	normalized := normalizers.Message(text)
	runes := make([]rune, 0, len(normalized))
	for _, r := range normalized {
		if !unicode.IsSpace(r) {
			runes = append(runes, r)
		}
	}

	bigrams := make(map[[2]rune]int, max(len(runes)-1, 0))
	for i := 0; i+1 < len(runes); i++ {
		bigrams[[2]rune{runes[i], runes[i+1]}]++
	}

	return Profile{
		Normalized: normalized,
		runes:      runes,
		bigrams:    bigrams,
	}
}

// Compare returns the similarity of two raw message texts in [0,1].
// Returns 0 when either side is empty before or after normalization.
func (s *Scorer) Compare(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	return s.CompareProfiles(s.NewProfile(a), s.NewProfile(b))
}

// CompareProfiles computes the Dice coefficient over the bigram multisets of two profiles
func (s *Scorer) CompareProfiles(a, b Profile) float64 {
	if len(a.runes) == 0 || len(b.runes) == 0 {
		return 0.0
	}
	if string(a.runes) == string(b.runes) {
		return 1.0
	}
	if len(a.runes) < 2 || len(b.runes) < 2 {
		return 0.0
	}

	// Iterate the smaller multiset
	small, large := a.bigrams, b.bigrams
	if len(small) > len(large) {
		small, large = large, small
	}

	intersection := 0
	for bigram, count := range small {
		if other, ok := large[bigram]; ok {
			intersection += min(count, other)
		}
	}

	total := (len(a.runes) - 1) + (len(b.runes) - 1)
	return 2.0 * float64(intersection) / float64(total)
}

// Levenshtein calculates a similarity score between 0.0 and 1.0 from the
// edit distance of the normalized texts
func (s *Scorer) Levenshtein(a, b string) float64 {
	ra := []rune(normalizers.Message(a))
	rb := []rune(normalizers.Message(b))
	maxLen := max(len(ra), len(rb))
	if maxLen == 0 {
		return 0.0
	}
	return 1.0 - float64(levenshteinDistance(ra, rb))/float64(maxLen)
}

// LevenshteinDistance calculates the edit distance between two strings
func (s *Scorer) LevenshteinDistance(a, b string) int {
	return levenshteinDistance([]rune(a), []rune(b))
}

func levenshteinDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	// Two rows for dynamic programming
	row := make([]int, len(b)+1)
	prevRow := make([]int, len(b)+1)

	for j := 0; j <= len(b); j++ {
		prevRow[j] = j
	}

	for i := 1; i <= len(a); i++ {
		row[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 0
			if a[i-1] != b[j-1] {
				cost = 1
			}
			row[j] = min(row[j-1]+1, prevRow[j]+1, prevRow[j-1]+cost)
		}
		row, prevRow = prevRow, row
	}

	return prevRow[len(b)]
}
