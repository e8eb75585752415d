package fuzzy

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// DefaultCutoff is the minimum similarity accepted for a team name.
const DefaultCutoff = 0.6

// Candidate is a possible match with its similarity score.
type Candidate struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Similarity returns the sequence-matcher ratio 2*M/T between a and b,
// where M is the number of matched characters and T the total length.
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(chars(a), chars(b)).Ratio()
}

// Closest returns up to n candidates scoring at least cutoff against word,
// best first. Equal scores rank the lexicographically greater name first.
func Closest(word string, candidates []string, n int, cutoff float64) []Candidate {
	if n <= 0 || cutoff < 0 || cutoff > 1 {
		return nil
	}

	m := difflib.NewMatcher(nil, chars(word))

	var found []Candidate
	for _, name := range candidates {
		m.SetSeq1(chars(name))
		if m.RealQuickRatio() < cutoff || m.QuickRatio() < cutoff {
			continue
		}
		if score := m.Ratio(); score >= cutoff {
			found = append(found, Candidate{Name: name, Score: score})
		}
	}

	sortCandidates(found)
	if len(found) > n {
		found = found[:n]
	}
	return found
}

// Resolve returns the single best candidate for word, or false when none
// reaches cutoff.
func Resolve(word string, candidates []string, cutoff float64) (string, bool) {
	best := Closest(word, candidates, 1, cutoff)
	if len(best) == 0 {
		return "", false
	}
	return best[0].Name, true
}

func sortCandidates(c []Candidate) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].Score != c[j].Score {
			return c[i].Score > c[j].Score
		}
		return c[i].Name > c[j].Name
	})
}

func chars(s string) []string {
	return strings.Split(s, "")
}
