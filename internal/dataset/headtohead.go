package dataset

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// HeadToHeadLimit is the number of most recent meetings summarised.
const HeadToHeadLimit = 5

// StatMean is the average of one statistic over a set of matches.
type StatMean struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
}

// HeadToHead holds the most recent meetings of a fixture and their averages.
type HeadToHead struct {
	Matches []Match    `json:"matches"`
	Means   []StatMean `json:"means"`
}

// HeadToHead returns the latest limit meetings where home hosted away, newest
// first, and the mean of every present statistic over them. Matching is exact
// and order-sensitive: the reverse fixture is not included.
func (t *Table) HeadToHead(home, away string, limit int) (*HeadToHead, error) {
	var idx []int
	for i := range t.home {
		if t.home[i] == home && t.away[i] == away {
			idx = append(idx, i)
		}
	}

	h2h := &HeadToHead{Matches: []Match{}, Means: []StatMean{}}
	if len(idx) == 0 {
		return h2h, nil
	}
	if !t.HasColumn(ColDate) {
		return nil, fmt.Errorf("sorting head-to-head: %w: %s", ErrMissingColumn, ColDate)
	}

	// Undated rows sort after every dated one.
	sort.SliceStable(idx, func(a, b int) bool {
		return t.played[idx[a]].After(t.played[idx[b]])
	})
	if limit > 0 && len(idx) > limit {
		idx = idx[:limit]
	}

	for _, i := range idx {
		h2h.Matches = append(h2h.Matches, t.Match(i))
	}

	recent := t.df.Subset(idx)
	if recent.Err != nil {
		return nil, fmt.Errorf("selecting head-to-head rows: %w", recent.Err)
	}
	for _, col := range StatColumns {
		if !t.HasColumn(col) {
			continue
		}
		values := make([]float64, 0, len(idx))
		for _, v := range recent.Col(col).Float() {
			if !math.IsNaN(v) {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		h2h.Means = append(h2h.Means, StatMean{Column: col, Mean: stat.Mean(values, nil)})
	}

	return h2h, nil
}
