package dataset

import (
	"strings"
	"time"
)

// Match is one historical fixture.
type Match struct {
	HomeTeam string             `json:"home_team"`
	AwayTeam string             `json:"away_team"`
	Date     string             `json:"date,omitempty"`
	PlayedOn time.Time          `json:"-"`
	HTHG     float64            `json:"hthg"`
	HTAG     float64            `json:"htag"`
	FTHG     float64            `json:"fthg"`
	FTAG     float64            `json:"ftag"`
	HTR      string             `json:"htr,omitempty"`
	FTR      string             `json:"ftr,omitempty"`
	Stats    map[string]float64 `json:"stats,omitempty"`
}

// dateLayouts are tried in order; football-data switched from two to four digit years.
var dateLayouts = []string{
	"02/01/2006",
	"02/01/06",
	"2006-01-02",
	"2006-01-02 15:04:05",
}

// ParseDate parses a match date, returning the zero time when no layout fits.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
