package dataset

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Column names as they appear in football-data.co.uk exports.
const (
	ColHomeTeam  = "HomeTeam"
	ColAwayTeam  = "AwayTeam"
	ColHTHG      = "HTHG"
	ColHTAG      = "HTAG"
	ColFTHG      = "FTHG"
	ColFTAG      = "FTAG"
	ColHTR       = "HTR"
	ColFTR       = "FTR"
	ColDate      = "Date"
	ColHCorners  = "HC"
	ColACorners  = "AC"
	ColHFouls    = "HF"
	ColAFouls    = "AF"
	ColHShots    = "HS"
	ColAShots    = "AS"
	ColHOnTarget = "HST"
	ColAOnTarget = "AST"
	ColHYellow   = "HY"
	ColAYellow   = "AY"
)

// RequiredColumns must exist in every dataset and be non-missing in every kept row.
var RequiredColumns = []string{ColHomeTeam, ColAwayTeam, ColHTHG, ColHTAG, ColFTHG, ColFTAG}

// StatColumns are the numeric statistics summarised over head-to-head history, in display order.
var StatColumns = []string{
	ColFTHG, ColFTAG,
	ColHCorners, ColACorners,
	ColHFouls, ColAFouls,
	ColHShots, ColAShots,
	ColHOnTarget, ColAOnTarget,
	ColHYellow, ColAYellow,
}

// missingValues are the cell contents treated as absent.
var missingValues = []string{"", "NA", "NaN", "nan", "<nil>"}

var (
	// ErrMissingColumn is returned when a mandatory or requested column is absent.
	ErrMissingColumn = errors.New("missing column")
	// ErrEmpty is returned when no complete match rows remain after cleaning.
	ErrEmpty = errors.New("no complete match rows")
)

// Table is a cleaned, read-only set of historical matches.
type Table struct {
	df dataframe.DataFrame

	columns map[string]bool
	home    []string
	away    []string
	numeric map[string][]float64
	labels  map[string][]string
	played  []time.Time

	homeTeams []string
	awayTeams []string
}

var (
	loadMu sync.Mutex
	loaded = make(map[string]*Table)
)

// Load reads the dataset at path once per process; later calls with the same
// path return the identical *Table.
func Load(path string) (*Table, error) {
	key := filepath.Clean(path)

	loadMu.Lock()
	defer loadMu.Unlock()

	if t, ok := loaded[key]; ok {
		return t, nil
	}

	t, err := ReadFile(key)
	if err != nil {
		return nil, err
	}
	loaded[key] = t
	return t, nil
}

// ReadFile reads and cleans a CSV file without memoization.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV content with a header row and drops incomplete matches.
func Read(r io.Reader) (*Table, error) {
	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(columnTypes()),
		dataframe.NaNValues(missingValues),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("parsing csv: %w", df.Err)
	}
	return newTable(df)
}

// FromRecords builds a table from a header and string rows, applying the same
// typing and cleaning as Read.
func FromRecords(header []string, rows [][]string) (*Table, error) {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, header)
	records = append(records, rows...)

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(columnTypes()),
		dataframe.NaNValues(missingValues),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("loading records: %w", df.Err)
	}
	return newTable(df)
}

func columnTypes() map[string]series.Type {
	types := map[string]series.Type{
		ColHomeTeam: series.String,
		ColAwayTeam: series.String,
		ColHTR:      series.String,
		ColFTR:      series.String,
		ColDate:     series.String,
		ColHTHG:     series.Float,
		ColHTAG:     series.Float,
	}
	for _, col := range StatColumns {
		types[col] = series.Float
	}
	return types
}

func newTable(df dataframe.DataFrame) (*Table, error) {
	present := make(map[string]bool)
	for _, name := range df.Names() {
		present[name] = true
	}
	for _, col := range RequiredColumns {
		if !present[col] {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}

	// Keep rows where every mandatory cell is present.
	keep := make([]bool, df.Nrow())
	for i := range keep {
		keep[i] = true
	}
	for _, col := range RequiredColumns {
		for i, nan := range df.Col(col).IsNaN() {
			if nan {
				keep[i] = false
			}
		}
	}
	idx := make([]int, 0, len(keep))
	for i, ok := range keep {
		if ok {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil, ErrEmpty
	}
	if len(idx) != df.Nrow() {
		df = df.Subset(idx)
		if df.Err != nil {
			return nil, fmt.Errorf("dropping incomplete rows: %w", df.Err)
		}
	}

	t := &Table{
		df:      df,
		columns: present,
		home:    df.Col(ColHomeTeam).Records(),
		away:    df.Col(ColAwayTeam).Records(),
		numeric: make(map[string][]float64),
		labels:  make(map[string][]string),
	}

	for _, col := range append([]string{ColHTHG, ColHTAG}, StatColumns...) {
		if present[col] {
			t.numeric[col] = df.Col(col).Float()
		}
	}
	for _, col := range []string{ColHTR, ColFTR, ColDate} {
		if present[col] {
			t.labels[col] = stringsWithMissing(df.Col(col))
		}
	}

	t.played = make([]time.Time, len(t.home))
	if dates, ok := t.labels[ColDate]; ok {
		for i, d := range dates {
			t.played[i] = ParseDate(d)
		}
	}

	t.homeTeams = distinct(t.home)
	t.awayTeams = distinct(t.away)
	return t, nil
}

// stringsWithMissing returns the column's records with missing cells as "".
func stringsWithMissing(s series.Series) []string {
	records := s.Records()
	for i, nan := range s.IsNaN() {
		if nan {
			records[i] = ""
		}
	}
	return records
}

func distinct(values []string) []string {
	seen := make(map[string]bool, 64)
	out := make([]string, 0, 64)
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Len returns the number of cleaned rows.
func (t *Table) Len() int {
	return len(t.home)
}

// HasColumn reports whether the source data carried the named column.
func (t *Table) HasColumn(name string) bool {
	return t.columns[name]
}

// HomeTeamColumn returns the home team of every row. Callers must not modify it.
func (t *Table) HomeTeamColumn() []string { return t.home }

// AwayTeamColumn returns the away team of every row. Callers must not modify it.
func (t *Table) AwayTeamColumn() []string { return t.away }

// HomeTeams returns the distinct home team names in order of first appearance.
func (t *Table) HomeTeams() []string {
	return append([]string(nil), t.homeTeams...)
}

// AwayTeams returns the distinct away team names in order of first appearance.
func (t *Table) AwayTeams() []string {
	return append([]string(nil), t.awayTeams...)
}

// Float returns a numeric column with NaN for missing cells. Callers must not modify it.
func (t *Table) Float(name string) ([]float64, error) {
	col, ok := t.numeric[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return col, nil
}

// Strings returns a text column (HTR, FTR, Date) with "" for missing cells.
func (t *Table) Strings(name string) ([]string, error) {
	col, ok := t.labels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return col, nil
}

// Match returns the record for row i.
func (t *Table) Match(i int) Match {
	m := Match{
		HomeTeam: t.home[i],
		AwayTeam: t.away[i],
		HTHG:     t.numeric[ColHTHG][i],
		HTAG:     t.numeric[ColHTAG][i],
		FTHG:     t.numeric[ColFTHG][i],
		FTAG:     t.numeric[ColFTAG][i],
		PlayedOn: t.played[i],
		Stats:    make(map[string]float64),
	}
	if col, ok := t.labels[ColDate]; ok {
		m.Date = col[i]
	}
	if col, ok := t.labels[ColHTR]; ok {
		m.HTR = col[i]
	}
	if col, ok := t.labels[ColFTR]; ok {
		m.FTR = col[i]
	}
	for _, name := range StatColumns {
		if col, ok := t.numeric[name]; ok && !math.IsNaN(col[i]) {
			m.Stats[name] = col[i]
		}
	}
	return m
}
