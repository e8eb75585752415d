package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/fortuna/pythia/internal/dataset"
	"github.com/fortuna/pythia/internal/store"
	"github.com/lib/pq"
)

type column struct {
	name    string // dataset column
	sql     string // matches column
	numeric bool
}

var matchColumns = []column{
	{dataset.ColDate, "played_on", false},
	{dataset.ColHomeTeam, "home_team", false},
	{dataset.ColAwayTeam, "away_team", false},
	{dataset.ColHTHG, "hthg", true},
	{dataset.ColHTAG, "htag", true},
	{dataset.ColFTHG, "fthg", true},
	{dataset.ColFTAG, "ftag", true},
	{dataset.ColHTR, "htr", false},
	{dataset.ColFTR, "ftr", false},
	{dataset.ColHCorners, "hc", true},
	{dataset.ColACorners, "ac", true},
	{dataset.ColHFouls, "hf", true},
	{dataset.ColAFouls, "af", true},
	{dataset.ColHShots, "hs", true},
	{dataset.ColAShots, "as", true},
	{dataset.ColHOnTarget, "hst", true},
	{dataset.ColAOnTarget, "ast", true},
	{dataset.ColHYellow, "hy", true},
	{dataset.ColAYellow, "ay", true},
}

// MatchRepository handles historical match data access
type MatchRepository struct {
	db *store.Database
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *store.Database) *MatchRepository {
	return &MatchRepository{db: db}
}

// ReplaceAll swaps the stored matches for the rows of t in one transaction
func (r *MatchRepository) ReplaceAll(ctx context.Context, t *dataset.Table) (int, error) {
	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM matches"); err != nil {
		return 0, fmt.Errorf("clearing matches: %w", err)
	}

	names := make([]string, len(matchColumns))
	for i, c := range matchColumns {
		names[i] = c.sql
	}
	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("matches", names...))
	if err != nil {
		return 0, fmt.Errorf("preparing copy: %w", err)
	}

	for i := 0; i < t.Len(); i++ {
		if _, err := stmt.ExecContext(ctx, rowValues(t.Match(i))...); err != nil {
			stmt.Close()
			return 0, fmt.Errorf("copying row %d: %w", i, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return 0, fmt.Errorf("flushing copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing import: %w", err)
	}
	return t.Len(), nil
}

func rowValues(m dataset.Match) []interface{} {
	values := make([]interface{}, len(matchColumns))
	for i, c := range matchColumns {
		switch c.name {
		case dataset.ColDate:
			values[i] = nullString(m.Date)
		case dataset.ColHomeTeam:
			values[i] = m.HomeTeam
		case dataset.ColAwayTeam:
			values[i] = m.AwayTeam
		case dataset.ColHTHG:
			values[i] = m.HTHG
		case dataset.ColHTAG:
			values[i] = m.HTAG
		case dataset.ColFTHG:
			values[i] = m.FTHG
		case dataset.ColFTAG:
			values[i] = m.FTAG
		case dataset.ColHTR:
			values[i] = nullString(m.HTR)
		case dataset.ColFTR:
			values[i] = nullString(m.FTR)
		default:
			if v, ok := m.Stats[c.name]; ok {
				values[i] = v
			}
		}
	}
	return values
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Count returns the number of stored matches
func (r *MatchRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM matches").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting matches: %w", err)
	}
	return n, nil
}

// LoadTable reads every stored match into a cleaned dataset table. Optional
// columns with no value in any row are left out, as if absent from a CSV.
func (r *MatchRepository) LoadTable(ctx context.Context) (*dataset.Table, error) {
	query := "SELECT "
	for i, c := range matchColumns {
		if i > 0 {
			query += ", "
		}
		query += pq.QuoteIdentifier(c.sql)
	}
	query += " FROM matches ORDER BY match_id"

	rows, err := r.db.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	present := make([]bool, len(matchColumns))
	var records [][]string
	for rows.Next() {
		strs := make([]sql.NullString, len(matchColumns))
		nums := make([]sql.NullFloat64, len(matchColumns))
		dest := make([]interface{}, len(matchColumns))
		for i, c := range matchColumns {
			if c.numeric {
				dest[i] = &nums[i]
			} else {
				dest[i] = &strs[i]
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}

		record := make([]string, len(matchColumns))
		for i, c := range matchColumns {
			switch {
			case c.numeric && nums[i].Valid:
				record[i] = strconv.FormatFloat(nums[i].Float64, 'f', -1, 64)
				present[i] = true
			case !c.numeric && strs[i].Valid:
				record[i] = strs[i].String
				present[i] = true
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}

	return dataset.FromRecords(projectColumns(present, records))
}

// projectColumns keeps required columns and any optional column that holds a value.
func projectColumns(present []bool, records [][]string) ([]string, [][]string) {
	required := make(map[string]bool, len(dataset.RequiredColumns))
	for _, name := range dataset.RequiredColumns {
		required[name] = true
	}

	var keep []int
	var header []string
	for i, c := range matchColumns {
		if present[i] || required[c.name] {
			keep = append(keep, i)
			header = append(header, c.name)
		}
	}

	out := make([][]string, len(records))
	for r, record := range records {
		row := make([]string, len(keep))
		for j, i := range keep {
			row[j] = record[i]
		}
		out[r] = row
	}
	return header, out
}
