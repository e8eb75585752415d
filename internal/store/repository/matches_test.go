package repository

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/fortuna/pythia/internal/dataset"
	"github.com/fortuna/pythia/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectColumnsDropsEmptyOptionalColumns(t *testing.T) {
	present := make([]bool, len(matchColumns))
	record := make([]string, len(matchColumns))
	for i, c := range matchColumns {
		switch c.name {
		case dataset.ColHomeTeam:
			record[i] = "Lyon"
		case dataset.ColAwayTeam:
			record[i] = "Nice"
		case dataset.ColHTHG, dataset.ColHTAG, dataset.ColFTHG, dataset.ColFTAG, dataset.ColHCorners:
			record[i] = "1"
		default:
			continue
		}
		present[i] = true
	}

	header, rows := projectColumns(present, [][]string{record})
	assert.Equal(t, []string{"HomeTeam", "AwayTeam", "HTHG", "HTAG", "FTHG", "FTAG", "HC"}, header)
	assert.Equal(t, [][]string{{"Lyon", "Nice", "1", "1", "1", "1", "1"}}, rows)
}

func TestProjectColumnsKeepsRequiredColumnsOnEmptyTable(t *testing.T) {
	header, rows := projectColumns(make([]bool, len(matchColumns)), nil)
	assert.Equal(t, dataset.RequiredColumns, header)
	assert.Empty(t, rows)
}

func TestRowValuesUsesNullForMissingCells(t *testing.T) {
	m := dataset.Match{HomeTeam: "Lyon", AwayTeam: "Nice", FTHG: 2, Stats: map[string]float64{dataset.ColHCorners: 7}}
	values := rowValues(m)

	byName := map[string]interface{}{}
	for i, c := range matchColumns {
		byName[c.name] = values[i]
	}
	assert.Nil(t, byName[dataset.ColDate])
	assert.Nil(t, byName[dataset.ColHTR])
	assert.Nil(t, byName[dataset.ColACorners])
	assert.Equal(t, 7.0, byName[dataset.ColHCorners])
	assert.Equal(t, 2.0, byName[dataset.ColFTHG])
	assert.Equal(t, "Lyon", byName[dataset.ColHomeTeam])
}

func TestReplaceAllAndLoadTable(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	db, err := store.NewDatabase(dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.HealthCheck(ctx))
	require.NoError(t, db.RunMigrations(ctx))

	table, err := dataset.Read(strings.NewReader(`Date,HomeTeam,AwayTeam,FTHG,FTAG,FTR,HTHG,HTAG,HTR,HC,AC
05/08/2019,Arsenal,Chelsea,2,1,H,1,0,H,6,
12/08/2019,Chelsea,Arsenal,0,0,D,0,0,D,5,5
`))
	require.NoError(t, err)

	repo := NewMatchRepository(db)
	n, err := repo.ReplaceAll(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	loaded, err := repo.LoadTable(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())
	assert.True(t, loaded.HasColumn(dataset.ColHCorners))
	assert.True(t, loaded.HasColumn(dataset.ColACorners))
	assert.False(t, loaded.HasColumn(dataset.ColHFouls))
	assert.Equal(t, table.Match(0), loaded.Match(0))
}
