package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fortuna/pythia/internal/dataset"
	"github.com/fortuna/pythia/internal/ingest/footballdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"englandm.php", "francem.php"}, splitList(" englandm.php, ,francem.php"))
	assert.Nil(t, splitList(""))
}

func TestRunFetchWritesLoadableFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/spainm.php", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="mmz4281/2324/SP1.csv">La Liga</a>`)
	})
	mux.HandleFunc("/mmz4281/2324/SP1.csv", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Date,HomeTeam,AwayTeam,FTHG,FTAG,HTHG,HTAG\n11/08/2023,Sevilla,Valencia,1,2,1,0\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "combined.csv")
	client := footballdata.New(srv.URL)

	require.NoError(t, runFetch(context.Background(), client, []string{"spainm.php"}, out, &consoleReporter{dryRun: true}))
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, runFetch(context.Background(), client, []string{"spainm.php"}, out, &consoleReporter{}))
	table, err := dataset.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sevilla"}, table.HomeTeams())
}

func TestRunImportDryRunNeedsNoDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matches.csv")
	require.NoError(t, os.WriteFile(path, []byte("HomeTeam,AwayTeam,FTHG,FTAG,HTHG,HTAG\nLyon,Nice,1,0,0,0\n"), 0o644))

	assert.NoError(t, runImport(context.Background(), "postgres://invalid", path, &consoleReporter{dryRun: true}))
}
