package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fortuna/pythia/internal/config"
	"github.com/fortuna/pythia/internal/dataset"
	"github.com/fortuna/pythia/internal/ingest/footballdata"
	"github.com/fortuna/pythia/internal/store"
	"github.com/fortuna/pythia/internal/store/repository"
	log "github.com/sirupsen/logrus"
)

const (
	appName    = "pythia-backfill"
	appVersion = "1.0.0"
)

func main() {
	log.Printf("=== %s v%s ===", appName, appVersion)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	var (
		dsn      = flag.String("dsn", cfg.DatabaseURL, "Postgres DSN")
		baseURL  = flag.String("base-url", cfg.FootballDataBase, "football-data.co.uk base URL")
		leagues  = flag.String("leagues", "englandm.php", "Comma separated league pages to scrape")
		fetch    = flag.Bool("fetch", false, "Download every season and write the combined CSV")
		out      = flag.String("out", cfg.DataPath, "Combined CSV path")
		doImport = flag.Bool("import", false, "Load the combined CSV into Postgres")
		dryRun   = flag.Bool("dry-run", false, "Dry run (do not write files or the database)")
	)
	flag.Parse()

	if !*fetch && !*doImport {
		log.Fatalf("Specify -fetch, -import, or both")
	}

	ctx := context.Background()
	reporter := &consoleReporter{dryRun: *dryRun}

	if *fetch {
		pages := splitList(*leagues)
		if err := runFetch(ctx, footballdata.New(*baseURL), pages, *out, reporter); err != nil {
			log.Fatalf("fetch failed: %v", err)
		}
	}

	if *doImport {
		if err := runImport(ctx, *dsn, *out, reporter); err != nil {
			log.Fatalf("import failed: %v", err)
		}
	}

	log.Println("✓ Backfill completed successfully")
}

func runFetch(ctx context.Context, client *footballdata.Client, pages []string, out string, reporter *consoleReporter) error {
	reporter.OnStart("fetch", strings.Join(pages, ", "))

	sheets, err := client.FetchLeagues(ctx, pages)
	if err != nil {
		return err
	}
	for i, s := range sheets {
		reporter.OnProgress(s.Source, i+1, len(sheets))
	}

	header, rows := footballdata.Combine(sheets)

	var buf bytes.Buffer
	if err := footballdata.WriteCSV(&buf, header, rows); err != nil {
		return fmt.Errorf("encoding combined csv: %w", err)
	}

	// Check the result loads before replacing anything.
	table, err := dataset.Read(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return fmt.Errorf("combined csv is not a usable dataset: %w", err)
	}
	reporter.OnComplete(fmt.Sprintf("%d rows, %d complete matches, %d columns", len(rows), table.Len(), len(header)))

	if reporter.dryRun {
		return nil
	}
	return writeFileAtomic(out, buf.Bytes())
}

func runImport(ctx context.Context, dsn, path string, reporter *consoleReporter) error {
	reporter.OnStart("import", path)

	table, err := dataset.ReadFile(path)
	if err != nil {
		return err
	}
	if reporter.dryRun {
		reporter.OnComplete(fmt.Sprintf("%d matches would be imported", table.Len()))
		return nil
	}

	db, err := store.NewDatabase(dsn)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		return err
	}

	n, err := repository.NewMatchRepository(db).ReplaceAll(ctx, table)
	if err != nil {
		return err
	}
	reporter.OnComplete(fmt.Sprintf("%d matches imported", n))
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pythia-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type consoleReporter struct {
	dryRun bool
}

func (c *consoleReporter) OnStart(job, target string) {
	log.Printf("Starting %s job for %s (dry_run=%v)", job, target, c.dryRun)
}

func (c *consoleReporter) OnProgress(message string, current int, total int) {
	log.Printf("[%d/%d] %s", current, total, message)
}

func (c *consoleReporter) OnComplete(summary string) {
	log.Printf("Job complete: %s", summary)
}
