package model

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/fortuna/pythia/internal/dataset"
	"github.com/fortuna/pythia/internal/forest"
	"github.com/fortuna/pythia/internal/labels"
	log "github.com/sirupsen/logrus"
)

// Target names exposed by the bank.
const (
	TargetScoreHome    = "score_home"
	TargetScoreAway    = "score_away"
	TargetHTFT         = "htft"
	TargetHomeCorners  = "home_corners"
	TargetAwayCorners  = "away_corners"
	TargetHomeFouls    = "home_fouls"
	TargetAwayFouls    = "away_fouls"
	TargetHomeShots    = "home_shots"
	TargetAwayShots    = "away_shots"
	TargetHomeOnTarget = "home_ontarget"
	TargetAwayOnTarget = "away_ontarget"
	TargetHomeYellow   = "home_yellow"
	TargetAwayYellow   = "away_yellow"
)

// Stat identifies one optional paired statistic.
type Stat struct {
	Key        string // "corners"
	Label      string // display label
	HomeTarget string
	AwayTarget string
	HomeColumn string
	AwayColumn string
}

// Stats lists the optional paired statistics in display order.
var Stats = []Stat{
	{"corners", "Corners", TargetHomeCorners, TargetAwayCorners, dataset.ColHCorners, dataset.ColACorners},
	{"fouls", "Fautes", TargetHomeFouls, TargetAwayFouls, dataset.ColHFouls, dataset.ColAFouls},
	{"shots", "Tirs", TargetHomeShots, TargetAwayShots, dataset.ColHShots, dataset.ColAShots},
	{"on_target", "Tirs cadrés", TargetHomeOnTarget, TargetAwayOnTarget, dataset.ColHOnTarget, dataset.ColAOnTarget},
	{"yellow_cards", "Cartons jaunes", TargetHomeYellow, TargetAwayYellow, dataset.ColHYellow, dataset.ColAYellow},
}

// Pair holds the home and away regressors of one statistic.
type Pair struct {
	Home *forest.Regressor
	Away *forest.Regressor
}

// Bank holds every fitted predictor. Optional entries are nil when their
// source columns were absent. A Bank is never modified after Build.
type Bank struct {
	ScoreHome *forest.Regressor
	ScoreAway *forest.Regressor
	HTFT      *forest.Classifier
	pairs     map[string]*Pair
}

// Pair returns the regressors for the statistic key, or nil.
func (b *Bank) Pair(key string) *Pair {
	return b.pairs[key]
}

// Targets lists the present targets in a fixed order.
func (b *Bank) Targets() []string {
	targets := []string{TargetScoreHome, TargetScoreAway}
	if b.HTFT != nil {
		targets = append(targets, TargetHTFT)
	}
	for _, s := range Stats {
		if b.pairs[s.Key] != nil {
			targets = append(targets, s.HomeTarget, s.AwayTarget)
		}
	}
	return targets
}

// Has reports whether target is present.
func (b *Bank) Has(target string) bool {
	for _, t := range b.Targets() {
		if t == target {
			return true
		}
	}
	return false
}

// Models is everything derived from one table: the bank, both team
// vocabularies and the table itself for head-to-head lookups.
type Models struct {
	Bank        *Bank
	HomeEncoder *labels.Encoder
	AwayEncoder *labels.Encoder
	HomeTeams   []string
	AwayTeams   []string
	Table       *dataset.Table
}

type buildEntry struct {
	once   sync.Once
	models *Models
	err    error
}

var (
	buildMu sync.Mutex
	built   = make(map[*dataset.Table]*buildEntry)
)

// Build fits the models for table once per process. Later calls with the same
// table pointer return the cached result and ignore cfg. Concurrent calls for
// the same table wait for a single fit; calls for other tables do not wait.
// A failed fit is not cached.
func Build(ctx context.Context, table *dataset.Table, cfg forest.Config) (*Models, error) {
	buildMu.Lock()
	e, ok := built[table]
	if !ok {
		e = &buildEntry{}
		built[table] = e
	}
	buildMu.Unlock()

	e.once.Do(func() {
		e.models, e.err = Fit(ctx, table, cfg)
	})
	if e.err != nil {
		buildMu.Lock()
		if built[table] == e {
			delete(built, table)
		}
		buildMu.Unlock()
		return nil, e.err
	}
	return e.models, nil
}

// Fit trains every model the table's columns allow, without memoization.
//
// Home and away names are encoded with independent vocabularies, so a club
// seen on both sides usually receives two different codes.
func Fit(ctx context.Context, table *dataset.Table, cfg forest.Config) (*Models, error) {
	if table == nil || table.Len() == 0 {
		return nil, fmt.Errorf("building models: %w", dataset.ErrEmpty)
	}

	homeEnc := labels.Fit(table.HomeTeamColumn())
	awayEnc := labels.Fit(table.AwayTeamColumn())

	X, err := featureMatrix(table, homeEnc, awayEnc)
	if err != nil {
		return nil, err
	}

	bank := &Bank{pairs: make(map[string]*Pair)}

	if bank.ScoreHome, err = fitColumn(ctx, X, table, dataset.ColFTHG, TargetScoreHome, cfg); err != nil {
		return nil, err
	}
	if bank.ScoreAway, err = fitColumn(ctx, X, table, dataset.ColFTAG, TargetScoreAway, cfg); err != nil {
		return nil, err
	}
	if bank.ScoreHome == nil || bank.ScoreAway == nil {
		return nil, fmt.Errorf("building models: no rows to fit the score")
	}

	if table.HasColumn(dataset.ColHTR) && table.HasColumn(dataset.ColFTR) {
		if bank.HTFT, err = fitHTFT(ctx, X, table, cfg); err != nil {
			return nil, err
		}
	}

	for _, s := range Stats {
		if !table.HasColumn(s.HomeColumn) || !table.HasColumn(s.AwayColumn) {
			continue
		}
		home, err := fitColumn(ctx, X, table, s.HomeColumn, s.HomeTarget, cfg)
		if err != nil {
			return nil, err
		}
		away, err := fitColumn(ctx, X, table, s.AwayColumn, s.AwayTarget, cfg)
		if err != nil {
			return nil, err
		}
		if home != nil && away != nil {
			bank.pairs[s.Key] = &Pair{Home: home, Away: away}
		}
	}

	log.Printf("✓ Model bank ready: %v", bank.Targets())

	return &Models{
		Bank:        bank,
		HomeEncoder: homeEnc,
		AwayEncoder: awayEnc,
		HomeTeams:   table.HomeTeams(),
		AwayTeams:   table.AwayTeams(),
		Table:       table,
	}, nil
}

// FeatureRow is the single input shape shared by every model.
func FeatureRow(homeCode, awayCode int, hthg, htag float64) []float64 {
	return []float64{float64(homeCode), float64(awayCode), hthg, htag}
}

func featureMatrix(table *dataset.Table, homeEnc, awayEnc *labels.Encoder) ([][]float64, error) {
	homeCodes, err := homeEnc.TransformAll(table.HomeTeamColumn())
	if err != nil {
		return nil, fmt.Errorf("encoding home teams: %w", err)
	}
	awayCodes, err := awayEnc.TransformAll(table.AwayTeamColumn())
	if err != nil {
		return nil, fmt.Errorf("encoding away teams: %w", err)
	}
	hthg, err := table.Float(dataset.ColHTHG)
	if err != nil {
		return nil, err
	}
	htag, err := table.Float(dataset.ColHTAG)
	if err != nil {
		return nil, err
	}

	X := make([][]float64, table.Len())
	for i := range X {
		X[i] = FeatureRow(homeCodes[i], awayCodes[i], hthg[i], htag[i])
	}
	return X, nil
}

// fitColumn trains on the rows where column has a value. It returns nil
// without error when no row does.
func fitColumn(ctx context.Context, X [][]float64, table *dataset.Table, column, target string, cfg forest.Config) (*forest.Regressor, error) {
	values, err := table.Float(column)
	if err != nil {
		return nil, err
	}

	rows := make([][]float64, 0, len(values))
	y := make([]float64, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		rows = append(rows, X[i])
		y = append(y, v)
	}
	if len(y) == 0 {
		log.Printf("⚠️  %s: column %s has no values, skipping", target, column)
		return nil, nil
	}

	start := time.Now()
	r, err := forest.FitRegressor(ctx, rows, y, cfg)
	if err != nil {
		return nil, fmt.Errorf("fitting %s: %w", target, err)
	}
	log.Debugf("  ✓ %s fitted on %d rows in %v", target, len(y), time.Since(start))
	return r, nil
}

// fitHTFT trains the combined half-time/full-time classifier on rows where
// both result letters are present.
func fitHTFT(ctx context.Context, X [][]float64, table *dataset.Table, cfg forest.Config) (*forest.Classifier, error) {
	htr, err := table.Strings(dataset.ColHTR)
	if err != nil {
		return nil, err
	}
	ftr, err := table.Strings(dataset.ColFTR)
	if err != nil {
		return nil, err
	}

	rows := make([][]float64, 0, len(htr))
	y := make([]string, 0, len(htr))
	for i := range htr {
		if htr[i] == "" || ftr[i] == "" {
			continue
		}
		rows = append(rows, X[i])
		y = append(y, HTFTLabel(htr[i], ftr[i]))
	}
	if len(y) == 0 {
		log.Printf("⚠️  %s: no rows with both result letters, skipping", TargetHTFT)
		return nil, nil
	}

	start := time.Now()
	c, err := forest.FitClassifier(ctx, rows, y, cfg)
	if err != nil {
		return nil, fmt.Errorf("fitting %s: %w", TargetHTFT, err)
	}
	log.Debugf("  ✓ %s fitted on %d rows in %v", TargetHTFT, len(y), time.Since(start))
	return c, nil
}

// HTFTLabel joins the half-time and full-time result letters, e.g. "D/H".
func HTFTLabel(htr, ftr string) string {
	return htr + "/" + ftr
}
