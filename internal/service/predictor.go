package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/fortuna/pythia/internal/dataset"
	"github.com/fortuna/pythia/internal/forest"
	"github.com/fortuna/pythia/internal/fuzzy"
	"github.com/fortuna/pythia/internal/labels"
	"github.com/fortuna/pythia/internal/model"
)

// Half-time goal bounds accepted by the form.
const (
	MinGoals = 0
	MaxGoals = 10
)

// Query is one user request.
type Query struct {
	Home string `json:"home"`
	Away string `json:"away"`
	HTHG int    `json:"hthg"`
	HTAG int    `json:"htag"`
}

// Validate checks the half-time goal bounds.
func (q Query) Validate() error {
	if q.HTHG < MinGoals || q.HTHG > MaxGoals {
		return fmt.Errorf("half-time home goals %d outside [%d, %d]", q.HTHG, MinGoals, MaxGoals)
	}
	if q.HTAG < MinGoals || q.HTAG > MaxGoals {
		return fmt.Errorf("half-time away goals %d outside [%d, %d]", q.HTAG, MinGoals, MaxGoals)
	}
	return nil
}

// Score is a predicted final score.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// StatPrediction is a predicted pair for one optional statistic.
type StatPrediction struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Home  int    `json:"home"`
	Away  int    `json:"away"`
}

// Prediction is the full answer to a Query.
type Prediction struct {
	Query      Query               `json:"query"`
	HomeTeam   string              `json:"home_team"`
	AwayTeam   string              `json:"away_team"`
	Score      Score               `json:"score"`
	HTFT       string              `json:"htft,omitempty"`
	Stats      []StatPrediction    `json:"stats"`
	HeadToHead *dataset.HeadToHead `json:"head_to_head"`
}

// Predictor answers queries against one immutable set of models.
// It is safe for concurrent use.
type Predictor struct {
	models *model.Models
	cutoff float64
}

// NewPredictor creates a predictor using the default fuzzy cutoff.
func NewPredictor(models *model.Models) *Predictor {
	return &Predictor{models: models, cutoff: fuzzy.DefaultCutoff}
}

// Models returns the models backing the predictor.
func (p *Predictor) Models() *model.Models {
	return p.models
}

// Resolve maps free-text names to known home and away teams.
func (p *Predictor) Resolve(home, away string) (string, string, error) {
	homeTeam, okHome := fuzzy.Resolve(home, p.models.HomeTeams, p.cutoff)
	awayTeam, okAway := fuzzy.Resolve(away, p.models.AwayTeams, p.cutoff)
	if !okHome || !okAway {
		return "", "", queryError(ErrNoMatch, nil)
	}
	return homeTeam, awayTeam, nil
}

// Predict runs every model in the bank for q. It returns either a complete
// prediction or a *QueryError, never both.
func (p *Predictor) Predict(ctx context.Context, q Query) (pred *Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			pred, err = nil, queryError(ErrData, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := q.Validate(); err != nil {
		return nil, queryError(ErrData, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, queryError(ErrData, err)
	}

	homeTeam, awayTeam, err := p.Resolve(q.Home, q.Away)
	if err != nil {
		return nil, err
	}

	homeCode, err := p.models.HomeEncoder.Transform(homeTeam)
	if err != nil {
		return nil, classify(err)
	}
	awayCode, err := p.models.AwayEncoder.Transform(awayTeam)
	if err != nil {
		return nil, classify(err)
	}
	x := model.FeatureRow(homeCode, awayCode, float64(q.HTHG), float64(q.HTAG))

	bank := p.models.Bank
	pred = &Prediction{
		Query:    q,
		HomeTeam: homeTeam,
		AwayTeam: awayTeam,
		Stats:    []StatPrediction{},
	}

	if pred.Score.Home, err = predictRounded(bank.ScoreHome, x); err != nil {
		return nil, classify(err)
	}
	if pred.Score.Away, err = predictRounded(bank.ScoreAway, x); err != nil {
		return nil, classify(err)
	}

	if bank.HTFT != nil {
		if pred.HTFT, err = bank.HTFT.Predict(x); err != nil {
			return nil, classify(err)
		}
	}

	for _, s := range model.Stats {
		pair := bank.Pair(s.Key)
		if pair == nil {
			continue
		}
		home, err := predictRounded(pair.Home, x)
		if err != nil {
			return nil, classify(err)
		}
		away, err := predictRounded(pair.Away, x)
		if err != nil {
			return nil, classify(err)
		}
		pred.Stats = append(pred.Stats, StatPrediction{Key: s.Key, Label: s.Label, Home: home, Away: away})
	}

	h2h, err := p.models.Table.HeadToHead(homeTeam, awayTeam, dataset.HeadToHeadLimit)
	if err != nil {
		return nil, classify(err)
	}
	pred.HeadToHead = h2h

	return pred, nil
}

func predictRounded(r *forest.Regressor, x []float64) (int, error) {
	v, err := r.Predict(x)
	if err != nil {
		return 0, err
	}
	return int(math.RoundToEven(v)), nil
}

func classify(err error) *QueryError {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe
	}
	if errors.Is(err, labels.ErrUnseen) {
		return queryError(ErrUnseenLabel, err)
	}
	return queryError(ErrData, err)
}
