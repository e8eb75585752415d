package forest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"github.com/fortuna/pythia/internal/labels"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// ErrShape is returned for empty or inconsistent training data and for
// feature rows of the wrong width.
var ErrShape = errors.New("invalid input shape")

// Config controls ensemble size and tree growth.
type Config struct {
	Trees           int   // Default: 100
	Seed            int64 // Tree i is grown from Seed+i
	Workers         int   // Default: GOMAXPROCS
	MinSamplesSplit int   // Default: 2
	MinSamplesLeaf  int   // Default: 1
}

// DefaultConfig returns the standard forest configuration.
func DefaultConfig() Config {
	return Config{
		Trees:           100,
		Workers:         runtime.GOMAXPROCS(0),
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Trees <= 0 {
		c.Trees = d.Trees
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	if c.MinSamplesSplit < 2 {
		c.MinSamplesSplit = d.MinSamplesSplit
	}
	if c.MinSamplesLeaf < 1 {
		c.MinSamplesLeaf = d.MinSamplesLeaf
	}
	return c
}

// Regressor is a bagged ensemble of squared-error regression trees.
type Regressor struct {
	trees     []*node
	nFeatures int
}

// FitRegressor grows cfg.Trees trees on bootstrap samples of (X, y).
// Every tree considers all features at each split.
func FitRegressor(ctx context.Context, X [][]float64, y []float64, cfg Config) (*Regressor, error) {
	nFeatures, err := checkShape(X, len(y))
	if err != nil {
		return nil, err
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: target %d is not finite", ErrShape, i)
		}
	}

	trees, err := grow(ctx, X, squaredError{y: y}, nFeatures, cfg.withDefaults())
	if err != nil {
		return nil, err
	}
	return &Regressor{trees: trees, nFeatures: nFeatures}, nil
}

// Predict averages the trees' outputs for one feature row.
func (r *Regressor) Predict(x []float64) (float64, error) {
	if len(x) != r.nFeatures {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrShape, len(x), r.nFeatures)
	}
	var sum float64
	for _, t := range r.trees {
		sum += t.predict(x)[0]
	}
	return sum / float64(len(r.trees)), nil
}

// Trees returns the ensemble size.
func (r *Regressor) Trees() int {
	return len(r.trees)
}

// Classifier is a bagged ensemble of Gini classification trees.
type Classifier struct {
	trees     []*node
	classes   *labels.Encoder
	nFeatures int
}

// FitClassifier grows cfg.Trees trees on bootstrap samples of (X, y).
// Each split considers floor(sqrt(features)) non-constant features.
func FitClassifier(ctx context.Context, X [][]float64, y []string, cfg Config) (*Classifier, error) {
	nFeatures, err := checkShape(X, len(y))
	if err != nil {
		return nil, err
	}

	enc := labels.Fit(y)
	codes, err := enc.TransformAll(y)
	if err != nil {
		return nil, err
	}

	crit := gini{y: codes, classes: enc.Len()}
	trees, err := grow(ctx, X, crit, maxFeaturesSqrt(nFeatures), cfg.withDefaults())
	if err != nil {
		return nil, err
	}
	return &Classifier{trees: trees, classes: enc, nFeatures: nFeatures}, nil
}

// PredictProba averages the trees' class fractions for one feature row,
// indexed like Classes.
func (c *Classifier) PredictProba(x []float64) ([]float64, error) {
	if len(x) != c.nFeatures {
		return nil, fmt.Errorf("%w: got %d features, want %d", ErrShape, len(x), c.nFeatures)
	}
	proba := make([]float64, c.classes.Len())
	for _, t := range c.trees {
		floats.Add(proba, t.predict(x))
	}
	floats.Scale(1/float64(len(c.trees)), proba)
	return proba, nil
}

// Predict returns the most probable class; ties go to the first class in
// sorted order.
func (c *Classifier) Predict(x []float64) (string, error) {
	proba, err := c.PredictProba(x)
	if err != nil {
		return "", err
	}
	return c.classes.Inverse(floats.MaxIdx(proba))
}

// Classes returns the labels seen during fitting, sorted.
func (c *Classifier) Classes() []string {
	return c.classes.Classes()
}

// Trees returns the ensemble size.
func (c *Classifier) Trees() int {
	return len(c.trees)
}

func maxFeaturesSqrt(n int) int {
	m := int(math.Sqrt(float64(n)))
	if m < 1 {
		return 1
	}
	return m
}

func checkShape(X [][]float64, n int) (int, error) {
	if len(X) == 0 {
		return 0, fmt.Errorf("%w: no samples", ErrShape)
	}
	if len(X) != n {
		return 0, fmt.Errorf("%w: %d rows but %d targets", ErrShape, len(X), n)
	}
	width := len(X[0])
	if width == 0 {
		return 0, fmt.Errorf("%w: no features", ErrShape)
	}
	for i, row := range X {
		if len(row) != width {
			return 0, fmt.Errorf("%w: row %d has %d features, want %d", ErrShape, i, len(row), width)
		}
	}
	return width, nil
}

// grow fits cfg.Trees trees concurrently. Results do not depend on scheduling
// because each tree owns its random source.
func grow(ctx context.Context, X [][]float64, crit criterion, maxFeatures int, cfg Config) ([]*node, error) {
	trees := make([]*node, cfg.Trees)
	nFeatures := len(X[0])

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(cfg.Seed + int64(i)))

			samples := make([]int, len(X))
			for j := range samples {
				samples[j] = rng.Intn(len(X))
			}

			features := make([]int, nFeatures)
			for f := range features {
				features[f] = f
			}

			b := &treeBuilder{
				X:           X,
				crit:        crit,
				maxFeatures: maxFeatures,
				minSplit:    cfg.MinSamplesSplit,
				minLeaf:     cfg.MinSamplesLeaf,
				rng:         rng,
				features:    features,
			}
			trees[i] = b.build(samples)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("growing forest: %w", err)
	}
	return trees, nil
}
