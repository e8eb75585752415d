package forest

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stepData() ([][]float64, []float64) {
	var X [][]float64
	var y []float64
	for i := 0; i < 40; i++ {
		x := float64(i % 10)
		X = append(X, []float64{x, float64(i % 3)})
		if x > 5 {
			y = append(y, 10)
		} else {
			y = append(y, 0)
		}
	}
	return X, y
}

func TestRegressorLearnsStep(t *testing.T) {
	X, y := stepData()
	r, err := FitRegressor(context.Background(), X, y, Config{Trees: 25, Seed: 7})
	require.NoError(t, err)
	assert.Equal(t, 25, r.Trees())

	low, err := r.Predict([]float64{1, 0})
	require.NoError(t, err)
	high, err := r.Predict([]float64{8, 2})
	require.NoError(t, err)

	assert.Less(t, low, 2.0)
	assert.Greater(t, high, 8.0)
}

func TestRegressorIsDeterministicPerSeed(t *testing.T) {
	X, y := stepData()
	cfg := Config{Trees: 10, Seed: 42, Workers: 4}

	a, err := FitRegressor(context.Background(), X, y, cfg)
	require.NoError(t, err)
	b, err := FitRegressor(context.Background(), X, y, cfg)
	require.NoError(t, err)

	for _, row := range X {
		pa, _ := a.Predict(row)
		pb, _ := b.Predict(row)
		assert.Equal(t, pa, pb)
	}
}

func TestRegressorPredictionStaysInTargetRange(t *testing.T) {
	X, y := stepData()
	r, err := FitRegressor(context.Background(), X, y, Config{Trees: 15})
	require.NoError(t, err)

	for _, row := range [][]float64{{-5, 0}, {100, 100}, {5.5, 1}} {
		p, err := r.Predict(row)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 10.0)
		assert.Equal(t, math.Round(p), math.Trunc(math.Round(p)))
	}
}

func TestRegressorRejectsBadShapes(t *testing.T) {
	_, err := FitRegressor(context.Background(), nil, nil, Config{})
	assert.ErrorIs(t, err, ErrShape)

	_, err = FitRegressor(context.Background(), [][]float64{{1}, {2, 3}}, []float64{1, 2}, Config{})
	assert.ErrorIs(t, err, ErrShape)

	_, err = FitRegressor(context.Background(), [][]float64{{1}}, []float64{math.NaN()}, Config{})
	assert.ErrorIs(t, err, ErrShape)

	X, y := stepData()
	r, err := FitRegressor(context.Background(), X, y, Config{Trees: 3})
	require.NoError(t, err)
	_, err = r.Predict([]float64{1})
	assert.ErrorIs(t, err, ErrShape)
}

func TestClassifierPredictsObservedLabels(t *testing.T) {
	var X [][]float64
	var y []string
	for i := 0; i < 60; i++ {
		home, away := float64(i%4), float64(i%5)
		X = append(X, []float64{home, away, float64(i % 2), 0})
		switch {
		case home > away:
			y = append(y, "H/H")
		case home < away:
			y = append(y, "A/A")
		default:
			y = append(y, "D/D")
		}
	}

	c, err := FitClassifier(context.Background(), X, y, Config{Trees: 30, Seed: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"A/A", "D/D", "H/H"}, c.Classes())

	observed := map[string]bool{"A/A": true, "D/D": true, "H/H": true}
	for _, row := range X {
		label, err := c.Predict(row)
		require.NoError(t, err)
		assert.True(t, observed[label], "unexpected label %q", label)

		proba, err := c.PredictProba(row)
		require.NoError(t, err)
		var sum float64
		for _, p := range proba {
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}

	label, err := c.Predict([]float64{3, 0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, "H/H", label)
}

func TestClassifierSingleClass(t *testing.T) {
	X := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	c, err := FitClassifier(context.Background(), X, []string{"D/D", "D/D", "D/D"}, Config{Trees: 5})
	require.NoError(t, err)

	label, err := c.Predict([]float64{9, 9})
	require.NoError(t, err)
	assert.Equal(t, "D/D", label)
}

func TestFitHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	X, y := stepData()
	_, err := FitRegressor(ctx, X, y, Config{Trees: 10})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMidpoint(t *testing.T) {
	assert.Equal(t, 1.5, midpoint(1, 2))
	next := math.Nextafter(1, 2)
	assert.Less(t, midpoint(1, next), next)
}
