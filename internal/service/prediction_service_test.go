package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryCache struct {
	entries map[string]*Prediction
	gets    int
	fail    bool
}

func (c *memoryCache) GetPrediction(ctx context.Context, key string) (*Prediction, error) {
	c.gets++
	if c.fail {
		return nil, errors.New("connection refused")
	}
	return c.entries[key], nil
}

func (c *memoryCache) SetPrediction(ctx context.Context, key string, pred *Prediction) error {
	if c.fail {
		return errors.New("connection refused")
	}
	c.entries[key] = pred
	return nil
}

type recordingPublisher struct {
	published []*Prediction
}

func (p *recordingPublisher) PublishPrediction(ctx context.Context, pred *Prediction) error {
	p.published = append(p.published, pred)
	return nil
}

func TestPredictionServiceCachesSuccesses(t *testing.T) {
	cache := &memoryCache{entries: map[string]*Prediction{}}
	pub := &recordingPublisher{}
	svc := NewPredictionService(newPredictor(t, matchesCSV), cache, pub)

	q := Query{Home: "Arsenal", Away: "Chelsea", HTHG: 1}
	first, err := svc.Predict(context.Background(), q)
	require.NoError(t, err)
	assert.Contains(t, cache.entries, CacheKey("Arsenal", "Chelsea", 1, 0))

	// A misspelling that resolves to the same teams is served from the cache
	// but echoes its own query.
	typo := Query{Home: "Arsnal", Away: "Chelsea", HTHG: 1}
	second, err := svc.Predict(context.Background(), typo)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.gets)
	assert.Len(t, cache.entries, 1)
	assert.Equal(t, typo, second.Query)
	assert.Equal(t, q, first.Query)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.HeadToHead, second.HeadToHead)
	assert.Len(t, pub.published, 2)
}

func TestPredictionServiceCacheDoesNotBypassResolution(t *testing.T) {
	cache := &memoryCache{entries: map[string]*Prediction{}}
	svc := NewPredictionService(newPredictor(t, matchesCSV), cache, nil)

	upper := Query{Home: "ARSENAL", Away: "CHELSEA", HTHG: 1}
	_, err := svc.Predict(context.Background(), upper)
	require.ErrorIs(t, err, ErrNoMatch)

	_, err = svc.Predict(context.Background(), Query{Home: "Arsenal", Away: "Chelsea", HTHG: 1})
	require.NoError(t, err)
	gets := cache.gets

	pred, err := svc.Predict(context.Background(), upper)
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Nil(t, pred)
	assert.Equal(t, gets, cache.gets)
}

func TestPredictionServiceKeysOnHalfTimeScore(t *testing.T) {
	cache := &memoryCache{entries: map[string]*Prediction{}}
	svc := NewPredictionService(newPredictor(t, matchesCSV), cache, nil)

	for _, hthg := range []int{0, 1, 2} {
		_, err := svc.Predict(context.Background(), Query{Home: "Arsenal", Away: "Chelsea", HTHG: hthg})
		require.NoError(t, err)
	}
	assert.Len(t, cache.entries, 3)

	_, err := svc.Predict(context.Background(), Query{Home: "Arsenal", Away: "Chelsea", HTHG: 11})
	assert.ErrorIs(t, err, ErrData)
	assert.Len(t, cache.entries, 3)
}

func TestPredictionServiceDoesNotCacheFailures(t *testing.T) {
	cache := &memoryCache{entries: map[string]*Prediction{}}
	pub := &recordingPublisher{}
	svc := NewPredictionService(newPredictor(t, matchesCSV), cache, pub)

	_, err := svc.Predict(context.Background(), Query{Home: "Zzzznotateam", Away: "Chelsea"})
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Empty(t, cache.entries)
	assert.Empty(t, pub.published)
}

func TestPredictionServiceIgnoresCacheErrors(t *testing.T) {
	cache := &memoryCache{fail: true}
	svc := NewPredictionService(newPredictor(t, matchesCSV), cache, nil)

	pred, err := svc.Predict(context.Background(), Query{Home: "Liverpool", Away: "Arsenal"})
	require.NoError(t, err)
	assert.Equal(t, "Liverpool", pred.HomeTeam)
	assert.Equal(t, 1, cache.gets)
}
