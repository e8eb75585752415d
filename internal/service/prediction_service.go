package service

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Cache stores predictions between requests under a CacheKey.
type Cache interface {
	GetPrediction(ctx context.Context, key string) (*Prediction, error)
	SetPrediction(ctx context.Context, key string, pred *Prediction) error
}

// CacheKey identifies a prediction by its resolved teams and half-time
// score. Two queries share a key only if they resolve to the same teams.
func CacheKey(homeTeam, awayTeam string, hthg, htag int) string {
	return fmt.Sprintf("%s|%s|%d|%d", homeTeam, awayTeam, hthg, htag)
}

// Publisher announces served predictions.
type Publisher interface {
	PublishPrediction(ctx context.Context, pred *Prediction) error
}

// PredictionService fronts a Predictor with an optional cache and event
// publisher. Cache and publisher failures are logged and never fail a query.
type PredictionService struct {
	predictor *Predictor
	cache     Cache
	publisher Publisher
}

// NewPredictionService creates a prediction service. cache and publisher may be nil.
func NewPredictionService(predictor *Predictor, cache Cache, publisher Publisher) *PredictionService {
	return &PredictionService{
		predictor: predictor,
		cache:     cache,
		publisher: publisher,
	}
}

// Predictor returns the underlying predictor.
func (s *PredictionService) Predictor() *Predictor {
	return s.predictor
}

// Predict answers q. The cache is consulted only once both team names
// resolve, so it never answers a query the predictor would reject.
func (s *PredictionService) Predict(ctx context.Context, q Query) (*Prediction, error) {
	key, cacheable := s.cacheKey(q)
	if cacheable {
		cached, err := s.cache.GetPrediction(ctx, key)
		if err != nil {
			log.Warnf("prediction cache read failed: %v", err)
		} else if cached != nil {
			hit := *cached
			hit.Query = q
			s.publish(ctx, &hit)
			return &hit, nil
		}
	}

	pred, err := s.predictor.Predict(ctx, q)
	if err != nil {
		return nil, err
	}

	if cacheable {
		if err := s.cache.SetPrediction(ctx, key, pred); err != nil {
			log.Warnf("prediction cache write failed: %v", err)
		}
	}
	s.publish(ctx, pred)
	return pred, nil
}

// cacheKey reports whether q may be served from the cache, and under which key.
func (s *PredictionService) cacheKey(q Query) (string, bool) {
	if s.cache == nil || q.Validate() != nil {
		return "", false
	}
	homeTeam, awayTeam, err := s.predictor.Resolve(q.Home, q.Away)
	if err != nil {
		return "", false
	}
	return CacheKey(homeTeam, awayTeam, q.HTHG, q.HTAG), true
}

func (s *PredictionService) publish(ctx context.Context, pred *Prediction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishPrediction(ctx, pred); err != nil {
		log.Warnf("publishing prediction failed: %v", err)
	}
}
