package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fortuna/pythia/internal/service"
	"github.com/redis/go-redis/v9"
)

// PredictionStream is the stream every served prediction is appended to.
const PredictionStream = "predictions.football"

// RedisStreamPublisher publishes events to Redis streams
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
}

// NewRedisStreamPublisher creates a new Redis stream publisher from existing client
func NewRedisStreamPublisher(client *redis.Client) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
		stream: PredictionStream,
	}
}

// PublishPrediction appends pred to the prediction stream
func (rsp *RedisStreamPublisher) PublishPrediction(ctx context.Context, pred *service.Prediction) error {
	data, err := json.Marshal(pred)
	if err != nil {
		return err
	}

	return rsp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: rsp.stream,
		Values: map[string]interface{}{
			"data":      string(data),
			"home_team": pred.HomeTeam,
			"away_team": pred.AwayTeam,
			"timestamp": time.Now().Unix(),
		},
	}).Err()
}
