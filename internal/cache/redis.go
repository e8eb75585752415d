package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fortuna/pythia/internal/service"
	"github.com/redis/go-redis/v9"
)

const predictionPrefix = "prediction:"

// RedisCache stores computed predictions keyed by resolved teams and half-time score
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a new Redis cache connection
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return NewRedisCacheFromClient(client, ttl), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Close closes the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

// Client returns the underlying Redis client
func (rc *RedisCache) Client() *redis.Client {
	return rc.client
}

// HealthCheck pings Redis to verify connection
func (rc *RedisCache) HealthCheck(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// GetPrediction returns the prediction cached under key. A miss returns (nil, nil).
func (rc *RedisCache) GetPrediction(ctx context.Context, key string) (*service.Prediction, error) {
	raw, err := rc.client.Get(ctx, predictionKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached prediction: %w", err)
	}

	var pred service.Prediction
	if err := json.Unmarshal(raw, &pred); err != nil {
		return nil, fmt.Errorf("decoding cached prediction: %w", err)
	}
	return &pred, nil
}

// SetPrediction stores pred under key with the configured TTL
func (rc *RedisCache) SetPrediction(ctx context.Context, key string, pred *service.Prediction) error {
	data, err := json.Marshal(pred)
	if err != nil {
		return err
	}
	return rc.client.Set(ctx, predictionKey(key), data, rc.ttl).Err()
}

// Delete removes cached predictions for the given keys
func (rc *RedisCache) Delete(ctx context.Context, keys ...string) error {
	redisKeys := make([]string, len(keys))
	for i, key := range keys {
		redisKeys[i] = predictionKey(key)
	}
	return rc.client.Del(ctx, redisKeys...).Err()
}

func predictionKey(key string) string {
	return predictionPrefix + key
}
