package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/attrition-dashboard/backend/pkg/logger"
)

const predictionPrefix = "prediction:"

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SetPrediction caches a prediction result under the hash of its feature vector.
func (c *Client) SetPrediction(ctx context.Context, vectorHash string, result interface{}, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction: %w", err)
	}

	err = c.client.Set(ctx, predictionPrefix+vectorHash, data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set prediction cache: %w", err)
	}

	logger.Debug("Prediction cached", zap.String("vector_hash", vectorHash), zap.Duration("ttl", ttl))
	return nil
}

// GetPrediction loads a cached prediction into result. It reports false on a miss.
func (c *Client) GetPrediction(ctx context.Context, vectorHash string, result interface{}) (bool, error) {
	data, err := c.client.Get(ctx, predictionPrefix+vectorHash).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get prediction cache: %w", err)
	}

	err = json.Unmarshal(data, result)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal prediction: %w", err)
	}

	logger.Debug("Prediction cache hit", zap.String("vector_hash", vectorHash))
	return true, nil
}

// InvalidatePredictions drops every cached prediction, e.g. after a model swap.
func (c *Client) InvalidatePredictions(ctx context.Context) error {
	deleted := 0
	iter := c.client.Scan(ctx, 0, predictionPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		err := c.client.Del(ctx, iter.Val()).Err()
		if err != nil {
			logger.Warn("Failed to delete cache key", zap.String("key", iter.Val()), zap.Error(err))
			continue
		}
		deleted++
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Info("Prediction cache invalidated", zap.Int("keys", deleted))
	return nil
}
