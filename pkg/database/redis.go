// Package database provides database connection utilities for the CRM application.
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hee-tis/trainee-notifications/pkg/config"
	"github.com/hee-tis/trainee-notifications/pkg/logger"
)

// RedisClient wraps the redis.Client and provides cache operations.
type RedisClient struct {
	client *redis.Client
	config *config.RedisConfig
	log    *logger.Logger
}

// NewRedis creates a new Redis client connection.
func NewRedis(cfg *config.RedisConfig, log *logger.Logger) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.Info().
		Str("addr", cfg.Addr()).
		Int("db", cfg.DB).
		Msg("Connected to Redis")

	return &RedisClient{
		client: client,
		config: cfg,
		log:    log,
	}, nil
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	r.log.Info().Msg("Closing Redis connection")
	return r.client.Close()
}

// Health checks the Redis connection health.
func (r *RedisClient) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Set sets a key-value pair with an expiration time.
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

// Get retrieves a value by key and unmarshals it into the target.
func (r *RedisClient) Get(ctx context.Context, key string, target interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrKeyNotFound
		}
		return fmt.Errorf("failed to get value: %w", err)
	}
	return json.Unmarshal(data, target)
}

// Delete deletes one or more keys.
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

// Expire sets an expiration time on a key.
func (r *RedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return r.client.Expire(ctx, key, expiration).Err()
}

// TTL returns the remaining time to live of a key.
func (r *RedisClient) TTL(ctx context.Context, key string) (time.Duration, error) {
	return r.client.TTL(ctx, key).Result()
}

// Pipeline creates a new (non-transactional) pipeline, used by
// RedisRateLimiter to batch its incr+ttl request-counting commands.
func (r *RedisClient) Pipeline() redis.Pipeliner {
	return r.client.Pipeline()
}

// ErrKeyNotFound is returned when a key is not found in Redis.
var ErrKeyNotFound = fmt.Errorf("key not found")
