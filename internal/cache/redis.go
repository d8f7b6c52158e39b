// Package cache provides a Redis-backed cache for box score lookups.
// Enrichment issues one box score request per game, which dominates the
// cost of a historical pull; completed games never change, so their box
// scores cache well across retries and re-runs.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nbasync/featurepipe/internal/metrics"
	"nbasync/featurepipe/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Config holds Redis connection configuration
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache caches box score player lines keyed by game id.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis cache and verifies connectivity.
func NewRedisCache(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().
		Str("addr", client.Options().Addr).
		Dur("ttl", cfg.TTL).
		Msg("Connected to Redis")

	return &RedisCache{client: client, ttl: cfg.TTL}, nil
}

func boxScoreKey(gameID string) string {
	return "boxscore:" + gameID
}

// GetPlayerLines returns the cached box score for a game, if present.
func (c *RedisCache) GetPlayerLines(ctx context.Context, gameID string) ([]models.PlayerLine, bool) {
	data, err := c.client.Get(ctx, boxScoreKey(gameID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("game_id", gameID).Msg("Cache read failed")
		}
		metrics.RecordCacheMiss()
		return nil, false
	}

	var lines []models.PlayerLine
	if err := json.Unmarshal(data, &lines); err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("Failed to unmarshal cached box score")
		metrics.RecordCacheMiss()
		return nil, false
	}

	metrics.RecordCacheHit()
	return lines, true
}

// SetPlayerLines caches a game's box score. Failures are logged and
// swallowed; the cache is best-effort.
func (c *RedisCache) SetPlayerLines(ctx context.Context, gameID string, lines []models.PlayerLine) {
	data, err := json.Marshal(lines)
	if err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("Failed to marshal box score for cache")
		return
	}

	if err := c.client.Set(ctx, boxScoreKey(gameID), data, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("game_id", gameID).Msg("Cache write failed")
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
