// Command backfill runs a one-shot historical sync of the configured season
// window and exits. Useful for seeding a fresh feature group or repairing
// gaps without leaving the worker running.
package main

import (
	"context"
	"flag"
	"strconv"
	"time"

	"nbasync/featurepipe/internal/cache"
	"nbasync/featurepipe/internal/client"
	"nbasync/featurepipe/internal/config"
	"nbasync/featurepipe/internal/featurestore"
	"nbasync/featurepipe/internal/pipeline"

	"github.com/rs/zerolog/log"
)

func main() {
	seasonStart := flag.Int("season-start", 0, "first season year to sync (default from config)")
	seasonEnd := flag.Int("season-end", 0, "last season year to sync (default from config)")
	flag.Parse()

	ctx := context.Background()
	cfg := config.MustLoad()

	start := cfg.SeasonStart
	end := cfg.SeasonEnd
	if *seasonStart != 0 {
		start = *seasonStart
	}
	if *seasonEnd != 0 {
		end = *seasonEnd
	}
	if start > end {
		log.Fatal().Int("season_start", start).Int("season_end", end).Msg("Season window is inverted")
	}

	password := cfg.DatabasePassword
	if password == "" {
		password = cfg.StoreAPIKey
	}
	store, err := featurestore.NewPostgresStore(ctx, featurestore.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: password,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	}, cfg.StoreProjectName, cfg.FeatureGroupName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to feature store")
	}
	defer store.Close()

	log.Info().Msg("Validating service health...")
	if err := store.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Feature store health check failed")
	}

	var boxCache pipeline.BoxScoreCache
	redisCache, err := cache.NewRedisCache(cache.Config{
		Host:     cfg.RedisHost,
		Port:     strconv.Itoa(cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      time.Duration(cfg.CacheTTLBoxScores) * time.Second,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
	} else {
		defer redisCache.Close()
		boxCache = redisCache
	}

	roster, err := cfg.Roster()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to parse tracked roster")
	}

	statsClient := client.NewClient(cfg.StatsBaseURL, cfg.StatsTimeout)
	orchestrator := pipeline.NewOrchestrator(
		pipeline.NewFetcher(statsClient, cfg.SeasonFetchDelay),
		pipeline.NewEnricher(statsClient, boxCache, roster),
		store,
		cfg.TeamID,
	)

	log.Info().
		Int("season_start", start).
		Int("season_end", end).
		Str("group", cfg.FeatureGroupName).
		Msg("Starting historical backfill")

	began := time.Now()
	table, err := orchestrator.Sync(ctx, start, end)
	if err != nil {
		log.Fatal().Err(err).Msg("Backfill failed")
	}

	log.Info().
		Int("rows", table.Len()).
		Dur("duration", time.Since(began)).
		Msg("Backfill complete")
}
