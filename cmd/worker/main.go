package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"nbasync/featurepipe/internal/cache"
	"nbasync/featurepipe/internal/client"
	"nbasync/featurepipe/internal/config"
	"nbasync/featurepipe/internal/featurestore"
	"nbasync/featurepipe/internal/metrics"
	"nbasync/featurepipe/internal/pipeline"
	"nbasync/featurepipe/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	setupLogger()

	log.Info().Msg("Starting NBA feature pipeline worker")

	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Str("feature_group", cfg.FeatureGroupName).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	statsClient := client.NewClient(cfg.StatsBaseURL, cfg.StatsTimeout)
	log.Info().Str("base_url", cfg.StatsBaseURL).Msg("Stats client initialized")

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
	log.Info().
		Str("project", cfg.StoreProjectName).
		Str("group", cfg.FeatureGroupName).
		Msg("Feature store connected")

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

	orchestrator := pipeline.NewOrchestrator(
		pipeline.NewFetcher(statsClient, cfg.SeasonFetchDelay),
		pipeline.NewEnricher(statsClient, boxCache, roster),
		store,
		cfg.TeamID,
	)

	if cfg.EnableMetrics {
		go startMetricsServer(strconv.Itoa(cfg.MetricsPort))
	}

	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	sched := scheduler.NewScheduler(cfg, orchestrator)

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	if cfg.InitialSyncEnabled {
		log.Info().
			Int("season_start", cfg.SeasonStart).
			Int("season_end", cfg.SeasonEnd).
			Msg("Running initial historical sync...")
		table, err := orchestrator.Sync(ctx, cfg.SeasonStart, cfg.SeasonEnd)
		if err != nil {
			log.Error().Err(err).Msg("Initial sync failed, continuing anyway...")
		} else {
			log.Info().Int("rows", table.Len()).Msg("Initial sync completed successfully")
		}
	}

	<-ctx.Done()

	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port string) {
	http.Handle("/metrics", promhttp.Handler())

	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%s", port)
	log.Info().Str("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
