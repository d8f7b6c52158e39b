package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"nbasync/featurepipe/internal/models"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// stats.nba.com API
	StatsBaseURL string        `envconfig:"NBA_STATS_BASE_URL" default:"https://stats.nba.com/stats"`
	StatsTimeout time.Duration `envconfig:"NBA_STATS_TIMEOUT" default:"30s"`

	// Delay between per-season pulls during a historical fetch; the stats
	// endpoint throttles aggressive bulk access.
	SeasonFetchDelay time.Duration `envconfig:"SEASON_FETCH_DELAY" default:"5s"`

	// Feature store addressing
	StoreProjectName string `envconfig:"FEATURE_STORE_PROJECT" default:"nba_winprob"`
	StoreAPIKey      string `envconfig:"FEATURE_STORE_API_KEY" default:""`
	FeatureGroupName string `envconfig:"FEATURE_GROUP_NAME" default:"nuggets_games"`

	// Database (offline feature store backend)
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"featurestore"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"fs_user"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" default:""`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis (box score cache)
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Box score cache TTL (in seconds). Completed games never change, so
	// the TTL is generous.
	CacheTTLBoxScores int `envconfig:"CACHE_TTL_BOX_SCORES" default:"604800"` // 7 days

	// Team and roster
	TeamID         int      `envconfig:"TEAM_ID" default:"1610612743"` // Denver Nuggets
	TrackedPlayers []string `envconfig:"TRACKED_PLAYERS" default:"203999:JOKIC,1627750:MURRAY"`

	// Historical season window
	SeasonStart int `envconfig:"SEASON_START" default:"2016"`
	SeasonEnd   int `envconfig:"SEASON_END" default:"2023"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Scheduler
	EnableScheduler    bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	InitialSyncEnabled bool   `envconfig:"INITIAL_SYNC_ENABLED" default:"true"`
	DeltaSyncCron      string `envconfig:"DELTA_SYNC_CRON" default:"0 8 * * *"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if in development mode
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.FeatureGroupName == "" {
		return fmt.Errorf("FEATURE_GROUP_NAME is required")
	}

	if c.SeasonStart > c.SeasonEnd {
		return fmt.Errorf("SEASON_START %d is after SEASON_END %d", c.SeasonStart, c.SeasonEnd)
	}

	if _, err := c.Roster(); err != nil {
		return err
	}

	return nil
}

// Roster parses the tracked-player entries. Each entry is "<id>:<surname>";
// entry order fixes the order of the player column blocks in the feature
// table.
func (c *Config) Roster() ([]models.TrackedPlayer, error) {
	roster := make([]models.TrackedPlayer, 0, len(c.TrackedPlayers))
	for _, entry := range c.TrackedPlayers {
		parts := strings.SplitN(strings.TrimSpace(entry), ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid TRACKED_PLAYERS entry %q, want <id>:<surname>", entry)
		}
		id, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid player id in TRACKED_PLAYERS entry %q: %w", entry, err)
		}
		roster = append(roster, models.TrackedPlayer{
			ID:      id,
			Surname: strings.ToUpper(parts[1]),
		})
	}
	return roster, nil
}

// DatabaseDSN returns the PostgreSQL connection string. The feature store
// API key doubles as the database credential when no explicit password is
// configured.
func (c *Config) DatabaseDSN() string {
	password := c.DatabasePassword
	if password == "" {
		password = c.StoreAPIKey
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		password,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or panics on error
// Use this in main() where we want to fail fast
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
