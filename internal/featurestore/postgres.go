// Package featurestore persists the canonical per-game feature table.
// A feature group is a Postgres table keyed by game_id, living in a schema
// named after the store project. Inserts are append-only; existing rows are
// never rewritten.
package featurestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"nbasync/featurepipe/internal/frame"
	"nbasync/featurepipe/internal/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// ErrGroupNotFound signals that the feature group has never been written.
// Callers treat it as the first-run condition, not a failure.
var ErrGroupNotFound = errors.New("feature group not found")

// Config holds database configuration
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// PostgresStore is the offline feature store backend.
type PostgresStore struct {
	Pool *pgxpool.Pool

	project string
	group   string
}

// NewPostgresStore creates a connection pool and binds it to one feature
// group (project schema + group table).
func NewPostgresStore(ctx context.Context, cfg Config, project, group string) (*PostgresStore, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
		cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Str("project", project).
		Str("feature_group", group).
		Msg("Connected to feature store backend")

	return &PostgresStore{Pool: pool, project: project, group: group}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	if s.Pool != nil {
		s.Pool.Close()
		log.Info().Msg("Feature store connection pool closed")
	}
}

// Health checks if the backend is reachable.
func (s *PostgresStore) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.Pool.Ping(ctx); err != nil {
		return fmt.Errorf("feature store health check failed: %w", err)
	}

	return nil
}

func (s *PostgresStore) qualifiedName() string {
	return pgx.Identifier{s.project, s.group}.Sanitize()
}

// groupMissing reports whether err means the schema or table does not
// exist yet.
func groupMissing(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// undefined_table / invalid_schema_name
		return pgErr.Code == "42P01" || pgErr.Code == "3F000"
	}
	return false
}

// Read returns the whole feature group sorted ascending by game date.
// Returns ErrGroupNotFound when the group has never been written.
func (s *PostgresStore) Read(ctx context.Context) (*frame.Frame, error) {
	query := fmt.Sprintf(`SELECT * FROM %s ORDER BY game_date`, s.qualifiedName())

	rows, err := s.Pool.Query(ctx, query)
	if err != nil {
		if groupMissing(err) {
			metrics.RecordStoreRead("not_found")
			return nil, ErrGroupNotFound
		}
		metrics.RecordStoreRead("error")
		return nil, fmt.Errorf("failed to read feature group %s: %w", s.group, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, fd := range fields {
		cols[i] = string(fd.Name)
	}

	out := frame.New(cols...)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			metrics.RecordStoreRead("error")
			return nil, fmt.Errorf("failed to scan feature row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = values[i]
		}
		out.Append(row)
	}

	if err := rows.Err(); err != nil {
		metrics.RecordStoreRead("error")
		return nil, fmt.Errorf("error iterating feature rows: %w", err)
	}

	metrics.RecordStoreRead("success")
	log.Debug().Int("rows", out.Len()).Str("feature_group", s.group).Msg("Feature group read")
	return out, nil
}

// columnType maps a canonical column name to its SQL type. Identifier and
// date columns are text, everything else (stats and flags) is integral.
func columnType(col string) string {
	switch col {
	case "game_id", "game_date", "season_id":
		return "TEXT"
	default:
		return "BIGINT"
	}
}

// ensureGroup creates the project schema and group table on first write,
// deriving the table definition from the frame's column list.
func (s *PostgresStore) ensureGroup(ctx context.Context, f *frame.Frame) error {
	schemaSQL := fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pgx.Identifier{s.project}.Sanitize())
	if _, err := s.Pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create project schema: %w", err)
	}

	defs := make([]string, 0, len(f.Columns()))
	for _, col := range f.Columns() {
		def := fmt.Sprintf("%s %s", pgx.Identifier{col}.Sanitize(), columnType(col))
		if col == "game_id" {
			def += " PRIMARY KEY"
		}
		defs = append(defs, def)
	}

	tableSQL := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (%s)`,
		s.qualifiedName(),
		strings.Join(defs, ", "),
	)
	if _, err := s.Pool.Exec(ctx, tableSQL); err != nil {
		return fmt.Errorf("failed to create feature group table: %w", err)
	}

	return nil
}

// Insert appends the frame's rows to the feature group, creating it on
// first write. Rows whose game_id already exists are skipped; the store is
// append-only and game_id is unique across the whole table.
func (s *PostgresStore) Insert(ctx context.Context, f *frame.Frame) error {
	if f == nil || f.Len() == 0 {
		return nil
	}

	if err := s.ensureGroup(ctx, f); err != nil {
		return err
	}

	cols := f.Columns()
	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	insertSQL := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (game_id) DO NOTHING`,
		s.qualifiedName(),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	batch := &pgx.Batch{}
	for i := 0; i < f.Len(); i++ {
		args := make([]any, len(cols))
		for j, c := range cols {
			args[j] = f.Value(i, c)
		}
		batch.Queue(insertSQL, args...)
	}

	results := s.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < f.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert feature row: %w", err)
		}
	}

	metrics.RecordRowsAppended(f.Len())
	log.Info().
		Int("rows", f.Len()).
		Str("feature_group", s.group).
		Msg("Feature rows appended")

	return nil
}
