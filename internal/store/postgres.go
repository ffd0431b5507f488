// Package store provides storage backends for CareFlow session state.
//
// This file implements a PostgreSQL-backed store for session settings and the
// matched-doctor cache.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/dhruvj7/careflow/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetSettings(ctx context.Context, sessionID string) (models.SessionSettings, error) {
	var st models.SessionSettings
	row := s.db.QueryRowContext(ctx, `SELECT session_id, automation_enabled, intro_seen, created_at, updated_at FROM session_settings WHERE session_id = $1`, sessionID)
	err := row.Scan(&st.SessionID, &st.AutomationEnabled, &st.IntroSeen, &st.CreatedAt, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.SessionSettings{}, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetSettings failed", "error", err, "sessionID", sessionID)
		return models.SessionSettings{}, fmt.Errorf("failed to query settings for %s: %w", sessionID, err)
	}
	return st, nil
}

func (s *PostgresStore) SetAutomationEnabled(ctx context.Context, sessionID string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO session_settings (session_id, automation_enabled) VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET automation_enabled = EXCLUDED.automation_enabled, updated_at = NOW()`,
		sessionID, enabled)
	if err != nil {
		slog.Error("PostgresStore SetAutomationEnabled failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to update automation flag for %s: %w", sessionID, err)
	}
	slog.Debug("PostgresStore SetAutomationEnabled succeeded", "sessionID", sessionID, "enabled", enabled)
	return nil
}

func (s *PostgresStore) SetIntroSeen(ctx context.Context, sessionID string, seen bool) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO session_settings (session_id, intro_seen) VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET intro_seen = EXCLUDED.intro_seen, updated_at = NOW()`,
		sessionID, seen)
	if err != nil {
		slog.Error("PostgresStore SetIntroSeen failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to update intro flag for %s: %w", sessionID, err)
	}
	return nil
}

func (s *PostgresStore) SaveMatchedDoctors(ctx context.Context, sessionID string, doctors []models.Doctor) error {
	data, err := json.Marshal(doctors)
	if err != nil {
		slog.Error("PostgresStore SaveMatchedDoctors marshal failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to marshal doctors for %s: %w", sessionID, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO matched_doctors (session_id, doctors) VALUES ($1, $2)
		ON CONFLICT (session_id) DO UPDATE SET doctors = EXCLUDED.doctors, updated_at = NOW()`,
		sessionID, data)
	if err != nil {
		slog.Error("PostgresStore SaveMatchedDoctors failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to save doctors for %s: %w", sessionID, err)
	}
	slog.Debug("PostgresStore SaveMatchedDoctors succeeded", "sessionID", sessionID, "count", len(doctors))
	return nil
}

func (s *PostgresStore) GetMatchedDoctors(ctx context.Context, sessionID string) ([]models.Doctor, error) {
	var data []byte
	row := s.db.QueryRowContext(ctx, `SELECT doctors FROM matched_doctors WHERE session_id = $1`, sessionID)
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetMatchedDoctors failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query doctors for %s: %w", sessionID, err)
	}
	var doctors []models.Doctor
	if err := json.Unmarshal(data, &doctors); err != nil {
		slog.Error("PostgresStore GetMatchedDoctors unmarshal failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to unmarshal doctors for %s: %w", sessionID, err)
	}
	return doctors, nil
}

func (s *PostgresStore) ClearMatchedDoctors(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM matched_doctors WHERE session_id = $1`, sessionID)
	if err != nil {
		slog.Error("PostgresStore ClearMatchedDoctors failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to clear doctors for %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
