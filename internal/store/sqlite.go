// Package store provides storage backends for CareFlow session state.
//
// This file implements an SQLite-backed store for session settings and the
// matched-doctor cache.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/dhruvj7/careflow/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) GetSettings(ctx context.Context, sessionID string) (models.SessionSettings, error) {
	var st models.SessionSettings
	row := s.db.QueryRowContext(ctx, `SELECT session_id, automation_enabled, intro_seen, created_at, updated_at FROM session_settings WHERE session_id = ?`, sessionID)
	err := row.Scan(&st.SessionID, &st.AutomationEnabled, &st.IntroSeen, &st.CreatedAt, &st.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.SessionSettings{}, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetSettings failed", "error", err, "sessionID", sessionID)
		return models.SessionSettings{}, fmt.Errorf("failed to query settings for %s: %w", sessionID, err)
	}
	return st, nil
}

func (s *SQLiteStore) SetAutomationEnabled(ctx context.Context, sessionID string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO session_settings (session_id, automation_enabled) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET automation_enabled = excluded.automation_enabled, updated_at = CURRENT_TIMESTAMP`,
		sessionID, enabled)
	if err != nil {
		slog.Error("SQLiteStore SetAutomationEnabled failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to update automation flag for %s: %w", sessionID, err)
	}
	slog.Debug("SQLiteStore SetAutomationEnabled succeeded", "sessionID", sessionID, "enabled", enabled)
	return nil
}

func (s *SQLiteStore) SetIntroSeen(ctx context.Context, sessionID string, seen bool) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO session_settings (session_id, intro_seen) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET intro_seen = excluded.intro_seen, updated_at = CURRENT_TIMESTAMP`,
		sessionID, seen)
	if err != nil {
		slog.Error("SQLiteStore SetIntroSeen failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to update intro flag for %s: %w", sessionID, err)
	}
	return nil
}

func (s *SQLiteStore) SaveMatchedDoctors(ctx context.Context, sessionID string, doctors []models.Doctor) error {
	data, err := json.Marshal(doctors)
	if err != nil {
		slog.Error("SQLiteStore SaveMatchedDoctors marshal failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to marshal doctors for %s: %w", sessionID, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO matched_doctors (session_id, doctors) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET doctors = excluded.doctors, updated_at = CURRENT_TIMESTAMP`,
		sessionID, string(data))
	if err != nil {
		slog.Error("SQLiteStore SaveMatchedDoctors failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to save doctors for %s: %w", sessionID, err)
	}
	slog.Debug("SQLiteStore SaveMatchedDoctors succeeded", "sessionID", sessionID, "count", len(doctors))
	return nil
}

func (s *SQLiteStore) GetMatchedDoctors(ctx context.Context, sessionID string) ([]models.Doctor, error) {
	var data string
	row := s.db.QueryRowContext(ctx, `SELECT doctors FROM matched_doctors WHERE session_id = ?`, sessionID)
	err := row.Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetMatchedDoctors failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query doctors for %s: %w", sessionID, err)
	}
	var doctors []models.Doctor
	if err := json.Unmarshal([]byte(data), &doctors); err != nil {
		slog.Error("SQLiteStore GetMatchedDoctors unmarshal failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to unmarshal doctors for %s: %w", sessionID, err)
	}
	return doctors, nil
}

func (s *SQLiteStore) ClearMatchedDoctors(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM matched_doctors WHERE session_id = ?`, sessionID)
	if err != nil {
		slog.Error("SQLiteStore ClearMatchedDoctors failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to clear doctors for %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
