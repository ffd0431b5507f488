// Package store provides storage backends for CareFlow session state.
//
// This file implements a Redis-backed store. Session state is browser-scoped
// and short-lived, so entries carry a TTL rather than living forever.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dhruvj7/careflow/internal/models"
)

// SessionTTL bounds how long abandoned session state lingers in Redis.
const SessionTTL = 24 * time.Hour

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store. The DSN must be a Redis URL, e.g.
// redis://localhost:6379/0.
func NewRedisStore(opts ...Option) (*RedisStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewRedisStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("RedisStore DSN not set")
		return nil, fmt.Errorf("redis DSN not set")
	}

	ropts, err := redis.ParseURL(cfg.DSN)
	if err != nil {
		slog.Error("Failed to parse Redis DSN", "error", err)
		return nil, fmt.Errorf("failed to parse redis DSN: %w", err)
	}

	client := redis.NewClient(ropts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Error("Redis ping failed", "error", err)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	slog.Debug("Redis connection established")

	return &RedisStore{client: client}, nil
}

func settingsKey(sessionID string) string {
	return fmt.Sprintf("careflow:settings:%s", sessionID)
}

func doctorsKey(sessionID string) string {
	return fmt.Sprintf("careflow:doctors:%s", sessionID)
}

func (s *RedisStore) GetSettings(ctx context.Context, sessionID string) (models.SessionSettings, error) {
	data, err := s.client.Get(ctx, settingsKey(sessionID)).Bytes()
	if err == redis.Nil {
		return models.SessionSettings{}, nil
	}
	if err != nil {
		slog.Error("RedisStore GetSettings failed", "error", err, "sessionID", sessionID)
		return models.SessionSettings{}, fmt.Errorf("failed to load settings for %s: %w", sessionID, err)
	}
	var st models.SessionSettings
	if err := json.Unmarshal(data, &st); err != nil {
		slog.Error("RedisStore GetSettings unmarshal failed", "error", err, "sessionID", sessionID)
		return models.SessionSettings{}, fmt.Errorf("failed to decode settings for %s: %w", sessionID, err)
	}
	return st, nil
}

func (s *RedisStore) saveSettings(ctx context.Context, st models.SessionSettings) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal settings for %s: %w", st.SessionID, err)
	}
	if err := s.client.Set(ctx, settingsKey(st.SessionID), data, SessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to persist settings for %s: %w", st.SessionID, err)
	}
	return nil
}

func (s *RedisStore) SetAutomationEnabled(ctx context.Context, sessionID string, enabled bool) error {
	st, err := s.GetSettings(ctx, sessionID)
	if err != nil {
		return err
	}
	now := time.Now()
	if st.SessionID == "" {
		st.SessionID = sessionID
		st.CreatedAt = now
	}
	st.AutomationEnabled = enabled
	st.UpdatedAt = now
	if err := s.saveSettings(ctx, st); err != nil {
		slog.Error("RedisStore SetAutomationEnabled failed", "error", err, "sessionID", sessionID)
		return err
	}
	slog.Debug("RedisStore SetAutomationEnabled succeeded", "sessionID", sessionID, "enabled", enabled)
	return nil
}

func (s *RedisStore) SetIntroSeen(ctx context.Context, sessionID string, seen bool) error {
	st, err := s.GetSettings(ctx, sessionID)
	if err != nil {
		return err
	}
	now := time.Now()
	if st.SessionID == "" {
		st.SessionID = sessionID
		st.CreatedAt = now
	}
	st.IntroSeen = seen
	st.UpdatedAt = now
	if err := s.saveSettings(ctx, st); err != nil {
		slog.Error("RedisStore SetIntroSeen failed", "error", err, "sessionID", sessionID)
		return err
	}
	return nil
}

func (s *RedisStore) SaveMatchedDoctors(ctx context.Context, sessionID string, doctors []models.Doctor) error {
	data, err := json.Marshal(doctors)
	if err != nil {
		slog.Error("RedisStore SaveMatchedDoctors marshal failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to marshal doctors for %s: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, doctorsKey(sessionID), data, SessionTTL).Err(); err != nil {
		slog.Error("RedisStore SaveMatchedDoctors failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to persist doctors for %s: %w", sessionID, err)
	}
	slog.Debug("RedisStore SaveMatchedDoctors succeeded", "sessionID", sessionID, "count", len(doctors))
	return nil
}

func (s *RedisStore) GetMatchedDoctors(ctx context.Context, sessionID string) ([]models.Doctor, error) {
	data, err := s.client.Get(ctx, doctorsKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		slog.Error("RedisStore GetMatchedDoctors failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to load doctors for %s: %w", sessionID, err)
	}
	var doctors []models.Doctor
	if err := json.Unmarshal(data, &doctors); err != nil {
		slog.Error("RedisStore GetMatchedDoctors unmarshal failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to decode doctors for %s: %w", sessionID, err)
	}
	return doctors, nil
}

func (s *RedisStore) ClearMatchedDoctors(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, doctorsKey(sessionID)).Err(); err != nil {
		slog.Error("RedisStore ClearMatchedDoctors failed", "error", err, "sessionID", sessionID)
		return fmt.Errorf("failed to clear doctors for %s: %w", sessionID, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
