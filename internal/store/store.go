// Package store provides storage backends for CareFlow session state.
//
// Only two things survive an application restart: the per-session settings
// flags (automation mode, intro-seen) and the matched-doctor cache the doctor
// list and booking pages read. Backends: in-memory, SQLite, PostgreSQL and
// Redis.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/dhruvj7/careflow/internal/models"
)

// Store is the persistence interface consumed by the orchestration core and
// the API layer. A missing session yields zero-value settings, not an error.
type Store interface {
	GetSettings(ctx context.Context, sessionID string) (models.SessionSettings, error)
	SetAutomationEnabled(ctx context.Context, sessionID string, enabled bool) error
	SetIntroSeen(ctx context.Context, sessionID string, seen bool) error

	SaveMatchedDoctors(ctx context.Context, sessionID string, doctors []models.Doctor) error
	GetMatchedDoctors(ctx context.Context, sessionID string) ([]models.Doctor, error)
	ClearMatchedDoctors(ctx context.Context, sessionID string) error

	Close() error
}

// InMemoryStore is a simple in-memory store, used by tests and as the default
// backend when no DSN is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	settings map[string]models.SessionSettings
	doctors  map[string][]models.Doctor
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		settings: make(map[string]models.SessionSettings),
		doctors:  make(map[string][]models.Doctor),
	}
}

func (s *InMemoryStore) GetSettings(ctx context.Context, sessionID string) (models.SessionSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings[sessionID], nil
}

func (s *InMemoryStore) SetAutomationEnabled(ctx context.Context, sessionID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.settings[sessionID]
	now := time.Now()
	if cur.SessionID == "" {
		cur.SessionID = sessionID
		cur.CreatedAt = now
	}
	cur.AutomationEnabled = enabled
	cur.UpdatedAt = now
	s.settings[sessionID] = cur
	return nil
}

func (s *InMemoryStore) SetIntroSeen(ctx context.Context, sessionID string, seen bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.settings[sessionID]
	now := time.Now()
	if cur.SessionID == "" {
		cur.SessionID = sessionID
		cur.CreatedAt = now
	}
	cur.IntroSeen = seen
	cur.UpdatedAt = now
	s.settings[sessionID] = cur
	return nil
}

func (s *InMemoryStore) SaveMatchedDoctors(ctx context.Context, sessionID string, doctors []models.Doctor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]models.Doctor, len(doctors))
	copy(cp, doctors)
	s.doctors[sessionID] = cp
	return nil
}

func (s *InMemoryStore) GetMatchedDoctors(ctx context.Context, sessionID string) ([]models.Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.doctors[sessionID]
	cp := make([]models.Doctor, len(stored))
	copy(cp, stored)
	return cp, nil
}

func (s *InMemoryStore) ClearMatchedDoctors(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.doctors, sessionID)
	return nil
}

func (s *InMemoryStore) Close() error { return nil }
