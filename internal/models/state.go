// Package models defines persisted session state structures for CareFlow.
package models

import "time"

// SessionSettings is the per-session state that survives application
// restarts: the automation toggle and the one-time intro explainer flag.
// Navigation queues and pending confirmations are in-memory only.
type SessionSettings struct {
	SessionID         string    `json:"session_id"`
	AutomationEnabled bool      `json:"automation_enabled"`
	IntroSeen         bool      `json:"intro_seen"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
