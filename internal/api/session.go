package api

import (
	"github.com/dhruvj7/careflow/internal/flow"
	"github.com/dhruvj7/careflow/internal/store"
)

// session bundles the per-session orchestrator with its timer and the
// WebSocket hub that delivers its output to the page.
type session struct {
	id         string
	timer      *flow.SimpleTimer
	hub        *wsHub
	automation *flow.Automation
}

func newSession(id string, st store.Store) *session {
	sess := &session{
		id:    id,
		timer: flow.NewSimpleTimer(),
		hub:   newWSHub(id),
	}
	sess.automation = flow.NewAutomation(id, flow.Dependencies{
		Timer:    sess.timer,
		Router:   sess.hub,
		Settings: st,
		OnChange: sess.hub.pushState,
	})
	return sess
}

func (s *session) teardown() {
	s.automation.Teardown()
	s.hub.close()
}
