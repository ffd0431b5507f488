// Package flow implements the navigation orchestration core of CareFlow: it
// classifies backend chat responses, extracts an ordered navigation plan, and
// drives the per-session queue of page transitions with delay and
// confirmation semantics.
package flow

import (
	"context"
	"time"

	"github.com/dhruvj7/careflow/internal/models"
)

// Timer defines the interface for scheduling delayed actions. Scheduling
// returns an id that can be cancelled before the function fires.
type Timer interface {
	// ScheduleAfter schedules a function to run after a delay
	ScheduleAfter(delay time.Duration, fn func()) (string, error)

	// Cancel cancels a scheduled function by id; cancelling an unknown or
	// already-fired id is not an error
	Cancel(id string) error

	// Stop cancels all scheduled functions
	Stop()
}

// Router performs route changes on behalf of the orchestrator. The API layer
// implements it by pushing route commands to the hosting page.
type Router interface {
	Navigate(cmd models.RouteCommand)
}

// Settings persists the per-session flags that survive restarts.
type Settings interface {
	GetSettings(ctx context.Context, sessionID string) (models.SessionSettings, error)
	SetAutomationEnabled(ctx context.Context, sessionID string, enabled bool) error
	SetIntroSeen(ctx context.Context, sessionID string, seen bool) error
}

// Dependencies holds everything injected into an Automation instance.
type Dependencies struct {
	Timer    Timer
	Router   Router
	Settings Settings

	// OnChange, when set, is invoked with a fresh state snapshot after every
	// observable mutation. Used by the API layer to push updates to the page.
	OnChange func(models.NavigationState)
}
