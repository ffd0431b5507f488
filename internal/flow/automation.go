package flow

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/dhruvj7/careflow/internal/models"
)

// Delays driving the queue. The transition delay is the human-perceptible
// pause before a decision point surfaces; the settle delay gives the user a
// moment on a freshly opened page before implicit completion; the advance
// delay separates completion from presenting the next step; the fallback
// delay auto-completes a hospital-nav step whose destination page is the chat
// view itself and therefore never produces a distinct route change.
const (
	TransitionDelay = 3500 * time.Millisecond
	SettleDelay     = 1500 * time.Millisecond
	AdvanceDelay    = 800 * time.Millisecond
	FallbackDelay   = 8 * time.Second
)

// Automation is the per-session navigation orchestrator: it turns classified
// backend responses into an ordered step queue and drives transitions between
// steps with delay and confirmation semantics depending on the automation
// mode. All methods are safe for concurrent use.
type Automation struct {
	sessionID string
	deps      Dependencies

	mu      sync.Mutex
	steps   []models.NavigationStep
	current int
	plan    uint64 // generation guard: timers from discarded plans are ignored

	// planAuto is the automation mode captured when the plan was seeded; a
	// later toggle takes effect on the next classified response only.
	planAuto bool

	pendingNav        *models.NavigationRequest
	pendingTransition *models.StepTransition
	pendingSlot       *models.SlotConfirmation

	transitionTimer string
	settleTimer     string
	advanceTimer    string
	fallbackTimer   string
	navTimer        string
}

// NewAutomation creates the orchestrator for one chat session.
func NewAutomation(sessionID string, deps Dependencies) *Automation {
	slog.Debug("Creating Automation", "sessionID", sessionID)
	return &Automation{sessionID: sessionID, deps: deps}
}

// HandleResponse feeds one classified backend response into the orchestrator.
// A response that seeds a non-empty plan discards the previous plan
// unconditionally; any response clears pending decision surfaces.
func (a *Automation) HandleResponse(ctx context.Context, resp *models.ChatResponse, utterance string) {
	auto := a.automationEnabled(ctx)

	a.mu.Lock()
	// A new incoming response invalidates whatever decision was awaiting the
	// user.
	a.clearPendingLocked()

	steps := ExtractSteps(resp, utterance, auto)
	switch {
	case len(steps) > 0:
		slog.Info("Automation.HandleResponse: seeding plan", "sessionID", a.sessionID, "steps", len(steps), "auto", auto)
		a.seedLocked(steps, auto)
	case resp != nil && resp.Result.NeedsNavigation() && resp.Result.ExplicitTarget() != "":
		// Single-step legacy path: no plan, just a simple delayed navigation
		// or confirmation bubble.
		req := &models.NavigationRequest{
			Target:  resp.Result.ExplicitTarget(),
			Intent:  resp.Intent,
			Message: resp.Result.Message,
		}
		slog.Info("Automation.HandleResponse: simple navigation", "sessionID", a.sessionID, "target", req.Target, "auto", auto)
		if auto {
			a.scheduleNavigationLocked(req)
		} else {
			a.scheduleConfirmationLocked(req)
		}
	default:
		slog.Debug("Automation.HandleResponse: no actionable signals", "sessionID", a.sessionID)
	}
	a.mu.Unlock()
	a.changed()
}

// seedLocked replaces the queue with a fresh plan and presents its first step.
func (a *Automation) seedLocked(steps []models.NavigationStep, auto bool) {
	a.plan++
	a.cancelTimersLocked()
	a.steps = steps
	a.current = 0
	a.planAuto = auto
	a.presentLocked(0, true)
}

// presentLocked enters AwaitingTransition(i): after the transition delay a
// decision point surfaces to the user. A hospital-nav step with nothing to
// show also arms the fallback auto-completion timer so a failed lookup does
// not stall the rest of the plan.
func (a *Automation) presentLocked(i int, first bool) {
	plan := a.plan
	_ = a.deps.Timer.Cancel(a.transitionTimer)
	a.transitionTimer, _ = a.deps.Timer.ScheduleAfter(TransitionDelay, func() {
		a.surfaceTransition(plan, i, first)
	})

	step := a.steps[i]
	if step.ID == models.StepHospitalNav && step.Data.Destination == "" && len(step.Data.RouteSteps) == 0 {
		_ = a.deps.Timer.Cancel(a.fallbackTimer)
		a.fallbackTimer, _ = a.deps.Timer.ScheduleAfter(FallbackDelay, func() {
			a.fallbackComplete(plan, i)
		})
	}
}

func (a *Automation) surfaceTransition(plan uint64, i int, first bool) {
	a.mu.Lock()
	if plan != a.plan || i != a.current || i >= len(a.steps) || a.steps[i].Completed {
		a.mu.Unlock()
		return
	}
	a.pendingTransition = &models.StepTransition{
		StepIndex: i,
		Step:      a.steps[i],
		First:     first,
		Auto:      a.planAuto,
	}
	slog.Debug("Automation.surfaceTransition: decision point surfaced", "sessionID", a.sessionID, "step", a.steps[i].ID, "auto", a.planAuto)
	a.mu.Unlock()
	a.changed()
}

// ConfirmStepTransition acknowledges the pending transition popup and
// performs the route change to the step's target, attaching the step's data.
func (a *Automation) ConfirmStepTransition() error {
	a.mu.Lock()
	pt := a.pendingTransition
	if pt == nil {
		a.mu.Unlock()
		return models.ErrNoPendingRequest
	}
	a.pendingTransition = nil
	if pt.StepIndex >= len(a.steps) {
		a.mu.Unlock()
		return models.ErrNoPendingRequest
	}
	step := a.steps[pt.StepIndex]
	cmd := routeCommandForStep(step)

	// Manual-mode doctors step with a resolved first slot: the list page
	// offers a slot confirmation instead of auto-booking.
	if step.ID == models.StepDoctors && step.Data.Doctor != nil && step.Data.Slot != nil {
		a.pendingSlot = &models.SlotConfirmation{Doctor: *step.Data.Doctor, Slot: *step.Data.Slot}
	}
	a.mu.Unlock()

	slog.Info("Automation.ConfirmStepTransition: navigating", "sessionID", a.sessionID, "step", step.ID, "path", cmd.Path)
	a.deps.Router.Navigate(cmd)
	a.changed()
	return nil
}

// StayOnCurrentStep declines the pending transition. The queue stays parked
// at the current step with no further automatic action.
func (a *Automation) StayOnCurrentStep() {
	a.mu.Lock()
	a.pendingTransition = nil
	_ = a.deps.Timer.Cancel(a.fallbackTimer)
	a.fallbackTimer = ""
	a.mu.Unlock()
	slog.Debug("Automation.StayOnCurrentStep: transition declined", "sessionID", a.sessionID)
	a.changed()
}

// HandleRouteChange is the implicit completion source: the hosting page
// reports every route change here. Arriving at the current step's target
// marks it completed after a short settle delay; arriving at the home route
// abandons the whole plan.
func (a *Automation) HandleRouteChange(path string) {
	a.mu.Lock()
	if path == RouteHome {
		slog.Info("Automation.HandleRouteChange: home route, abandoning plan", "sessionID", a.sessionID)
		a.resetLocked()
		a.mu.Unlock()
		a.changed()
		return
	}
	if a.current >= len(a.steps) {
		a.mu.Unlock()
		return
	}
	step := a.steps[a.current]
	if step.Completed || !RouteMatchesStep(path, step) {
		// Re-observing a matching route on an already-completed step must not
		// re-trigger completion.
		a.mu.Unlock()
		return
	}
	plan, i := a.plan, a.current
	_ = a.deps.Timer.Cancel(a.settleTimer)
	a.settleTimer, _ = a.deps.Timer.ScheduleAfter(SettleDelay, func() {
		a.settleComplete(plan, i)
	})
	a.mu.Unlock()
}

func (a *Automation) settleComplete(plan uint64, i int) {
	a.mu.Lock()
	if plan != a.plan || i != a.current || i >= len(a.steps) || a.steps[i].Completed {
		a.mu.Unlock()
		return
	}
	a.completeLocked()
	a.mu.Unlock()
	a.changed()
}

func (a *Automation) fallbackComplete(plan uint64, i int) {
	a.mu.Lock()
	if plan != a.plan || i != a.current || i >= len(a.steps) || a.steps[i].Completed {
		a.mu.Unlock()
		return
	}
	slog.Debug("Automation.fallbackComplete: auto-completing hospital nav step", "sessionID", a.sessionID)
	a.completeLocked()
	a.mu.Unlock()
	a.changed()
}

// CompleteCurrentStep is the explicit "I am done with this step" signal from
// hosting pages. Idempotent: a no-op when the queue is empty or the current
// step is already completed.
func (a *Automation) CompleteCurrentStep() {
	a.mu.Lock()
	if a.current >= len(a.steps) || a.steps[a.current].Completed {
		a.mu.Unlock()
		return
	}
	a.completeLocked()
	a.mu.Unlock()
	a.changed()
}

// completeLocked flips the current step's completed flag and schedules the
// advance after a short delay.
func (a *Automation) completeLocked() {
	a.steps[a.current].Completed = true
	_ = a.deps.Timer.Cancel(a.settleTimer)
	a.settleTimer = ""
	_ = a.deps.Timer.Cancel(a.fallbackTimer)
	a.fallbackTimer = ""

	slog.Info("Automation: step completed", "sessionID", a.sessionID, "step", a.steps[a.current].ID, "index", a.current)

	plan := a.plan
	_ = a.deps.Timer.Cancel(a.advanceTimer)
	a.advanceTimer, _ = a.deps.Timer.ScheduleAfter(AdvanceDelay, func() {
		a.advance(plan)
	})
}

// advance moves to the next step, or clears the queue when exhausted.
// Advancing past the last step is the terminal transition to Idle, not an
// error.
func (a *Automation) advance(plan uint64) {
	a.mu.Lock()
	if plan != a.plan {
		a.mu.Unlock()
		return
	}
	a.current++
	a.pendingTransition = nil
	a.pendingSlot = nil
	if a.current < len(a.steps) {
		slog.Debug("Automation.advance: presenting next step", "sessionID", a.sessionID, "index", a.current)
		a.presentLocked(a.current, false)
	} else {
		slog.Info("Automation.advance: plan complete", "sessionID", a.sessionID)
		a.resetLocked()
	}
	a.mu.Unlock()
	a.changed()
}

// --- Simple legacy path ---

// scheduleNavigationLocked performs the navigation after the transition delay
// without asking for confirmation (automation on).
func (a *Automation) scheduleNavigationLocked(req *models.NavigationRequest) {
	plan := a.plan
	_ = a.deps.Timer.Cancel(a.navTimer)
	a.navTimer, _ = a.deps.Timer.ScheduleAfter(TransitionDelay, func() {
		a.mu.Lock()
		if plan != a.plan {
			a.mu.Unlock()
			return
		}
		a.mu.Unlock()
		a.deps.Router.Navigate(models.RouteCommand{Path: RouteForTarget(req.Target)})
	})
}

// scheduleConfirmationLocked surfaces the confirmation bubble after the
// transition delay (automation off).
func (a *Automation) scheduleConfirmationLocked(req *models.NavigationRequest) {
	plan := a.plan
	_ = a.deps.Timer.Cancel(a.navTimer)
	a.navTimer, _ = a.deps.Timer.ScheduleAfter(TransitionDelay, func() {
		a.mu.Lock()
		if plan != a.plan {
			a.mu.Unlock()
			return
		}
		a.pendingNav = req
		a.mu.Unlock()
		a.changed()
	})
}

// ConfirmNavigation accepts the pending simple navigation.
func (a *Automation) ConfirmNavigation() error {
	a.mu.Lock()
	req := a.pendingNav
	if req == nil {
		a.mu.Unlock()
		return models.ErrNoPendingRequest
	}
	a.pendingNav = nil
	_ = a.deps.Timer.Cancel(a.navTimer)
	a.navTimer = ""
	a.mu.Unlock()

	a.deps.Router.Navigate(models.RouteCommand{Path: RouteForTarget(req.Target)})
	a.changed()
	return nil
}

// CancelNavigation declines the pending simple navigation.
func (a *Automation) CancelNavigation() {
	a.mu.Lock()
	a.pendingNav = nil
	_ = a.deps.Timer.Cancel(a.navTimer)
	a.navTimer = ""
	a.mu.Unlock()
	a.changed()
}

// ConfirmSlotAndBook accepts the pending slot confirmation and routes to the
// booking page with the doctor and slot identifiers attached. The doctors
// step it belongs to is marked completed so the plan can progress.
func (a *Automation) ConfirmSlotAndBook() error {
	a.mu.Lock()
	sc := a.pendingSlot
	if sc == nil {
		a.mu.Unlock()
		return models.ErrNoPendingRequest
	}
	a.pendingSlot = nil
	if a.current < len(a.steps) && a.steps[a.current].ID == models.StepDoctors && !a.steps[a.current].Completed {
		a.completeLocked()
	}
	a.mu.Unlock()

	a.deps.Router.Navigate(models.RouteCommand{
		Path: RouteBooking,
		Params: map[string]string{
			"doctorId": strconv.Itoa(sc.Doctor.ID),
			"slotId":   strconv.Itoa(sc.Slot.ID),
		},
	})
	a.changed()
	return nil
}

// --- Mode operations ---

// EnableAutomation turns the persisted automation flag on. Takes effect on
// the next classified response.
func (a *Automation) EnableAutomation(ctx context.Context) error {
	return a.deps.Settings.SetAutomationEnabled(ctx, a.sessionID, true)
}

// DisableAutomation turns the persisted automation flag off.
func (a *Automation) DisableAutomation(ctx context.Context) error {
	return a.deps.Settings.SetAutomationEnabled(ctx, a.sessionID, false)
}

// ToggleAutomation flips the persisted automation flag.
func (a *Automation) ToggleAutomation(ctx context.Context) error {
	return a.deps.Settings.SetAutomationEnabled(ctx, a.sessionID, !a.automationEnabled(ctx))
}

// MarkIntroSeen records that the user has seen the automation explainer.
func (a *Automation) MarkIntroSeen(ctx context.Context) error {
	return a.deps.Settings.SetIntroSeen(ctx, a.sessionID, true)
}

// --- Observable state ---

// Snapshot returns a read-only view of everything the UI layer renders.
func (a *Automation) Snapshot(ctx context.Context) models.NavigationState {
	settings, err := a.deps.Settings.GetSettings(ctx, a.sessionID)
	if err != nil {
		slog.Error("Automation.Snapshot: settings read failed", "error", err, "sessionID", a.sessionID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	steps := make([]models.NavigationStep, len(a.steps))
	copy(steps, a.steps)
	return models.NavigationState{
		AutomationEnabled:       settings.AutomationEnabled,
		IntroSeen:               settings.IntroSeen,
		Steps:                   steps,
		CurrentStepIndex:        a.current,
		PendingNavigation:       a.pendingNav,
		PendingStepTransition:   a.pendingTransition,
		PendingSlotConfirmation: a.pendingSlot,
	}
}

// Teardown cancels every pending timer; called when the session is evicted.
func (a *Automation) Teardown() {
	a.mu.Lock()
	a.resetLocked()
	a.mu.Unlock()
}

// --- Internal helpers ---

func (a *Automation) automationEnabled(ctx context.Context) bool {
	settings, err := a.deps.Settings.GetSettings(ctx, a.sessionID)
	if err != nil {
		slog.Error("Automation: settings read failed, assuming manual mode", "error", err, "sessionID", a.sessionID)
		return false
	}
	return settings.AutomationEnabled
}

func (a *Automation) clearPendingLocked() {
	a.pendingNav = nil
	a.pendingTransition = nil
	a.pendingSlot = nil
	_ = a.deps.Timer.Cancel(a.navTimer)
	a.navTimer = ""
}

func (a *Automation) resetLocked() {
	a.plan++
	a.cancelTimersLocked()
	a.steps = nil
	a.current = 0
	a.clearPendingLocked()
}

func (a *Automation) cancelTimersLocked() {
	for _, id := range []string{a.transitionTimer, a.settleTimer, a.advanceTimer, a.fallbackTimer, a.navTimer} {
		_ = a.deps.Timer.Cancel(id)
	}
	a.transitionTimer = ""
	a.settleTimer = ""
	a.advanceTimer = ""
	a.fallbackTimer = ""
	a.navTimer = ""
}

func (a *Automation) changed() {
	if a.deps.OnChange == nil {
		return
	}
	a.deps.OnChange(a.Snapshot(context.Background()))
}
