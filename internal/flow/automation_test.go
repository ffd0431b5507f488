package flow

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dhruvj7/careflow/internal/models"
)

// fakeTimer implements Timer with manually fired entries so tests advance
// virtual time deterministically.
type fakeTimer struct {
	mu     sync.Mutex
	nextID int
	calls  []*fakeCall
}

type fakeCall struct {
	id    string
	delay time.Duration
	fn    func()
}

func newFakeTimer() *fakeTimer { return &fakeTimer{} }

func (t *fakeTimer) ScheduleAfter(delay time.Duration, fn func()) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	id := fmt.Sprintf("fake_%d", t.nextID)
	t.calls = append(t.calls, &fakeCall{id: id, delay: delay, fn: fn})
	return id, nil
}

func (t *fakeTimer) Cancel(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, c := range t.calls {
		if c.id == id {
			t.calls = append(t.calls[:i], t.calls[i+1:]...)
			break
		}
	}
	return nil
}

func (t *fakeTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = nil
}

func (t *fakeTimer) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// fireDelay pops the first pending entry with the given delay and runs it.
func (t *fakeTimer) fireDelay(tt *testing.T, delay time.Duration) {
	tt.Helper()
	t.mu.Lock()
	var fn func()
	for i, c := range t.calls {
		if c.delay == delay {
			fn = c.fn
			t.calls = append(t.calls[:i], t.calls[i+1:]...)
			break
		}
	}
	t.mu.Unlock()
	if fn == nil {
		tt.Fatalf("no pending timer with delay %v", delay)
	}
	fn()
}

// takeDelay removes the first pending entry with the given delay and returns
// its function without running it, simulating a stale timer firing later.
func (t *fakeTimer) takeDelay(tt *testing.T, delay time.Duration) func() {
	tt.Helper()
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, c := range t.calls {
		if c.delay == delay {
			t.calls = append(t.calls[:i], t.calls[i+1:]...)
			return c.fn
		}
	}
	tt.Fatalf("no pending timer with delay %v", delay)
	return nil
}

// fakeRouter records outbound route commands.
type fakeRouter struct {
	mu   sync.Mutex
	cmds []models.RouteCommand
}

func (r *fakeRouter) Navigate(cmd models.RouteCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, cmd)
}

func (r *fakeRouter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cmds)
}

func (r *fakeRouter) last(t *testing.T) models.RouteCommand {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cmds) == 0 {
		t.Fatal("no navigation performed")
	}
	return r.cmds[len(r.cmds)-1]
}

// memorySettings implements Settings in memory.
type memorySettings struct {
	mu sync.Mutex
	m  map[string]models.SessionSettings
}

func newMemorySettings() *memorySettings {
	return &memorySettings{m: make(map[string]models.SessionSettings)}
}

func (s *memorySettings) GetSettings(ctx context.Context, sessionID string) (models.SessionSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[sessionID], nil
}

func (s *memorySettings) SetAutomationEnabled(ctx context.Context, sessionID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.m[sessionID]
	cur.SessionID = sessionID
	cur.AutomationEnabled = enabled
	s.m[sessionID] = cur
	return nil
}

func (s *memorySettings) SetIntroSeen(ctx context.Context, sessionID string, seen bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.m[sessionID]
	cur.SessionID = sessionID
	cur.IntroSeen = seen
	s.m[sessionID] = cur
	return nil
}

func newTestAutomation() (*Automation, *fakeTimer, *fakeRouter, *memorySettings) {
	timer := newFakeTimer()
	router := &fakeRouter{}
	settings := newMemorySettings()
	a := NewAutomation("sess1", Dependencies{Timer: timer, Router: router, Settings: settings})
	return a, timer, router, settings
}

func feverResponse() *models.ChatResponse {
	return &models.ChatResponse{
		SessionID: "sess1",
		Intent:    models.IntentList{"symptom_analysis"},
		Result: &models.Result{
			Message: "You may have a viral infection.",
			SubResults: []models.SubResult{
				{
					Intent: "symptom_analysis",
					CareOptions: &models.CareOptions{
						MatchedDoctors: []models.Doctor{
							{ID: 1, Name: "Dr. Rao", AvailableSlots: []models.Slot{{ID: 10, Date: "2026-09-01", Time: "09:00"}}},
							{ID: 2, Name: "Dr. Iyer"},
						},
					},
				},
			},
		},
	}
}

func TestManualSingleStepDecline(t *testing.T) {
	a, timer, router, _ := newTestAutomation()
	ctx := context.Background()

	a.HandleResponse(ctx, feverResponse(), "I have a fever")

	snap := a.Snapshot(ctx)
	if len(snap.Steps) != 1 || snap.Steps[0].ID != models.StepDoctors {
		t.Fatalf("expected a single doctors step, got %+v", snap.Steps)
	}
	if snap.PendingStepTransition != nil {
		t.Fatal("transition should not surface before the delay")
	}

	timer.fireDelay(t, TransitionDelay)
	snap = a.Snapshot(ctx)
	if snap.PendingStepTransition == nil {
		t.Fatal("expected a pending transition after the delay")
	}
	if snap.PendingStepTransition.Auto {
		t.Error("manual mode should surface a confirmation bubble, not a notice")
	}
	if snap.PendingStepTransition.Step.ID != models.StepDoctors {
		t.Errorf("transition should reference the doctors step, got %s", snap.PendingStepTransition.Step.ID)
	}

	a.StayOnCurrentStep()
	snap = a.Snapshot(ctx)
	if snap.PendingStepTransition != nil {
		t.Error("decline should clear the pending transition")
	}
	if snap.CurrentStepIndex != 0 {
		t.Errorf("decline should leave the queue at index 0, got %d", snap.CurrentStepIndex)
	}
	if router.count() != 0 {
		t.Error("decline must not navigate")
	}
}

func TestManualSingleStepConfirmAndComplete(t *testing.T) {
	a, timer, router, _ := newTestAutomation()
	ctx := context.Background()

	a.HandleResponse(ctx, feverResponse(), "I have a fever")
	timer.fireDelay(t, TransitionDelay)

	if err := a.ConfirmStepTransition(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := router.last(t).Path; got != RouteDoctors {
		t.Errorf("expected navigation to %s, got %s", RouteDoctors, got)
	}

	// Page reports arrival, step completes after the settle delay.
	a.HandleRouteChange(RouteDoctors)
	timer.fireDelay(t, SettleDelay)
	timer.fireDelay(t, AdvanceDelay)

	snap := a.Snapshot(ctx)
	if len(snap.Steps) != 0 {
		t.Errorf("single-step plan should reach idle, got %d steps", len(snap.Steps))
	}
}

func TestRouteObservationIsIdempotent(t *testing.T) {
	a, timer, _, _ := newTestAutomation()
	ctx := context.Background()

	a.HandleResponse(ctx, feverResponse(), "I have a fever")
	timer.fireDelay(t, TransitionDelay)
	if err := a.ConfirmStepTransition(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a.HandleRouteChange(RouteDoctors)
	timer.fireDelay(t, SettleDelay)

	// Same route observed again while the step is already completed.
	a.HandleRouteChange(RouteDoctors)
	for _, c := range timer.calls {
		if c.delay == SettleDelay {
			t.Fatal("re-observing a matching route must not schedule another settle timer")
		}
	}
}

func TestCompleteCurrentStepIdempotent(t *testing.T) {
	a, timer, _, _ := newTestAutomation()
	ctx := context.Background()

	a.HandleResponse(ctx, feverResponse(), "I have a fever")
	a.CompleteCurrentStep()
	before := timer.pending()

	a.CompleteCurrentStep()
	if timer.pending() != before {
		t.Error("second completion must not reschedule any timer")
	}
	snap := a.Snapshot(ctx)
	if snap.CurrentStepIndex != 0 {
		t.Errorf("index must not change before the advance fires, got %d", snap.CurrentStepIndex)
	}
}

func TestReseedDiscardsStaleTimers(t *testing.T) {
	a, timer, _, _ := newTestAutomation()
	ctx := context.Background()

	a.HandleResponse(ctx, feverResponse(), "I have a fever")
	stale := timer.takeDelay(t, TransitionDelay)

	// New response replaces the plan before the old timer fires.
	a.HandleResponse(ctx, &models.ChatResponse{
		Intent: models.IntentList{"insurance_verification"},
		Result: &models.Result{},
	}, "verify insurance")

	stale()

	snap := a.Snapshot(ctx)
	if snap.PendingStepTransition != nil {
		t.Error("stale timer must not surface a transition for the new plan")
	}
	if len(snap.Steps) != 1 || snap.Steps[0].ID != models.StepInsurance {
		t.Errorf("new plan should be intact, got %+v", snap.Steps)
	}
}

func TestHospitalNavFallbackAdvancesToInsurance(t *testing.T) {
	a, timer, _, _ := newTestAutomation()
	ctx := context.Background()

	resp := &models.ChatResponse{
		Intent: models.IntentList{"hospital_navigation", "insurance_verification"},
		Result: &models.Result{Message: "I could not find that location."},
	}
	a.HandleResponse(ctx, resp, "how do I get to the cafetaria")

	snap := a.Snapshot(ctx)
	if len(snap.Steps) != 2 {
		t.Fatalf("expected hospital nav and insurance steps, got %+v", snap.Steps)
	}
	if snap.Steps[0].ID != models.StepHospitalNav || snap.Steps[1].ID != models.StepInsurance {
		t.Fatalf("unexpected step order: %+v", snap.Steps)
	}
	if snap.Steps[0].Data.Destination != "" {
		t.Errorf("misspelled destination should stay unresolved, got %q", snap.Steps[0].Data.Destination)
	}

	// No explicit completion within the fallback window.
	timer.fireDelay(t, FallbackDelay)
	timer.fireDelay(t, AdvanceDelay)

	snap = a.Snapshot(ctx)
	if snap.CurrentStepIndex != 1 {
		t.Fatalf("plan should advance to the insurance step, got index %d", snap.CurrentStepIndex)
	}
	if !snap.Steps[0].Completed {
		t.Error("hospital nav step should be auto-completed")
	}

	timer.fireDelay(t, TransitionDelay)
	snap = a.Snapshot(ctx)
	if snap.PendingStepTransition == nil || snap.PendingStepTransition.Step.ID != models.StepInsurance {
		t.Error("insurance transition should surface next")
	}
}

func TestAutoBookFirstNavigatesWithSlotParams(t *testing.T) {
	a, timer, router, settings := newTestAutomation()
	ctx := context.Background()
	if err := settings.SetAutomationEnabled(ctx, "sess1", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a.HandleResponse(ctx, feverResponse(), "book the first available slot")

	snap := a.Snapshot(ctx)
	if len(snap.Steps) != 1 || snap.Steps[0].ID != models.StepBooking {
		t.Fatalf("expected a single booking step, got %+v", snap.Steps)
	}

	timer.fireDelay(t, TransitionDelay)
	snap = a.Snapshot(ctx)
	if snap.PendingStepTransition == nil || !snap.PendingStepTransition.Auto {
		t.Fatal("auto mode should surface an informational transition notice")
	}

	if err := a.ConfirmStepTransition(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cmd := router.last(t)
	if cmd.Path != RouteBooking {
		t.Errorf("expected %s, got %s", RouteBooking, cmd.Path)
	}
	if cmd.Params["doctorId"] != "1" || cmd.Params["slotId"] != "10" {
		t.Errorf("expected doctor/slot identifiers attached, got %v", cmd.Params)
	}
}

func TestManualBookFirstOffersSlotConfirmation(t *testing.T) {
	a, timer, router, _ := newTestAutomation()
	ctx := context.Background()

	a.HandleResponse(ctx, feverResponse(), "book the first doctor")

	snap := a.Snapshot(ctx)
	if len(snap.Steps) != 1 || snap.Steps[0].ID != models.StepDoctors {
		t.Fatalf("manual mode should keep the doctors step, got %+v", snap.Steps)
	}
	if snap.Steps[0].Data.Doctor == nil || snap.Steps[0].Data.Slot == nil {
		t.Fatal("resolved doctor and slot should ride along on the step data")
	}

	timer.fireDelay(t, TransitionDelay)
	if err := a.ConfirmStepTransition(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap = a.Snapshot(ctx)
	if snap.PendingSlotConfirmation == nil {
		t.Fatal("expected a pending slot confirmation on the doctors page")
	}
	if snap.PendingSlotConfirmation.Slot.ID != 10 {
		t.Errorf("expected first slot 10, got %d", snap.PendingSlotConfirmation.Slot.ID)
	}

	if err := a.ConfirmSlotAndBook(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cmd := router.last(t)
	if cmd.Path != RouteBooking || cmd.Params["slotId"] != "10" {
		t.Errorf("expected booking navigation with slot attached, got %+v", cmd)
	}
}

func TestLegacyPathManualConfirm(t *testing.T) {
	a, timer, router, _ := newTestAutomation()
	ctx := context.Background()

	resp := &models.ChatResponse{
		Intent: models.IntentList{"general_info"},
		Result: &models.Result{
			RequiresNavigation: true,
			NavigationTarget:   "profile",
			Message:            "Your profile has what you need.",
		},
	}
	a.HandleResponse(ctx, resp, "where can I see my profile")

	snap := a.Snapshot(ctx)
	if len(snap.Steps) != 0 {
		t.Fatalf("unrecognized target must not seed a plan, got %+v", snap.Steps)
	}

	timer.fireDelay(t, TransitionDelay)
	snap = a.Snapshot(ctx)
	if snap.PendingNavigation == nil || snap.PendingNavigation.Target != "profile" {
		t.Fatalf("expected a pending simple navigation, got %+v", snap.PendingNavigation)
	}

	if err := a.ConfirmNavigation(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := router.last(t).Path; got != "/profile" {
		t.Errorf("expected fallback path segment navigation, got %s", got)
	}
}

func TestLegacyPathAutoNavigates(t *testing.T) {
	a, timer, router, settings := newTestAutomation()
	ctx := context.Background()
	if err := settings.SetAutomationEnabled(ctx, "sess1", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp := &models.ChatResponse{
		Result: &models.Result{RequiresNavigation: true, NavigationTarget: "profile"},
	}
	a.HandleResponse(ctx, resp, "show my profile")

	timer.fireDelay(t, TransitionDelay)
	if got := router.last(t).Path; got != "/profile" {
		t.Errorf("auto mode should navigate without confirmation, got %s", got)
	}
	snap := a.Snapshot(ctx)
	if snap.PendingNavigation != nil {
		t.Error("auto mode should not surface a confirmation")
	}
}

func TestHomeRouteAbandonsPlan(t *testing.T) {
	a, timer, _, _ := newTestAutomation()
	ctx := context.Background()

	a.HandleResponse(ctx, feverResponse(), "I have a fever")
	if timer.pending() == 0 {
		t.Fatal("expected pending plan timers")
	}

	a.HandleRouteChange(RouteHome)

	snap := a.Snapshot(ctx)
	if len(snap.Steps) != 0 {
		t.Error("navigating home should discard the plan")
	}
	if timer.pending() != 0 {
		t.Errorf("abandon should cancel all timers, %d left", timer.pending())
	}
}

func TestToggleTakesEffectOnNextResponse(t *testing.T) {
	a, timer, _, _ := newTestAutomation()
	ctx := context.Background()

	a.HandleResponse(ctx, feverResponse(), "I have a fever")
	if err := a.EnableAutomation(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The in-flight plan keeps its manual semantics.
	timer.fireDelay(t, TransitionDelay)
	snap := a.Snapshot(ctx)
	if snap.PendingStepTransition == nil || snap.PendingStepTransition.Auto {
		t.Error("in-flight plan must keep the mode captured at seeding")
	}
	if !snap.AutomationEnabled {
		t.Error("the persisted flag should already read as enabled")
	}

	// The next response picks up the new mode.
	a.HandleResponse(ctx, feverResponse(), "I have a fever")
	timer.fireDelay(t, TransitionDelay)
	snap = a.Snapshot(ctx)
	if snap.PendingStepTransition == nil || !snap.PendingStepTransition.Auto {
		t.Error("next plan should run in auto mode")
	}
}

func TestStateChangeNotifications(t *testing.T) {
	timer := newFakeTimer()
	router := &fakeRouter{}
	settings := newMemorySettings()

	var mu sync.Mutex
	var snaps []models.NavigationState
	deps := Dependencies{
		Timer:    timer,
		Router:   router,
		Settings: settings,
		OnChange: func(s models.NavigationState) {
			mu.Lock()
			snaps = append(snaps, s)
			mu.Unlock()
		},
	}
	a := NewAutomation("sess1", deps)
	a.HandleResponse(context.Background(), feverResponse(), "I have a fever")

	mu.Lock()
	defer mu.Unlock()
	if len(snaps) == 0 {
		t.Fatal("expected a state change notification after seeding")
	}
	if len(snaps[len(snaps)-1].Steps) != 1 {
		t.Errorf("notification should carry the new plan, got %+v", snaps[len(snaps)-1].Steps)
	}
}
