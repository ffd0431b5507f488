// Package models defines navigation plan structures for CareFlow sessions.
package models

// StepID identifies one unit of a navigation plan.
type StepID string

const (
	StepDoctors     StepID = "doctors"
	StepHospitalNav StepID = "hospital_nav"
	StepInsurance   StepID = "insurance"
	StepBooking     StepID = "booking"
)

// Intent is a classification label returned by the backend.
type Intent string

const (
	IntentDoctorSuggestion      Intent = "doctor_suggestion"
	IntentSymptomAnalysis       Intent = "symptom_analysis"
	IntentHospitalNavigation    Intent = "hospital_navigation"
	IntentInsuranceVerification Intent = "insurance_verification"
	IntentInsuranceValidation   Intent = "insurance_validation"
	IntentAppointmentBooking    Intent = "appointment_booking"
)

// Step priorities. Steps are ordered ascending; ties keep extraction order.
const (
	PriorityCare      = 1
	PriorityNavigate  = 2
	PriorityInsurance = 3
)

// StepData is the step-specific payload: an optional pre-selected doctor and
// slot for care/booking steps, or a resolved destination and route for
// hospital navigation steps.
type StepData struct {
	Doctor      *Doctor  `json:"doctor,omitempty"`
	Slot        *Slot    `json:"slot,omitempty"`
	Destination string   `json:"destination,omitempty"`
	RouteSteps  []string `json:"route_steps,omitempty"`
}

// NavigationStep is one unit of the navigation plan: a target page plus the
// data needed to pre-fill it. Completed is mutated only by the queue.
type NavigationStep struct {
	ID        StepID   `json:"id"`
	Intent    Intent   `json:"intent"`
	Target    string   `json:"target"`
	Message   string   `json:"message"`
	Priority  int      `json:"priority"`
	Data      StepData `json:"data"`
	Completed bool     `json:"completed"`
}

// NavigationRequest is a pending simple navigation awaiting user confirmation,
// used by the single-step legacy path and for slot pre-selection hand-off.
type NavigationRequest struct {
	Target  string   `json:"target"`
	Intent  []string `json:"intent"`
	Message string   `json:"message,omitempty"`
}

// StepTransition is a pending queue-driven transition decision. Auto reports
// whether the popup is an informational notice (automation on) or a yes/no
// confirmation bubble (automation off). First distinguishes "this is the first
// step, just go" from "increment then go".
type StepTransition struct {
	StepIndex int            `json:"step_index"`
	Step      NavigationStep `json:"step"`
	First     bool           `json:"first"`
	Auto      bool           `json:"auto"`
}

// SlotConfirmation is a pending request to book a specific doctor's slot,
// surfaced on the doctor list page when automation is off.
type SlotConfirmation struct {
	Doctor Doctor `json:"doctor"`
	Slot   Slot   `json:"slot"`
}

// RouteCommand is an outbound route-change request for the hosting page, with
// optional query parameters carrying doctor and slot identifiers.
type RouteCommand struct {
	Path   string            `json:"path"`
	Params map[string]string `json:"params,omitempty"`
}

// NavigationState is a read-only snapshot of everything the UI layer renders:
// the automation flag, the full step queue with its current index, and the
// pending decision surfaces. At most one of each pending field is populated.
type NavigationState struct {
	AutomationEnabled       bool               `json:"automation_enabled"`
	IntroSeen               bool               `json:"intro_seen"`
	Steps                   []NavigationStep   `json:"steps"`
	CurrentStepIndex        int                `json:"current_step_index"`
	PendingNavigation       *NavigationRequest `json:"pending_navigation,omitempty"`
	PendingStepTransition   *StepTransition    `json:"pending_step_transition,omitempty"`
	PendingSlotConfirmation *SlotConfirmation  `json:"pending_slot_confirmation,omitempty"`
}
