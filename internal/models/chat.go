// Package models defines the core data structures for CareFlow.
//
// It includes the backend chat-response payload types, navigation plan records,
// and API envelope types shared across modules.
package models

import "encoding/json"

// IntentList holds the intent field of a chat response, which the backend
// returns either as a single string or as an array for multi-intent answers.
type IntentList []string

// UnmarshalJSON accepts both the single-string and the array wire forms.
func (il *IntentList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*il = nil
		} else {
			*il = IntentList{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		// Unknown shape decays to "no intent" rather than failing the decode.
		*il = nil
		return nil
	}
	*il = many
	return nil
}

// Has reports whether the list contains the given intent.
func (il IntentList) Has(intent string) bool {
	for _, v := range il {
		if v == intent {
			return true
		}
	}
	return false
}

// ChatResponse is the classified answer returned by the assistant backend for
// one user utterance.
type ChatResponse struct {
	SessionID         string     `json:"session_id"`
	Timestamp         string     `json:"timestamp,omitempty"`
	UserInput         string     `json:"user_input,omitempty"`
	Intent            IntentList `json:"intent"`
	Confidence        float64    `json:"confidence,omitempty"`
	Reasoning         string     `json:"reasoning,omitempty"`
	RequiresMoreInfo  bool       `json:"requires_more_info,omitempty"`
	FollowUpQuestions []string   `json:"follow_up_questions,omitempty"`
	Result            *Result    `json:"result,omitempty"`
}

// Result is the payload portion of a chat response. All sub-structures are
// optional; a missing field means the corresponding domain is not active.
type Result struct {
	Status         string       `json:"status,omitempty"`
	Message        string       `json:"message,omitempty"`
	Intent         string       `json:"intent,omitempty"`
	SubResults     []SubResult  `json:"sub_results,omitempty"`
	CareOptions    *CareOptions `json:"care_options,omitempty"`
	Doctors        []Doctor     `json:"doctors,omitempty"`
	MatchedDoctors []Doctor     `json:"matched_doctors,omitempty"`
	Navigation     *Navigation  `json:"navigation,omitempty"`
	NextSteps      []string     `json:"next_steps,omitempty"`

	// The backend has emitted the explicit navigation flag and target under
	// several spellings over time; all are accepted on the wire.
	RequiresNavigation      bool   `json:"requires_navigation,omitempty"`
	RequiresNavigationCamel bool   `json:"requiresNavigation,omitempty"`
	NavigationTarget        string `json:"navigation_target,omitempty"`
	NavigationTargetCamel   string `json:"navigationTarget,omitempty"`
	NavTarget               string `json:"nav_target,omitempty"`
}

// NeedsNavigation reports whether the response carries the explicit
// requires-navigation flag under any accepted spelling.
func (r *Result) NeedsNavigation() bool {
	if r == nil {
		return false
	}
	return r.RequiresNavigation || r.RequiresNavigationCamel
}

// ExplicitTarget returns the explicit navigation target, preferring the
// canonical snake_case field.
func (r *Result) ExplicitTarget() string {
	if r == nil {
		return ""
	}
	if r.NavigationTarget != "" {
		return r.NavigationTarget
	}
	if r.NavigationTargetCamel != "" {
		return r.NavigationTargetCamel
	}
	return r.NavTarget
}

// SubResult is one intent-specific result block of a multi-intent answer.
type SubResult struct {
	Status      string       `json:"status,omitempty"`
	Message     string       `json:"message,omitempty"`
	Intent      string       `json:"intent,omitempty"`
	CareOptions *CareOptions `json:"care_options,omitempty"`
	Navigation  *Navigation  `json:"navigation,omitempty"`
	BookingFlow *BookingFlow `json:"booking_flow,omitempty"`
	NextSteps   []string     `json:"next_steps,omitempty"`
}

// CareOptions carries doctor suggestions for the care domain.
type CareOptions struct {
	SuggestedSpecialties []string `json:"suggested_specialties,omitempty"`
	MatchedDoctors       []Doctor `json:"matched_doctors,omitempty"`
}

// Navigation is the in-facility navigation payload: a destination plus
// turn-by-turn route steps.
type Navigation struct {
	Destination     string   `json:"destination,omitempty"`
	DestinationName string   `json:"destination_name,omitempty"`
	Message         string   `json:"message,omitempty"`
	RouteSteps      []string `json:"route_steps,omitempty"`
}

// Name returns the display name of the destination, preferring the explicit
// destination_name field.
func (n *Navigation) Name() string {
	if n == nil {
		return ""
	}
	if n.DestinationName != "" {
		return n.DestinationName
	}
	return n.Destination
}

// BookingFlow tracks a multi-turn booking conversation driven by the backend.
type BookingFlow struct {
	Step          string   `json:"step,omitempty"`
	NextQuestions []string `json:"next_questions,omitempty"`
}
