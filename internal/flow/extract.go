package flow

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dhruvj7/careflow/internal/models"
)

// bookFirstPhrases mark an utterance asking to book the first available
// doctor or slot straight away.
var bookFirstPhrases = []string{
	"book",
	"first available",
	"first slot",
	"first doctor",
}

// ExtractSteps builds the ordered navigation plan for one classified
// response. auto is the automation mode in effect when the response arrived;
// it decides whether a book-first utterance bypasses the doctor list page.
// A zero-length result means the response carries no plan-worthy signals and
// the single-step legacy path applies instead.
func ExtractSteps(resp *models.ChatResponse, utterance string, auto bool) []models.NavigationStep {
	cls := Classify(resp, utterance)

	if cls.OverrideTarget != "" {
		return []models.NavigationStep{overrideStep(resp, cls)}
	}

	var steps []models.NavigationStep

	if cls.Care {
		steps = append(steps, careStep(resp, utterance, auto, cls))
	}
	if cls.Nav {
		steps = append(steps, navigationStep(resp, utterance))
	}
	if cls.Insurance {
		steps = append(steps, insuranceStep())
	}

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Priority < steps[j].Priority
	})
	return steps
}

// overrideStep builds the single step produced by the explicit
// requires-navigation override; the target short-circuits all other
// extraction.
func overrideStep(resp *models.ChatResponse, cls Classification) models.NavigationStep {
	id, _ := stepIDForTarget(cls.OverrideTarget)
	message := ""
	if resp.Result != nil {
		message = resp.Result.Message
	}
	if message == "" {
		message = fmt.Sprintf("Taking you to the %s page", cls.OverrideTarget)
	}
	return models.NavigationStep{
		ID:       id,
		Intent:   intentForStep(id),
		Target:   cls.OverrideTarget,
		Message:  message,
		Priority: priorityForStep(id),
	}
}

// careStep builds the doctors or booking step for the care domain.
func careStep(resp *models.ChatResponse, utterance string, auto bool, cls Classification) models.NavigationStep {
	doctors := matchedDoctors(resp)
	bookFirst := wantsFirstAvailable(utterance)

	intent := models.IntentDoctorSuggestion
	if cls.Has(models.IntentSymptomAnalysis) && !cls.Has(models.IntentDoctorSuggestion) {
		intent = models.IntentSymptomAnalysis
	}

	if bookFirst && len(doctors) > 0 {
		if slot, ok := doctors[0].FirstSlot(); ok {
			doctor := doctors[0]
			if auto {
				// Bypass the doctor list page entirely.
				return models.NavigationStep{
					ID:       models.StepBooking,
					Intent:   models.IntentAppointmentBooking,
					Target:   "booking",
					Message:  fmt.Sprintf("Booking the first available slot with %s", doctor.Name),
					Priority: models.PriorityCare,
					Data:     models.StepData{Doctor: &doctor, Slot: &slot},
				}
			}
			// Manual mode: go to the doctor list, but carry the resolved
			// doctor and slot so the page can offer a slot confirmation.
			return models.NavigationStep{
				ID:       models.StepDoctors,
				Intent:   intent,
				Target:   "doctors",
				Message:  fmt.Sprintf("Found a first available slot with %s", doctor.Name),
				Priority: models.PriorityCare,
				Data:     models.StepData{Doctor: &doctor, Slot: &slot},
			}
		}
	}

	message := "Let me show you the doctors that match your symptoms"
	if len(doctors) > 0 {
		message = fmt.Sprintf("Found %d matching doctors for you", len(doctors))
	}
	return models.NavigationStep{
		ID:       models.StepDoctors,
		Intent:   intent,
		Target:   "doctors",
		Message:  message,
		Priority: models.PriorityCare,
	}
}

// MatchedDoctors returns the normalized doctor list carried by a response, or
// nil when it carries none. The API layer uses it to refresh the per-session
// doctor cache the list and booking pages read.
func MatchedDoctors(resp *models.ChatResponse) []models.Doctor {
	return matchedDoctors(resp)
}

// matchedDoctors searches, in order, each sub-result's matched-doctor list,
// the top-level doctor list, and the top-level matched-doctor list for the
// first non-empty list, returning it normalized.
func matchedDoctors(resp *models.ChatResponse) []models.Doctor {
	if resp == nil || resp.Result == nil {
		return nil
	}
	for _, sr := range resp.Result.SubResults {
		if sr.CareOptions != nil && len(sr.CareOptions.MatchedDoctors) > 0 {
			return models.NormalizeDoctors(sr.CareOptions.MatchedDoctors)
		}
	}
	if len(resp.Result.Doctors) > 0 {
		return models.NormalizeDoctors(resp.Result.Doctors)
	}
	if resp.Result.CareOptions != nil && len(resp.Result.CareOptions.MatchedDoctors) > 0 {
		return models.NormalizeDoctors(resp.Result.CareOptions.MatchedDoctors)
	}
	if len(resp.Result.MatchedDoctors) > 0 {
		return models.NormalizeDoctors(resp.Result.MatchedDoctors)
	}
	return nil
}

// wantsFirstAvailable detects a book-first intent in the raw utterance.
func wantsFirstAvailable(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, phrase := range bookFirstPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	if strings.Contains(lower, "first") &&
		(strings.Contains(lower, "doctor") || strings.Contains(lower, "slot")) {
		return true
	}
	return false
}

// navigationStep builds the hospital navigation step. The step is emitted
// even when no destination resolves; its presence is what unblocks
// progression to any subsequent step.
func navigationStep(resp *models.ChatResponse, utterance string) models.NavigationStep {
	var nav *models.Navigation
	var messages []string

	if resp.Result != nil {
		for _, sr := range resp.Result.SubResults {
			if sr.Navigation != nil && nav == nil {
				nav = sr.Navigation
			}
			if sr.Message != "" {
				messages = append(messages, sr.Message)
			}
		}
		if nav == nil {
			nav = resp.Result.Navigation
		}
		if resp.Result.Message != "" {
			messages = append(messages, resp.Result.Message)
		}
	}

	destination := ResolveDestination(nav, messages, utterance)

	data := models.StepData{Destination: destination}
	if nav != nil {
		data.RouteSteps = nav.RouteSteps
	}

	message := "Let me guide you through the facility"
	if destination != "" {
		message = fmt.Sprintf("Guiding you to the %s", destination)
	}
	return models.NavigationStep{
		ID:       models.StepHospitalNav,
		Intent:   models.IntentHospitalNavigation,
		Target:   "chat",
		Message:  message,
		Priority: models.PriorityNavigate,
		Data:     data,
	}
}

// insuranceStep builds the insurance verification step; it never depends on
// resolved data.
func insuranceStep() models.NavigationStep {
	return models.NavigationStep{
		ID:       models.StepInsurance,
		Intent:   models.IntentInsuranceVerification,
		Target:   "insurance",
		Message:  "Let's verify your insurance details",
		Priority: models.PriorityInsurance,
	}
}

func intentForStep(id models.StepID) models.Intent {
	switch id {
	case models.StepDoctors:
		return models.IntentDoctorSuggestion
	case models.StepHospitalNav:
		return models.IntentHospitalNavigation
	case models.StepInsurance:
		return models.IntentInsuranceVerification
	case models.StepBooking:
		return models.IntentAppointmentBooking
	default:
		return models.IntentDoctorSuggestion
	}
}

func priorityForStep(id models.StepID) int {
	switch id {
	case models.StepHospitalNav:
		return models.PriorityNavigate
	case models.StepInsurance:
		return models.PriorityInsurance
	default:
		return models.PriorityCare
	}
}
