package flow

import (
	"strings"

	"github.com/dhruvj7/careflow/internal/models"
)

// insuranceTriggers are utterance phrases that activate the insurance domain
// even when the backend did not classify an insurance intent.
var insuranceTriggers = []string{
	"insurance",
	"verify insurance",
	"check insurance",
	"validate insurance",
}

// Classification is the result of inspecting one backend response together
// with the raw user utterance.
type Classification struct {
	// Intents is the lower-cased set of intent tokens gathered from the
	// top-level intent and every sub-result.
	Intents map[string]bool

	// Domain flags.
	Care      bool
	Nav       bool
	Insurance bool

	// OverrideTarget is set when the response carries the explicit
	// requires-navigation flag with a target that maps to a known page; it
	// short-circuits all other extraction into exactly one step.
	OverrideTarget string
}

// Has reports whether the given intent token was detected.
func (c Classification) Has(intent models.Intent) bool {
	return c.Intents[string(intent)]
}

// Actionable reports whether any navigation domain applies.
func (c Classification) Actionable() bool {
	return c.Care || c.Nav || c.Insurance || c.OverrideTarget != ""
}

// Classify inspects a backend response and the raw user utterance and detects
// which navigation domains apply. Missing optional payload fields mean
// "domain not active", never an error.
func Classify(resp *models.ChatResponse, utterance string) Classification {
	cls := Classification{Intents: make(map[string]bool)}
	if resp == nil {
		return cls
	}

	for _, intent := range resp.Intent {
		if intent != "" {
			cls.Intents[strings.ToLower(intent)] = true
		}
	}
	if resp.Result != nil {
		for _, sr := range resp.Result.SubResults {
			if sr.Intent != "" {
				cls.Intents[strings.ToLower(sr.Intent)] = true
			}
		}
	}

	cls.Care = cls.Has(models.IntentSymptomAnalysis) || cls.Has(models.IntentDoctorSuggestion)
	cls.Nav = cls.Has(models.IntentHospitalNavigation) || (resp.Result != nil && resp.Result.Navigation != nil)
	cls.Insurance = cls.Has(models.IntentInsuranceVerification) ||
		cls.Has(models.IntentInsuranceValidation) ||
		utteranceMentionsInsurance(utterance)

	if resp.Result.NeedsNavigation() {
		if target := resp.Result.ExplicitTarget(); target != "" {
			if _, known := stepIDForTarget(target); known {
				cls.OverrideTarget = strings.ToLower(target)
			}
		}
	}

	return cls
}

func utteranceMentionsInsurance(utterance string) bool {
	lower := strings.ToLower(utterance)
	for _, phrase := range insuranceTriggers {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// stepIDForTarget maps an explicit navigation target onto a plan step id.
// Unrecognized targets are handled by the simple legacy path instead.
func stepIDForTarget(target string) (models.StepID, bool) {
	switch strings.ToLower(target) {
	case "doctors", "doctor_list":
		return models.StepDoctors, true
	case "insurance":
		return models.StepInsurance, true
	case "booking", "book_appointment":
		return models.StepBooking, true
	case "chat", "hospital_nav", "navigation":
		return models.StepHospitalNav, true
	default:
		return "", false
	}
}
