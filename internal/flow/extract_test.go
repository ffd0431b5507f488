package flow

import (
	"testing"

	"github.com/dhruvj7/careflow/internal/models"
)

func doctorsResponse(doctors ...models.Doctor) *models.ChatResponse {
	return &models.ChatResponse{
		Intent: models.IntentList{"symptom_analysis"},
		Result: &models.Result{
			SubResults: []models.SubResult{
				{Intent: "symptom_analysis", CareOptions: &models.CareOptions{MatchedDoctors: doctors}},
			},
		},
	}
}

func TestExtractSingleDomainSteps(t *testing.T) {
	cases := []struct {
		name   string
		resp   *models.ChatResponse
		wantID models.StepID
	}{
		{
			"care",
			doctorsResponse(models.Doctor{ID: 1, Name: "Dr. Rao"}),
			models.StepDoctors,
		},
		{
			"navigation",
			&models.ChatResponse{
				Intent: models.IntentList{"hospital_navigation"},
				Result: &models.Result{Navigation: &models.Navigation{Destination: "Pharmacy"}},
			},
			models.StepHospitalNav,
		},
		{
			"insurance",
			&models.ChatResponse{Intent: models.IntentList{"insurance_verification"}, Result: &models.Result{}},
			models.StepInsurance,
		},
	}
	for _, tc := range cases {
		steps := ExtractSteps(tc.resp, "", false)
		if len(steps) != 1 {
			t.Fatalf("%s: expected exactly one step, got %d", tc.name, len(steps))
		}
		if steps[0].ID != tc.wantID {
			t.Errorf("%s: expected step %s, got %s", tc.name, tc.wantID, steps[0].ID)
		}
	}
}

func TestExtractOrdersDoctorsBeforeInsurance(t *testing.T) {
	// Insurance sub-result listed first; priority ordering must win anyway.
	resp := &models.ChatResponse{
		Intent: models.IntentList{"insurance_verification", "symptom_analysis"},
		Result: &models.Result{
			SubResults: []models.SubResult{
				{Intent: "insurance_verification"},
				{Intent: "symptom_analysis", CareOptions: &models.CareOptions{
					MatchedDoctors: []models.Doctor{{ID: 1, Name: "Dr. Rao"}},
				}},
			},
		},
	}
	steps := ExtractSteps(resp, "", false)
	if len(steps) != 2 {
		t.Fatalf("expected two steps, got %d", len(steps))
	}
	if steps[0].ID != models.StepDoctors || steps[1].ID != models.StepInsurance {
		t.Fatalf("unexpected order: %s, %s", steps[0].ID, steps[1].ID)
	}
	if steps[0].Priority >= steps[1].Priority {
		t.Errorf("doctors priority %d should be lower than insurance %d", steps[0].Priority, steps[1].Priority)
	}
}

func TestExtractBookFirstAutoBypassesDoctorList(t *testing.T) {
	resp := doctorsResponse(
		models.Doctor{ID: 3, Name: "Dr. Iyer", AvailableSlots: []models.Slot{
			{ID: 21, Date: "2026-09-05", Time: "10:00"},
			{ID: 22, Date: "2026-09-05", Time: "11:00"},
		}},
	)
	steps := ExtractSteps(resp, "book the first available slot", true)
	if len(steps) != 1 {
		t.Fatalf("expected a single step, got %d", len(steps))
	}
	step := steps[0]
	if step.ID != models.StepBooking {
		t.Fatalf("expected a booking step, got %s", step.ID)
	}
	if step.Data.Slot == nil || step.Data.Slot.ID != 21 {
		t.Errorf("expected the first normalized slot, got %+v", step.Data.Slot)
	}
	if step.Data.Doctor == nil || len(step.Data.Doctor.Slots) != 2 {
		t.Errorf("doctor should be stored normalized, got %+v", step.Data.Doctor)
	}
}

func TestExtractBookFirstManualKeepsDoctorsStep(t *testing.T) {
	resp := doctorsResponse(
		models.Doctor{ID: 3, Name: "Dr. Iyer", AvailableSlots: []models.Slot{{ID: 21, Date: "2026-09-05", Time: "10:00"}}},
	)
	steps := ExtractSteps(resp, "book the first slot", false)
	if len(steps) != 1 || steps[0].ID != models.StepDoctors {
		t.Fatalf("manual mode should keep the doctors step, got %+v", steps)
	}
	if steps[0].Data.Doctor == nil || steps[0].Data.Slot == nil {
		t.Error("resolved doctor and slot should be attached for the slot confirmation")
	}
}

func TestExtractBookFirstWithoutSlotsFallsBack(t *testing.T) {
	resp := doctorsResponse(models.Doctor{ID: 3, Name: "Dr. Iyer"})
	steps := ExtractSteps(resp, "book the first doctor", true)
	if len(steps) != 1 || steps[0].ID != models.StepDoctors {
		t.Fatalf("no slots means no booking bypass, got %+v", steps)
	}
}

func TestExtractDoctorSearchOrder(t *testing.T) {
	// Sub-result list wins over the top-level lists.
	resp := &models.ChatResponse{
		Intent: models.IntentList{"doctor_suggestion"},
		Result: &models.Result{
			Doctors: []models.Doctor{{ID: 9, Name: "Dr. Top"}},
			SubResults: []models.SubResult{
				{Intent: "doctor_suggestion", CareOptions: &models.CareOptions{
					MatchedDoctors: []models.Doctor{{ID: 1, Name: "Dr. Sub", AvailableSlots: []models.Slot{{ID: 5}}}},
				}},
			},
		},
	}
	steps := ExtractSteps(resp, "book first slot", true)
	if steps[0].Data.Doctor == nil || steps[0].Data.Doctor.ID != 1 {
		t.Errorf("sub-result doctors should win, got %+v", steps[0].Data.Doctor)
	}

	// Without sub-result doctors the top-level list is used.
	resp.Result.SubResults = nil
	steps = ExtractSteps(resp, "", false)
	if steps[0].ID != models.StepDoctors {
		t.Fatalf("expected doctors step, got %s", steps[0].ID)
	}
}

func TestExtractNavigationStepSurvivesUnresolvedDestination(t *testing.T) {
	resp := &models.ChatResponse{
		Intent: models.IntentList{"hospital_navigation", "insurance_verification"},
		Result: &models.Result{},
	}
	steps := ExtractSteps(resp, "take me somewhere nice", false)
	if len(steps) != 2 {
		t.Fatalf("unresolved destination must not drop the step, got %+v", steps)
	}
	if steps[0].ID != models.StepHospitalNav || steps[0].Data.Destination != "" {
		t.Errorf("expected an unresolved hospital nav step first, got %+v", steps[0])
	}
}

func TestExtractExplicitOverrideShortCircuits(t *testing.T) {
	resp := &models.ChatResponse{
		Intent: models.IntentList{"symptom_analysis", "insurance_verification"},
		Result: &models.Result{
			RequiresNavigation: true,
			NavigationTarget:   "insurance",
			SubResults: []models.SubResult{
				{Intent: "symptom_analysis", CareOptions: &models.CareOptions{
					MatchedDoctors: []models.Doctor{{ID: 1, Name: "Dr. Rao"}},
				}},
			},
		},
	}
	steps := ExtractSteps(resp, "", false)
	if len(steps) != 1 {
		t.Fatalf("override should produce exactly one step, got %d", len(steps))
	}
	if steps[0].ID != models.StepInsurance {
		t.Errorf("expected the override target step, got %s", steps[0].ID)
	}
}

func TestExtractNoSignalsYieldsNothing(t *testing.T) {
	resp := &models.ChatResponse{Intent: models.IntentList{"general_info"}, Result: &models.Result{Message: "hi"}}
	if steps := ExtractSteps(resp, "hello there", false); len(steps) != 0 {
		t.Errorf("expected no steps, got %+v", steps)
	}
}
