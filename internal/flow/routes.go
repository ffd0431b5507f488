package flow

import (
	"strconv"
	"strings"

	"github.com/dhruvj7/careflow/internal/models"
)

// Client route paths. RouteHome is the abandon/reset boundary: navigating to
// it discards the active plan, matching the chat-state reset behavior.
const (
	RouteHome      = "/"
	RouteChat      = "/chat"
	RouteDoctors   = "/doctors"
	RouteBooking   = "/book-appointment"
	RouteInsurance = "/insurance"
)

// RouteForTarget maps a step or request target onto a client route path.
// Unknown targets are treated as raw path segments.
func RouteForTarget(target string) string {
	switch strings.ToLower(target) {
	case "doctors", "doctor_list":
		return RouteDoctors
	case "insurance":
		return RouteInsurance
	case "booking", "book_appointment":
		return RouteBooking
	case "chat", "hospital_nav", "navigation", "":
		return RouteChat
	default:
		return "/" + strings.Trim(strings.ToLower(target), "/")
	}
}

// routeCommandForStep builds the outbound route-change request for a step,
// attaching doctor and slot identifiers when the step pre-selected them.
func routeCommandForStep(step models.NavigationStep) models.RouteCommand {
	cmd := models.RouteCommand{Path: RouteForTarget(step.Target)}
	if step.ID == models.StepBooking && step.Data.Doctor != nil && step.Data.Slot != nil {
		cmd.Params = map[string]string{
			"doctorId": strconv.Itoa(step.Data.Doctor.ID),
			"slotId":   strconv.Itoa(step.Data.Slot.ID),
		}
	}
	return cmd
}

// RouteMatchesStep reports whether an observed route path satisfies the given
// step's target. Pure function so the matching logic stays independently
// testable from the queue.
func RouteMatchesStep(path string, step models.NavigationStep) bool {
	want := RouteForTarget(step.Target)
	if path == want {
		return true
	}
	// Booking pages carry query params or an id path segment.
	return want == RouteBooking && strings.HasPrefix(path, RouteBooking)
}
