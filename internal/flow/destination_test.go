package flow

import (
	"testing"

	"github.com/dhruvj7/careflow/internal/models"
)

func TestResolveDestinationPrecedence(t *testing.T) {
	nav := &models.Navigation{DestinationName: "Pharmacy"}
	got := ResolveDestination(nav, []string{`Head to the "cafetaria" now`}, "take me to the lab")
	if got != "Pharmacy" {
		t.Errorf("explicit payload name should win, got %q", got)
	}

	got = ResolveDestination(nil, []string{`Head to the "cafetaria" now`}, "take me to the lab")
	if got != "Cafeteria" {
		t.Errorf("quoted candidate should win over the utterance, got %q", got)
	}

	got = ResolveDestination(nil, []string{"no quotes here"}, "take me to the lab")
	if got != "Laboratory" {
		t.Errorf("utterance scan should resolve last, got %q", got)
	}
}

func TestQuotedCandidateVariants(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{`Go to the "cafetaria" please`, "Cafeteria"},
		{`Go to the 'ER' please`, "Emergency Room"},
		{`Head towards “main entrance” doors`, "Lobby"},
		{`The "radiology wing" is upstairs`, "Radiology Wing"},
	}
	for _, tc := range cases {
		if got := ResolveDestination(nil, []string{tc.text}, ""); got != tc.want {
			t.Errorf("%q: expected %q, got %q", tc.text, tc.want, got)
		}
	}
}

func TestUtteranceVocabulary(t *testing.T) {
	cases := []struct {
		utterance string
		want      string
	}{
		{"where is the cafeteria", "Cafeteria"},
		{"I need the pharmacy", "Pharmacy"},
		{"take me to the er", "Emergency Room"},
		{"emergency please", "Emergency Room"},
		{"how do I find reception", "Reception"},
		{"back to the main entrance", "Lobby"},
		{"where's the restroom", "Restroom"},
		{"I am looking for the waiting room", "Waiting Room"},
		{"take me to cabin 3", "Cabin 3"},
		{"find cabin b", "Cabin B"},
	}
	for _, tc := range cases {
		if got := ResolveDestination(nil, nil, tc.utterance); got != tc.want {
			t.Errorf("%q: expected %q, got %q", tc.utterance, tc.want, got)
		}
	}
}

func TestUtteranceWordBoundaries(t *testing.T) {
	// "fever" contains "er" but must not resolve to the emergency room.
	if got := ResolveDestination(nil, nil, "I have a fever"); got != "" {
		t.Errorf("expected no destination for a symptom utterance, got %q", got)
	}
	// The misspelling is only normalized in quoted candidates, not scanned.
	if got := ResolveDestination(nil, nil, "where is the cafetaria"); got != "" {
		t.Errorf("misspelled utterance should stay unresolved, got %q", got)
	}
}

func TestResolveDestinationNothingFound(t *testing.T) {
	if got := ResolveDestination(nil, []string{"plain text"}, "just chatting"); got != "" {
		t.Errorf("expected empty destination, got %q", got)
	}
}
