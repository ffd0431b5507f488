package flow

import (
	"regexp"
	"strings"

	"github.com/dhruvj7/careflow/internal/models"
)

// spellingVariants maps common misspellings and shorthand to canonical
// destination display names.
var spellingVariants = map[string]string{
	"cafetaria":     "Cafeteria",
	"cafe":          "Cafeteria",
	"café":          "Cafeteria",
	"er":            "Emergency Room",
	"lab":           "Laboratory",
	"restroom":      "Restroom",
	"washroom":      "Restroom",
	"bathroom":      "Restroom",
	"main entrance": "Lobby",
}

// destinationVocabulary maps facility-location synonyms found in raw
// utterances to one canonical display label. Single words are matched on word
// boundaries; multi-word phrases as substrings.
var destinationVocabulary = []struct {
	words []string
	label string
}{
	{[]string{"cafeteria", "cafe", "café"}, "Cafeteria"},
	{[]string{"pharmacy"}, "Pharmacy"},
	{[]string{"emergency", "er"}, "Emergency Room"},
	{[]string{"reception"}, "Reception"},
	{[]string{"lobby", "main entrance"}, "Lobby"},
	{[]string{"bathroom", "restroom", "washroom"}, "Restroom"},
	{[]string{"laboratory", "lab"}, "Laboratory"},
	{[]string{"waiting room", "waiting area"}, "Waiting Room"},
}

var (
	quotedRe = regexp.MustCompile(`"([^"]+)"|'([^']+)'|“([^”]+)”`)
	cabinRe  = regexp.MustCompile(`\bcabin\s+([a-z0-9]+)\b`)
	wordRe   = regexp.MustCompile(`[a-zà-ÿ0-9]+`)
)

// ResolveDestination resolves the display name of an in-facility destination
// with the precedence: explicit navigation payload name, a quoted substring in
// the sub-result or result message text, and finally the raw utterance scanned
// against the facility vocabulary. Returns "" when nothing resolves; the step
// is still emitted in that case and the destination page owns the fallback.
func ResolveDestination(nav *models.Navigation, messages []string, utterance string) string {
	if name := nav.Name(); name != "" {
		return canonicalDestination(name)
	}

	for _, msg := range messages {
		if candidate := quotedCandidate(msg); candidate != "" {
			return canonicalDestination(candidate)
		}
	}

	return destinationFromUtterance(utterance)
}

// quotedCandidate extracts the contents of the first matching quote pair.
func quotedCandidate(text string) string {
	m := quotedRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	for _, group := range m[1:] {
		if group != "" {
			return strings.TrimSpace(group)
		}
	}
	return ""
}

// canonicalDestination normalizes spelling variants onto canonical display
// names, falling back to title-casing the candidate as given.
func canonicalDestination(candidate string) string {
	lower := strings.ToLower(strings.TrimSpace(candidate))
	if lower == "" {
		return ""
	}
	if canonical, ok := spellingVariants[lower]; ok {
		return canonical
	}
	for _, entry := range destinationVocabulary {
		for _, w := range entry.words {
			if lower == w {
				return entry.label
			}
		}
	}
	if m := cabinRe.FindStringSubmatch(lower); m != nil {
		return "Cabin " + strings.ToUpper(m[1])
	}
	return titleCase(lower)
}

// destinationFromUtterance scans the raw utterance against the facility
// vocabulary and named cabins.
func destinationFromUtterance(utterance string) string {
	lower := strings.ToLower(utterance)
	words := make(map[string]bool)
	for _, w := range wordRe.FindAllString(lower, -1) {
		words[w] = true
	}

	for _, entry := range destinationVocabulary {
		for _, w := range entry.words {
			if strings.Contains(w, " ") {
				if strings.Contains(lower, w) {
					return entry.label
				}
			} else if words[w] {
				return entry.label
			}
		}
	}

	if m := cabinRe.FindStringSubmatch(lower); m != nil {
		return "Cabin " + strings.ToUpper(m[1])
	}
	return ""
}

func titleCase(s string) string {
	parts := strings.Fields(s)
	for i, p := range parts {
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}
