// Package inference guesses structured call fields from a free-text call
// summary. It is a low-confidence fallback: callers use a field only when the
// webhook did not supply it.
//
// The business-name check is a heuristic, not a guarantee. When a candidate
// service looks like a company name it is rejected rather than trimmed.
package inference

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"callflow-platform/pkg/utils"
)

const (
	maxNameLen       = 255
	maxServiceLen    = 255
	maxCandidateLen  = 120
	completedMinLen  = 20
	minServiceLength = 2
)

// Result holds the inferred fields. Empty means "not inferred".
type Result struct {
	CallerName  string `json:"caller_name,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	Outcome     string `json:"outcome,omitempty"`
}

// IsZero reports whether nothing was inferred.
func (r Result) IsZero() bool {
	return r.CallerName == "" && r.ServiceName == "" && r.Outcome == ""
}

// Outcome labels.
const (
	OutcomeBookingScheduled = "Booking scheduled"
	OutcomeRescheduled      = "Rescheduled"
	OutcomeCancelled        = "Cancelled"
	OutcomeBookingCreated   = "Booking created"
	OutcomeCompleted        = "Completed"
)

// "<Name> called <Entity> to|and|." at the start of the summary.
var calledPattern = regexp.MustCompile(`^([A-Za-z][A-Za-z\s\-']+?)\s+called\s+([^.]+?)(?:\s+to\s+|\s+and\s+|\.|$)`)

// serviceExtractors are tried in order against the lowercased text. The first
// capture that is long enough and not business-shaped wins.
var serviceExtractors = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:service|requested|issue|job|work)\s*[:\-]\s*([^.,\n]+)`),
	regexp.MustCompile(`\b(?:for|needed)\s+(?:a\s+)?(?:plumber\s+for\s+)?([^.,\n]+?)(?:\.|,|$)`),
	regexp.MustCompile(`\bto\s+(?:book|schedule|report)\s+(?:a\s+)?([^.,\n]+?)(?:\.|,|$)`),
	regexp.MustCompile(`\b(?:booked?|scheduled?)\s+(?:for\s+)?(?:a\s+)?([^.,\n]+?)(?:\.|,|$)`),
}

// servicePhrases is the fixed short-phrase vocabulary; first match wins.
var servicePhrases = []*regexp.Regexp{
	regexp.MustCompile(`leak\s+repair(?:\s+in\s+(?:sink|bathroom|kitchen))?`),
	regexp.MustCompile(`blocked\s+drain`),
	regexp.MustCompile(`sink\s+repair`),
	regexp.MustCompile(`drain\s+(?:cleaning|unblock)`),
	regexp.MustCompile(`tap\s+repair`),
	regexp.MustCompile(`water\s+heater`),
	regexp.MustCompile(`boiler\s+repair`),
	regexp.MustCompile(`pipe\s+(?:repair|leak)`),
	regexp.MustCompile(`toilet\s+repair`),
	regexp.MustCompile(`emergency\s+plumb`),
}

var businessTokens = regexp.MustCompile(`\b(?:co\.?|llc|inc|plumbing|plumber|services?|company)\b`)

type outcomeRule struct {
	match   func(lower string) bool
	outcome string
}

func containsAny(subs ...string) func(string) bool {
	return func(s string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}
}

// scheduledOnly matches "scheduled" anywhere except inside "rescheduled",
// which has its own rule.
func scheduledOnly(lower string) bool {
	return strings.Contains(strings.ReplaceAll(lower, "rescheduled", ""), "scheduled") ||
		strings.Contains(lower, "appointment is set")
}

// outcomeRules are evaluated in order; earlier rules take precedence.
// Matching is by substring, so "rebooked" and "prescheduled" count.
var outcomeRules = []outcomeRule{
	{scheduledOnly, OutcomeBookingScheduled},
	{containsAny("rescheduled"), OutcomeRescheduled},
	{containsAny("cancelled", "canceled"), OutcomeCancelled},
	{containsAny("booked", "booking", "book"), OutcomeBookingCreated},
}

// Infer extracts caller name, service and outcome from summary.
// It is pure and deterministic and returns the zero Result for blank input.
func Infer(summary string) Result {
	s := strings.TrimSpace(summary)
	if s == "" {
		return Result{}
	}

	var out Result
	if m := calledPattern.FindStringSubmatch(s); m != nil {
		out.CallerName = utils.TruncateRunes(strings.TrimSpace(m[1]), maxNameLen)
		if entity := strings.TrimSpace(m[2]); !LooksLikeBusinessName(entity) {
			out.ServiceName = utils.TruncateRunes(entity, maxServiceLen)
		}
	}

	lower := strings.ToLower(s)
	if out.ServiceName == "" {
		out.ServiceName = inferService(lower)
	}
	out.Outcome = inferOutcome(lower)
	return out
}

// LooksLikeBusinessName reports whether text reads like a company name rather
// than a job type. Blank and overlong candidates count as business names so
// they are discarded.
func LooksLikeBusinessName(text string) bool {
	if text == "" || utf8.RuneCountInString(text) > maxCandidateLen {
		return true
	}
	t := strings.ToLower(text)
	if businessTokens.MatchString(t) || strings.Contains(t, "&") {
		return true
	}
	// "Smith and Sons Co" style names.
	if strings.Contains(t, " and ") && strings.Contains(t, "co") {
		return true
	}
	return false
}

func inferService(lower string) string {
	for _, re := range serviceExtractors {
		m := re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		candidate := strings.TrimSpace(m[1])
		if utf8.RuneCountInString(candidate) > minServiceLength && !LooksLikeBusinessName(candidate) {
			return utils.TruncateRunes(candidate, maxServiceLen)
		}
	}
	for _, re := range servicePhrases {
		if m := re.FindString(lower); m != "" {
			return utils.TruncateRunes(strings.TrimSpace(m), maxServiceLen)
		}
	}
	return ""
}

func inferOutcome(lower string) string {
	for _, r := range outcomeRules {
		if r.match(lower) {
			return r.outcome
		}
	}
	if utf8.RuneCountInString(lower) > completedMinLen {
		return OutcomeCompleted
	}
	return ""
}
