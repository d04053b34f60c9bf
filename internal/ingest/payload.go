package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"callflow-platform/internal/calls"
	"callflow-platform/pkg/utils"
)

// ErrMalformedPayload is returned when the body is not a JSON object.
var ErrMalformedPayload = errors.New("malformed webhook payload")

const (
	maxTextLen     = 65535
	maxOutcomeLen  = 64
	maxServiceLen  = 255
	maxNameLen     = 255
	maxNumberLen   = 64
	maxCurrencyLen = 8

	endOfCallReport = "end-of-call-report"
)

// Event is the canonical form of a voice platform webhook. Every field is
// optional; empty strings and nil pointers mean "not supplied".
type Event struct {
	ExternalCallID string

	CallerName   string
	CallerNumber string
	ServiceName  string

	PriceMinor *int64
	Currency   string

	Summary    string
	Transcript string
	Outcome    string

	DurationSeconds *int
	StartedAt       *time.Time
	EndedAt         *time.Time
}

// IsEmpty reports a keep-alive ping: no external id and no text content.
func (e Event) IsEmpty() bool {
	return e.ExternalCallID == "" &&
		strings.TrimSpace(e.Transcript) == "" &&
		strings.TrimSpace(e.Summary) == ""
}

// CallEvent copies the supplied fields onto a call event skeleton.
func (e Event) CallEvent() calls.CallEvent {
	return calls.CallEvent{
		ExternalCallID:  e.ExternalCallID,
		CallerName:      e.CallerName,
		CallerNumber:    e.CallerNumber,
		ServiceName:     e.ServiceName,
		PriceMinor:      e.PriceMinor,
		Currency:        e.Currency,
		Summary:         e.Summary,
		Transcript:      e.Transcript,
		Outcome:         e.Outcome,
		DurationSeconds: e.DurationSeconds,
		StartedAt:       e.StartedAt,
		EndedAt:         e.EndedAt,
	}
}

type object = map[string]any

// ParsePayload normalizes a raw webhook body. The event may be wrapped in a
// {"message": {"type": "end-of-call-report", ...}} envelope or sent flat.
// An empty body is treated as an empty object.
func ParsePayload(raw []byte) (Event, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Event{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	body, ok := v.(object)
	if !ok {
		return Event{}, fmt.Errorf("%w: expected a JSON object", ErrMalformedPayload)
	}

	payload := body
	if msg, ok := body["message"].(object); ok && str(msg["type"]) == endOfCallReport {
		payload = msg
	}
	call, _ := payload["call"].(object)

	var ev Event
	ev.ExternalCallID = strings.TrimSpace(firstText(call["id"], payload["callId"], payload["id"]))

	ev.Transcript = utils.TruncateRunes(firstTranscript(payload["transcript"], call["transcript"]), maxTextLen)
	ev.Summary = utils.TruncateRunes(firstText(payload["summary"], call["summary"]), maxTextLen)

	if customer := firstObject(call["customer"], payload["customer"]); customer != nil {
		ev.CallerNumber = firstText(customer["number"], customer["phone"])
		ev.CallerName = str(customer["name"])
	}
	if ev.CallerNumber == "" {
		ev.CallerNumber = firstText(payload["callerNumber"], payload["phone"])
	}
	if ev.CallerName == "" {
		ev.CallerName = str(payload["callerName"])
	}
	ev.CallerNumber = utils.TruncateRunes(strings.TrimSpace(ev.CallerNumber), maxNumberLen)
	ev.CallerName = utils.TruncateRunes(strings.TrimSpace(ev.CallerName), maxNameLen)

	ev.DurationSeconds = parseSeconds(firstPresent(payload["duration"], call["duration"]))
	ev.StartedAt = parseTimestamp(firstText(payload["startedAt"], call["startedAt"]))
	ev.EndedAt = parseTimestamp(firstText(payload["endedAt"], call["endedAt"]))

	ev.Outcome = utils.TruncateRunes(strings.TrimSpace(firstText(payload["outcome"], payload["result"])), maxOutcomeLen)
	ev.ServiceName = utils.TruncateRunes(strings.TrimSpace(firstText(payload["serviceName"], payload["service"])), maxServiceLen)
	ev.PriceMinor = parseMinorUnits(payload["price"])
	ev.Currency = utils.TruncateRunes(strings.ToUpper(strings.TrimSpace(str(payload["currency"]))), maxCurrencyLen)

	return ev, nil
}

// str renders scalar JSON values as text; objects, arrays and null are "".
func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

func firstText(vs ...any) string {
	for _, v := range vs {
		if s := str(v); s != "" {
			return s
		}
	}
	return ""
}

func firstObject(vs ...any) object {
	for _, v := range vs {
		if o, ok := v.(object); ok && len(o) > 0 {
			return o
		}
	}
	return nil
}

func firstPresent(vs ...any) any {
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}

// firstTranscript accepts either a plain string or a list of turns.
func firstTranscript(vs ...any) string {
	for _, v := range vs {
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case []any:
			s = joinTurns(t)
		}
		if s != "" {
			return s
		}
	}
	return ""
}

// joinTurns newline-joins each turn's message, else content, else the turn
// itself encoded as JSON.
func joinTurns(turns []any) string {
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		switch t := turn.(type) {
		case object:
			if s := firstText(t["message"], t["content"]); s != "" {
				lines = append(lines, s)
				continue
			}
			b, err := json.Marshal(t)
			if err != nil {
				continue
			}
			lines = append(lines, string(b))
		case string:
			lines = append(lines, t)
		case nil:
		default:
			b, err := json.Marshal(t)
			if err == nil {
				lines = append(lines, string(b))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func parseNumber(v any) (float64, bool) {
	var s string
	switch t := v.(type) {
	case json.Number:
		s = t.String()
	case string:
		s = strings.TrimSpace(t)
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseSeconds drops negative and unparsable durations; fractions are cut.
func parseSeconds(v any) *int {
	f, ok := parseNumber(v)
	if !ok || f < 0 || f > math.MaxInt32 {
		return nil
	}
	n := int(f)
	return &n
}

// parseMinorUnits converts a decimal amount to cents, rounding half away
// from zero.
func parseMinorUnits(v any) *int64 {
	f, ok := parseNumber(v)
	if !ok || f < 0 || f > math.MaxInt64/100 {
		return nil
	}
	n := int64(math.Round(f * 100))
	return &n
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// parseTimestamp reads ISO-8601 text. A trailing "Z" means UTC; text without
// an offset is taken as UTC. Anything else is dropped.
func parseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
