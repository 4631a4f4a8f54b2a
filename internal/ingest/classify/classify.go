// Package classify turns chat message text into typed events.
//
// Support queues (bonus, finans) use an ordered rule list: the first rule
// that matches decides the event type, and a reply that matches nothing
// closes the thread. The attendance channel (mesai) parses fixed-format
// check-in/check-out lines. Classification never fails.
package classify

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lueurxax/support-kpi/internal/core/domain"
)

// Input is everything the classifier looks at.
type Input struct {
	Text    string
	Channel domain.Channel
	IsReply bool
}

// OriginPayload is stored on origin events.
type OriginPayload struct {
	RequestText string `json:"request_text"`
}

// TextPayload is stored on reply and note events.
type TextPayload struct {
	Text string `json:"text"`
}

// AttendancePayload is stored on check_in and check_out events.
type AttendancePayload struct {
	Person    string `json:"person"`
	PlanStart string `json:"plan_start"`
	PlanEnd   string `json:"plan_end"`
	Raw       string `json:"raw"`
}

// Result is the classification of one message.
type Result struct {
	Type    domain.EventType
	Payload any
}

// PayloadJSON encodes the payload for storage.
func (r Result) PayloadJSON() json.RawMessage {
	if r.Payload == nil {
		return json.RawMessage("{}")
	}

	data, err := json.Marshal(r.Payload)
	if err != nil {
		return json.RawMessage("{}")
	}

	return data
}

// Person returns the attendance person name, if any.
func (r Result) Person() string {
	if p, ok := r.Payload.(AttendancePayload); ok {
		return p.Person
	}

	return ""
}

// Rule pairs a predicate over normalized text with the event type it yields.
type Rule struct {
	Name  string
	Match func(normalized string) bool
	Type  domain.EventType
}

// Patterns below run against Normalize output.
var (
	firstResponsePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:^|\s)k(?:\s|$)`),
		regexp.MustCompile(`\bk\s*t+\b`),
		regexp.MustCompile(`\bkt+\b`),
		regexp.MustCompile(`kontrol(\s+ediyorum)?`),
	}
	firstResponseWords = []string{"bakiyorum", "ilgileniyorum"}

	rejectPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bred\b`),
		regexp.MustCompile(`\biptal\b`),
		regexp.MustCompile(`\bolumsuz\b`),
		regexp.MustCompile(`\bhata\b`),
	}
	rejectSymbols = []string{"❌", "🚫"}

	approvePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bonay\b`),
		regexp.MustCompile(`onayland[ıi]`),
		regexp.MustCompile(`\btamam\b`),
		regexp.MustCompile(`\bok\b`),
	}
	approveSymbols = []string{"✅", "👍"}
)

// ReplyRules is the reply rule order for support queues. A first-response
// acknowledgement wins over any sentiment keyword in the same message.
var ReplyRules = []Rule{
	{Name: "first_response", Match: isFirstResponse, Type: domain.EventReplyFirst},
	{Name: "reject", Match: isReject, Type: domain.EventReject},
	{Name: "approve", Match: isApprove, Type: domain.EventApprove},
}

func isFirstResponse(s string) bool {
	return matchAny(s, firstResponsePatterns, firstResponseWords)
}

func isReject(s string) bool {
	return matchAny(s, rejectPatterns, rejectSymbols)
}

func isApprove(s string) bool {
	return matchAny(s, approvePatterns, approveSymbols)
}

func matchAny(s string, patterns []*regexp.Regexp, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}

	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}

	return false
}

// attendanceLine matches "13.09.25 Ali Giriş 00/08" or "13/09/2025 Teoman Çıkış 08:16".
var attendanceLine = regexp.MustCompile(
	`^(?P<d>\d{1,2}[./]\d{1,2}[./]\d{2,4})\s+(?P<name>.+?)\s+` +
		`(?P<op>[gG][iİıI][rR][iİıI][sşSŞ]|[cçCÇ][iİıI][kK][iİıI][sşSŞ])\s+` +
		`(?P<h1>\d{1,2})[/:](?P<h2>\d{1,2})`,
)

// Classify assigns an event type and payload. It is a pure function of its input.
func Classify(in Input) Result {
	text := strings.TrimSpace(in.Text)

	switch {
	case in.Channel.IsSupportQueue():
		return classifySupport(text, in.IsReply)
	case in.Channel == domain.ChannelMesai:
		return classifyAttendance(text)
	default:
		return Result{Type: domain.EventNote, Payload: TextPayload{Text: text}}
	}
}

func classifySupport(text string, isReply bool) Result {
	if !isReply {
		return Result{Type: domain.EventOrigin, Payload: OriginPayload{RequestText: text}}
	}

	normalized := Normalize(text)

	for _, rule := range ReplyRules {
		if rule.Match(normalized) {
			return Result{Type: rule.Type, Payload: TextPayload{Text: text}}
		}
	}

	return Result{Type: domain.EventReplyClose, Payload: TextPayload{Text: text}}
}

func classifyAttendance(text string) Result {
	m := attendanceLine.FindStringSubmatch(text)
	if m == nil {
		return Result{Type: domain.EventNote, Payload: TextPayload{Text: text}}
	}

	group := func(name string) string {
		return m[attendanceLine.SubexpIndex(name)]
	}

	eventType := domain.EventCheckOut
	if strings.Contains(Normalize(group("op")), "giris") {
		eventType = domain.EventCheckIn
	}

	return Result{
		Type: eventType,
		Payload: AttendancePayload{
			Person:    strings.TrimSpace(group("name")),
			PlanStart: planHour(group("h1")),
			PlanEnd:   planHour(group("h2")),
			Raw:       text,
		},
	}
}

func planHour(digits string) string {
	h, err := strconv.Atoi(digits)
	if err != nil {
		return digits
	}

	return fmt.Sprintf("%02d:00", h)
}
