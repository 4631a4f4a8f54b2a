// Package domain holds the data model shared by ingestion, identity and KPI reporting.
package domain

import (
	"encoding/json"
	"time"
)

// Channel tags a chat by the support queue it belongs to.
type Channel string

const (
	ChannelBonus  Channel = "bonus"
	ChannelFinans Channel = "finans"
	ChannelMesai  Channel = "mesai"
	ChannelOther  Channel = "other"
)

// IsSupportQueue reports whether the channel carries request/reply threads.
func (c Channel) IsSupportQueue() bool {
	return c == ChannelBonus || c == ChannelFinans
}

// ParseChannel maps a path or query value to a known channel.
func ParseChannel(s string) (Channel, bool) {
	switch Channel(s) {
	case ChannelBonus, ChannelFinans, ChannelMesai, ChannelOther:
		return Channel(s), true
	default:
		return "", false
	}
}

// MessageKind describes how a raw message reached the webhook.
type MessageKind string

const (
	KindMessage     MessageKind = "msg"
	KindReply       MessageKind = "reply"
	KindEdit        MessageKind = "edit"
	KindChannelPost MessageKind = "channel_post"
)

// EventType is the semantic classification of a message.
type EventType string

const (
	EventOrigin     EventType = "origin"
	EventReplyFirst EventType = "reply_first"
	EventReplyClose EventType = "reply_close"
	EventApprove    EventType = "approve"
	EventReject     EventType = "reject"
	EventNote       EventType = "note"
	EventCheckIn    EventType = "check_in"
	EventCheckOut   EventType = "check_out"
)

// CloseTypes are the event types that end a thread.
var CloseTypes = []EventType{EventReplyClose, EventApprove, EventReject}

// IsClose reports whether the event type ends a thread.
func (t EventType) IsClose() bool {
	return t == EventReplyClose || t == EventApprove || t == EventReject
}

// RawMessage is one inbound webhook message stored verbatim.
type RawMessage struct {
	ID           int64
	UpdateID     int64
	ChatID       int64
	MsgID        int64
	FromUserID   *int64
	FromUsername string
	Timestamp    time.Time
	ChannelTag   Channel
	Kind         MessageKind
	RawPayload   json.RawMessage
	InsertedAt   time.Time
}

// Event is a classified, correlated occurrence derived from one RawMessage.
type Event struct {
	ID            int64
	SourceChannel Channel
	Type          EventType
	ChatID        int64
	MsgID         int64
	CorrelationID string
	Timestamp     time.Time
	FromUserID    *int64
	FromUsername  string
	EmployeeID    string
	Payload       json.RawMessage
	InsertedAt    time.Time
}

// Attributed reports whether the event resolved to an employee.
func (e Event) Attributed() bool {
	return e.EmployeeID != ""
}

// EventQuery selects events for aggregation. The window is half-open [From, To).
type EventQuery struct {
	Channel        Channel
	Types          []EventType
	From           time.Time
	To             time.Time
	AttributedOnly bool
	EmployeeIDs    []string
	Order          EventOrder
	// Limit caps the result; zero means no cap.
	Limit int
}

// EventOrder selects the ordering of listed events.
type EventOrder string

const (
	// EventOrderOldest sorts by event timestamp, oldest first. It is the default.
	EventOrderOldest EventOrder = ""
	// EventOrderNewest sorts by event timestamp, newest first.
	EventOrderNewest EventOrder = "newest"
	// EventOrderLastInserted sorts by insertion, most recent first.
	EventOrderLastInserted EventOrder = "last_inserted"
)

// EventStats are store-wide counts for operators.
type EventStats struct {
	RawMessages int64            `json:"raw"`
	Events      int64            `json:"events"`
	ByType      map[string]int64 `json:"by_type"`
	ByChannel   map[string]int64 `json:"by_channel"`
}

// IdentityStatus is the binding state of a chat actor.
type IdentityStatus string

const (
	IdentityPending   IdentityStatus = "pending"
	IdentityConfirmed IdentityStatus = "confirmed"
)

// EmployeeIdentity maps a chat actor to an employee.
type EmployeeIdentity struct {
	ID         int64
	ActorKey   string
	EmployeeID string
	Status     IdentityStatus
	HintName   string
	HintTeam   string
	InsertedAt time.Time
}

// EventActor is a distinct chat participant seen in stored events.
type EventActor struct {
	FromUserID   *int64
	FromUsername string
	Channel      Channel
	Payload      json.RawMessage
	LastSeen     time.Time
}

// Employee is the HR directory record read by reporting.
type Employee struct {
	EmployeeID       string
	FullName         string
	Department       string
	Status           string
	TelegramUserID   *int64
	TelegramUsername string
	CreatedAt        time.Time
}

// DisplayName falls back to the id when the directory has no name.
func (e Employee) DisplayName() string {
	if e.FullName != "" {
		return e.FullName
	}

	return e.EmployeeID
}

// ThreadMetrics is the derived timing of one thread.
type ThreadMetrics struct {
	ThreadKey        string
	OriginTS         time.Time
	FirstReplyTS     *time.Time
	FirstCloseTS     *time.Time
	FirstResponseSec *float64
	CloseSec         *float64
	ReplierID        string
	CloserEmployeeID string
}
