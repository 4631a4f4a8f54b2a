package kpi

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	"github.com/lueurxax/support-kpi/internal/core/ports/mocks"
	"github.com/lueurxax/support-kpi/internal/ingest"
	"github.com/lueurxax/support-kpi/internal/platform/schedule"
)

const testChat = int64(-1001)

type fixture struct {
	t     *testing.T
	store *mocks.Store
	loc   *time.Location
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	loc, err := schedule.LoadLocation("Europe/Istanbul")
	require.NoError(t, err)

	return &fixture{
		t:     t,
		store: mocks.NewStore(),
		loc:   loc,
		now:   time.Date(2025, 9, 14, 9, 0, 0, 0, loc),
	}
}

func (f *fixture) at(hour, minute, second int) time.Time {
	return time.Date(2025, 9, 13, hour, minute, second, 0, f.loc)
}

func (f *fixture) aggregator() *Aggregator {
	logger := zerolog.Nop()

	return New(f.store, f.loc, &logger, WithClock(func() time.Time { return f.now }))
}

func rawUpdate(t *testing.T, chatID, msgID, replyTo int64, ts time.Time) json.RawMessage {
	t.Helper()

	msg := map[string]any{
		"message_id": msgID,
		"date":       ts.Unix(),
		"chat":       map[string]any{"id": chatID},
	}

	if replyTo != 0 {
		msg["reply_to_message"] = map[string]any{"message_id": replyTo}
	}

	body, err := json.Marshal(map[string]any{"update_id": msgID, "message": msg})
	require.NoError(t, err)

	return body
}

// message stores a raw message without an event.
func (f *fixture) message(msgID, replyTo int64, ts time.Time) {
	f.t.Helper()

	_, err := f.store.SaveRawMessage(context.Background(), &domain.RawMessage{
		ChatID:     testChat,
		MsgID:      msgID,
		Timestamp:  ts,
		ChannelTag: domain.ChannelBonus,
		RawPayload: rawUpdate(f.t, testChat, msgID, replyTo, ts),
	})
	require.NoError(f.t, err)
}

// event stores a raw message and its classified event.
func (f *fixture) event(channel domain.Channel, typ domain.EventType, msgID, replyTo int64, ts time.Time, employeeID string) {
	f.t.Helper()

	f.message(msgID, replyTo, ts)

	origin := msgID
	if replyTo != 0 {
		origin = replyTo
	}

	f.store.AddEvent(domain.Event{
		SourceChannel: channel,
		Type:          typ,
		ChatID:        testChat,
		MsgID:         msgID,
		CorrelationID: ingest.CorrelationID(testChat, origin),
		Timestamp:     ts,
		EmployeeID:    employeeID,
	})
}

// eventOnly stores an event whose raw message is missing.
func (f *fixture) eventOnly(channel domain.Channel, typ domain.EventType, msgID, replyTo int64, ts time.Time, employeeID string) {
	f.store.AddEvent(domain.Event{
		SourceChannel: channel,
		Type:          typ,
		ChatID:        testChat,
		MsgID:         msgID,
		CorrelationID: ingest.CorrelationID(testChat, replyTo),
		Timestamp:     ts,
		EmployeeID:    employeeID,
	})
}

func intPtr(v int) *int { return &v }
