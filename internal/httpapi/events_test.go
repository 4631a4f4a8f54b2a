package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/support-kpi/internal/core/domain"
)

func seedEvents(f *fixture) {
	userID := int64(501)
	base := time.Date(2025, 9, 12, 10, 0, 0, 0, time.UTC)

	// Stored out of timestamp order so insertion and ts orderings differ.
	f.events.AddEvent(domain.Event{
		SourceChannel: domain.ChannelBonus, Type: domain.EventReplyFirst, ChatID: -100, MsgID: 2,
		CorrelationID: "bonus:-100:1", Timestamp: base.Add(2 * time.Minute),
		FromUserID: &userID, EmployeeID: "RD-001", Payload: json.RawMessage(`{"text":"bakıyorum"}`),
	})
	f.events.AddEvent(domain.Event{
		SourceChannel: domain.ChannelBonus, Type: domain.EventReplyClose, ChatID: -100, MsgID: 3,
		CorrelationID: "bonus:-100:1", Timestamp: base.Add(10 * time.Minute),
		FromUsername: "agent_ali", EmployeeID: "RD-001",
	})
	f.events.AddEvent(domain.Event{
		SourceChannel: domain.ChannelFinans, Type: domain.EventOrigin, ChatID: -200, MsgID: 7,
		CorrelationID: "finans:-200:7", Timestamp: base.Add(-24 * time.Hour),
	})
	f.events.AddEvent(domain.Event{
		SourceChannel: domain.ChannelBonus, Type: domain.EventReplyFirst, ChatID: -100, MsgID: 9,
		CorrelationID: "bonus:-100:8", Timestamp: base.Add(-24 * time.Hour),
		EmployeeID: "RD-001",
	})
}

func TestEmployeeActivity(t *testing.T) {
	t.Run("newest first with payloads", func(t *testing.T) {
		f := newFixture(t)
		seedEvents(f)

		w := f.do(t, http.MethodGet, "/employees/RD-001/activity", "")
		require.Equal(t, http.StatusOK, w.Code)

		var items []activityItem
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		require.Len(t, items, 3)
		assert.Equal(t, []int64{2, 1, 4}, []int64{items[0].ID, items[1].ID, items[2].ID})
		assert.Equal(t, domain.EventReplyClose, items[0].Type)
		assert.Equal(t, "2025-09-12T10:10:00Z", items[0].Timestamp)
		assert.JSONEq(t, `{"text":"bakıyorum"}`, string(items[1].Payload))
	})

	t.Run("window and limit", func(t *testing.T) {
		f := newFixture(t)
		seedEvents(f)

		w := f.do(t, http.MethodGet, "/employees/RD-001/activity?from=2025-09-12&to=2025-09-13&limit=1", "")
		require.Equal(t, http.StatusOK, w.Code)

		var items []activityItem
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		require.Len(t, items, 1)
		assert.Equal(t, "bonus:-100:1", items[0].CorrelationID)
		assert.Equal(t, domain.EventReplyClose, items[0].Type)
	})

	t.Run("unknown employee is an empty list", func(t *testing.T) {
		f := newFixture(t)
		seedEvents(f)

		w := f.do(t, http.MethodGet, "/employees/RD-404/activity", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})

	tests := []struct {
		name   string
		target string
	}{
		{name: "limit zero", target: "/employees/RD-001/activity?limit=0"},
		{name: "limit too large", target: "/employees/RD-001/activity?limit=501"},
		{name: "bad from", target: "/employees/RD-001/activity?from=12.09.2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			w := f.do(t, http.MethodGet, tt.target, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	t.Run("store failure", func(t *testing.T) {
		f := newFixture(t)
		f.events.ListEventsFn = func(context.Context, domain.EventQuery) ([]domain.Event, error) {
			return nil, errTestStore
		}

		w := f.do(t, http.MethodGet, "/employees/RD-001/activity", "")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestEventStats(t *testing.T) {
	f := newFixture(t)
	seedEvents(f)

	w := f.do(t, http.MethodGet, "/debug/events/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"raw": 0,
		"events": 4,
		"by_type": {"reply_first": 2, "reply_close": 1, "origin": 1},
		"by_channel": {"bonus": 3, "finans": 1}
	}`, w.Body.String())
}

func TestLastEvents(t *testing.T) {
	t.Run("most recently stored first", func(t *testing.T) {
		f := newFixture(t)
		seedEvents(f)

		w := f.do(t, http.MethodGet, "/debug/events/last?limit=3", "")
		require.Equal(t, http.StatusOK, w.Code)

		var items []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		require.Len(t, items, 3)

		assert.EqualValues(t, 9, items[0]["msg_id"])
		assert.Nil(t, items[0]["from"])
		assert.EqualValues(t, 7, items[1]["msg_id"])
		assert.EqualValues(t, -200, items[1]["chat_id"])
		assert.Equal(t, "finans", items[1]["channel"])
		assert.Equal(t, "agent_ali", items[2]["from"])
	})

	t.Run("user id when no username", func(t *testing.T) {
		f := newFixture(t)
		seedEvents(f)

		w := f.do(t, http.MethodGet, "/debug/events/last", "")
		require.Equal(t, http.StatusOK, w.Code)

		var items []map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
		require.Len(t, items, 4)
		assert.EqualValues(t, 501, items[3]["from"])
	})

	t.Run("limit out of range", func(t *testing.T) {
		f := newFixture(t)

		w := f.do(t, http.MethodGet, "/debug/events/last?limit=101", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
