package kpi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/support-kpi/internal/core/domain"
)

func TestBuildThreads_PicksAttributedEvents(t *testing.T) {
	type step struct {
		typ        domain.EventType
		msgID      int64
		replyTo    int64
		offset     time.Duration
		employeeID string
	}

	tests := []struct {
		name        string
		steps       []step
		wantCloser  string
		wantClose   *float64
		wantReplier string
		wantFirst   *float64
	}{
		{
			name: "requester follow-up does not close the thread",
			steps: []step{
				{domain.EventReplyFirst, 2, 1, 30 * time.Second, "RD-001"},
				{domain.EventReplyClose, 3, 2, 2 * time.Minute, ""},
				{domain.EventApprove, 4, 3, 10 * time.Minute, "RD-002"},
			},
			wantCloser:  "RD-002",
			wantClose:   floatPtr(600),
			wantReplier: "RD-001",
			wantFirst:   floatPtr(30),
		},
		{
			name: "earliest attributed close wins",
			steps: []step{
				{domain.EventReject, 2, 1, 5 * time.Minute, "RD-002"},
				{domain.EventApprove, 3, 1, 4 * time.Minute, "RD-003"},
			},
			wantCloser: "RD-003",
			wantClose:  floatPtr(240),
		},
		{
			name: "unattributed close counts when nothing else exists",
			steps: []step{
				{domain.EventReplyClose, 2, 1, 3 * time.Minute, ""},
			},
			wantClose: floatPtr(180),
		},
		{
			name: "attributed first reply beats an earlier unknown actor",
			steps: []step{
				{domain.EventReplyFirst, 2, 1, 20 * time.Second, ""},
				{domain.EventReplyFirst, 3, 1, 50 * time.Second, "RD-001"},
			},
			wantReplier: "RD-001",
			wantFirst:   floatPtr(50),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			origin := f.at(10, 0, 0)

			f.event(domain.ChannelBonus, domain.EventOrigin, 1, 0, origin, "")

			for _, s := range tt.steps {
				f.event(domain.ChannelBonus, s.typ, s.msgID, s.replyTo, origin.Add(s.offset), s.employeeID)
			}

			set, err := BuildThreads(context.Background(), NewWalker(f.store), f.store.Events())
			require.NoError(t, err)
			require.Len(t, set.Threads, 1)

			th := set.Threads[0]
			assert.Equal(t, "-1001:1", th.ThreadKey)
			assert.Equal(t, tt.wantCloser, th.CloserEmployeeID)
			assert.Equal(t, tt.wantClose, th.CloseSec)
			assert.Equal(t, tt.wantReplier, th.ReplierID)
			assert.Equal(t, tt.wantFirst, th.FirstResponseSec)
		})
	}
}

func floatPtr(v float64) *float64 { return &v }
