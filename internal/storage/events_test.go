package db

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lueurxax/support-kpi/internal/core/domain"
)

func TestBuildEventQuery(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	tests := []struct {
		name      string
		query     domain.EventQuery
		wantWhere string
		wantArgs  int
	}{
		{
			name:      "no filters",
			query:     domain.EventQuery{},
			wantWhere: "",
			wantArgs:  0,
		},
		{
			name:      "channel and half-open window",
			query:     domain.EventQuery{Channel: domain.ChannelBonus, From: from, To: to},
			wantWhere: " WHERE source_channel = $1 AND ts >= $2 AND ts < $3",
			wantArgs:  3,
		},
		{
			name: "types attributed employees",
			query: domain.EventQuery{
				Types:          domain.CloseTypes,
				AttributedOnly: true,
				EmployeeIDs:    []string{"RD-001"},
			},
			wantWhere: " WHERE type = ANY($1) AND employee_id IS NOT NULL AND employee_id = ANY($2)",
			wantArgs:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := buildEventQuery(tt.query)

			assert.Len(t, args, tt.wantArgs)
			assert.Contains(t, sql, "FROM events"+tt.wantWhere+" ORDER BY ts, id")
		})
	}
}

func TestBuildEventQuery_OrderAndLimit(t *testing.T) {
	tests := []struct {
		name     string
		query    domain.EventQuery
		wantTail string
		wantArgs int
	}{
		{"newest first", domain.EventQuery{Order: domain.EventOrderNewest}, " ORDER BY ts DESC, id DESC", 0},
		{"last inserted with limit", domain.EventQuery{Order: domain.EventOrderLastInserted, Limit: 10}, " ORDER BY inserted_at DESC, id DESC LIMIT $1", 1},
		{"employee feed", domain.EventQuery{EmployeeIDs: []string{"RD-001"}, Order: domain.EventOrderNewest, Limit: 50},
			" WHERE employee_id = ANY($1) ORDER BY ts DESC, id DESC LIMIT $2", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := buildEventQuery(tt.query)

			assert.Len(t, args, tt.wantArgs)
			assert.True(t, strings.HasSuffix(sql, tt.wantTail), sql)
		})
	}
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "ok", SanitizeUTF8("ok"))
	assert.Equal(t, "ab", SanitizeUTF8("a\xffb"))
	assert.Empty(t, SanitizeUTF8(""))
}

func TestJSONOrEmpty(t *testing.T) {
	assert.Equal(t, []byte("{}"), jsonOrEmpty(nil))
	assert.Equal(t, []byte(`{"a":1}`), jsonOrEmpty([]byte(`{"a":1}`)))
}
