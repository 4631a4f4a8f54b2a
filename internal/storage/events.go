package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/support-kpi/internal/core/domain"
)

// InsertEventIfAbsent relies on the (correlation_id, type) unique constraint.
func (db *DB) InsertEventIfAbsent(ctx context.Context, ev *domain.Event) (bool, error) {
	tag, err := db.conn().Exec(ctx, `
		INSERT INTO events (source_channel, type, chat_id, msg_id, correlation_id, ts, from_user_id, from_username, employee_id, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (correlation_id, type) DO NOTHING
	`, string(ev.SourceChannel), string(ev.Type), ev.ChatID, ev.MsgID, ev.CorrelationID, ev.Timestamp,
		toInt8Ptr(ev.FromUserID), toText(ev.FromUsername), toText(ev.EmployeeID), jsonOrEmpty(ev.Payload))
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListEvents returns events matching the query in the requested order.
func (db *DB) ListEvents(ctx context.Context, q domain.EventQuery) ([]domain.Event, error) {
	query, args := buildEventQuery(q)

	rows, err := db.conn().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func buildEventQuery(q domain.EventQuery) (string, []any) {
	var (
		where []string
		args  []any
	)

	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if q.Channel != "" {
		add("source_channel = $%d", string(q.Channel))
	}

	if len(q.Types) > 0 {
		types := make([]string, len(q.Types))
		for i, t := range q.Types {
			types[i] = string(t)
		}

		add("type = ANY($%d)", types)
	}

	if !q.From.IsZero() {
		add("ts >= $%d", q.From)
	}

	if !q.To.IsZero() {
		add("ts < $%d", q.To)
	}

	if q.AttributedOnly {
		where = append(where, "employee_id IS NOT NULL")
	}

	if len(q.EmployeeIDs) > 0 {
		add("employee_id = ANY($%d)", q.EmployeeIDs)
	}

	var sb strings.Builder

	sb.WriteString(`SELECT id, source_channel, type, chat_id, msg_id, correlation_id, ts,
		from_user_id, from_username, employee_id, payload, inserted_at
		FROM events`)

	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	switch q.Order {
	case domain.EventOrderNewest:
		sb.WriteString(" ORDER BY ts DESC, id DESC")
	case domain.EventOrderLastInserted:
		sb.WriteString(" ORDER BY inserted_at DESC, id DESC")
	default:
		sb.WriteString(" ORDER BY ts, id")
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	return sb.String(), args
}

func scanEvents(rows pgx.Rows) ([]domain.Event, error) {
	events := make([]domain.Event, 0)

	for rows.Next() {
		var (
			ev         domain.Event
			channel    string
			eventType  string
			userID     pgtype.Int8
			username   pgtype.Text
			employeeID pgtype.Text
		)

		if err := rows.Scan(&ev.ID, &channel, &eventType, &ev.ChatID, &ev.MsgID, &ev.CorrelationID, &ev.Timestamp,
			&userID, &username, &employeeID, &ev.Payload, &ev.InsertedAt); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		ev.SourceChannel = domain.Channel(channel)
		ev.Type = domain.EventType(eventType)
		ev.FromUserID = fromInt8Ptr(userID)
		ev.FromUsername = fromText(username)
		ev.EmployeeID = fromText(employeeID)

		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}

// EventStats counts raw messages and events grouped by type and channel.
func (db *DB) EventStats(ctx context.Context) (domain.EventStats, error) {
	stats := domain.EventStats{ByType: map[string]int64{}, ByChannel: map[string]int64{}}

	if err := db.conn().QueryRow(ctx, `SELECT count(*) FROM raw_messages`).Scan(&stats.RawMessages); err != nil {
		return domain.EventStats{}, fmt.Errorf("count raw messages: %w", err)
	}

	rows, err := db.conn().Query(ctx, `
		SELECT type, source_channel, count(*)
		FROM events
		GROUP BY type, source_channel
	`)
	if err != nil {
		return domain.EventStats{}, fmt.Errorf("count events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventType, channel string
			n                  int64
		)

		if err := rows.Scan(&eventType, &channel, &n); err != nil {
			return domain.EventStats{}, fmt.Errorf("scan event count: %w", err)
		}

		stats.Events += n
		stats.ByType[eventType] += n
		stats.ByChannel[channel] += n
	}

	if err := rows.Err(); err != nil {
		return domain.EventStats{}, fmt.Errorf("iterate event counts: %w", err)
	}

	return stats, nil
}
