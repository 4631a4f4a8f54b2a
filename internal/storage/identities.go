package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	"github.com/lueurxax/support-kpi/internal/core/ports"
)

func (db *DB) GetIdentity(ctx context.Context, actorKey string) (*domain.EmployeeIdentity, error) {
	var (
		ident      domain.EmployeeIdentity
		employeeID pgtype.Text
		hintName   pgtype.Text
		hintTeam   pgtype.Text
		status     string
	)

	err := db.conn().QueryRow(ctx, `
		SELECT id, actor_key, employee_id, status, hint_name, hint_team, inserted_at
		FROM employee_identities
		WHERE actor_key = $1
	`, actorKey).Scan(&ident.ID, &ident.ActorKey, &employeeID, &status, &hintName, &hintTeam, &ident.InsertedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // nil,nil indicates unknown actor
		}

		return nil, fmt.Errorf("get identity: %w", err)
	}

	ident.EmployeeID = fromText(employeeID)
	ident.Status = domain.IdentityStatus(status)
	ident.HintName = fromText(hintName)
	ident.HintTeam = fromText(hintTeam)

	return &ident, nil
}

func (db *DB) CreatePendingIdentity(ctx context.Context, ident *domain.EmployeeIdentity) (bool, error) {
	status := ident.Status
	if status == "" {
		status = domain.IdentityPending
	}

	tag, err := db.conn().Exec(ctx, `
		INSERT INTO employee_identities (actor_key, employee_id, status, hint_name, hint_team)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (actor_key) DO NOTHING
	`, ident.ActorKey, toText(ident.EmployeeID), string(status), toText(ident.HintName), toText(ident.HintTeam))
	if err != nil {
		return false, fmt.Errorf("create pending identity: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// FillIdentityHints never overwrites hints that are already set.
func (db *DB) FillIdentityHints(ctx context.Context, actorKey, hintName, hintTeam string) error {
	_, err := db.conn().Exec(ctx, `
		UPDATE employee_identities
		SET hint_name = COALESCE(NULLIF(hint_name, ''), $2),
		    hint_team = COALESCE(NULLIF(hint_team, ''), $3)
		WHERE actor_key = $1
	`, actorKey, toText(hintName), toText(hintTeam))
	if err != nil {
		return fmt.Errorf("fill identity hints: %w", err)
	}

	return nil
}

// ConfirmIdentity upserts the binding so an actor never seen in chat can still be bound.
func (db *DB) ConfirmIdentity(ctx context.Context, actorKey, employeeID string) error {
	_, err := db.conn().Exec(ctx, `
		INSERT INTO employee_identities (actor_key, employee_id, status)
		VALUES ($1, $2, 'confirmed')
		ON CONFLICT (actor_key) DO UPDATE SET
			employee_id = EXCLUDED.employee_id,
			status = 'confirmed'
	`, actorKey, employeeID)
	if err != nil {
		return fmt.Errorf("confirm identity: %w", err)
	}

	return nil
}

func (db *DB) ListPendingIdentities(ctx context.Context, limit, offset int) ([]domain.EmployeeIdentity, error) {
	if limit <= 0 {
		limit = defaultPendingLimit
	}

	if limit > maxPendingLimit {
		limit = maxPendingLimit
	}

	rows, err := db.conn().Query(ctx, `
		SELECT id, actor_key, hint_name, hint_team, inserted_at
		FROM employee_identities
		WHERE status = 'pending'
		ORDER BY inserted_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query pending identities: %w", err)
	}
	defer rows.Close()

	identities := make([]domain.EmployeeIdentity, 0, limit)

	for rows.Next() {
		var (
			ident    = domain.EmployeeIdentity{Status: domain.IdentityPending}
			hintName pgtype.Text
			hintTeam pgtype.Text
		)

		if err := rows.Scan(&ident.ID, &ident.ActorKey, &hintName, &hintTeam, &ident.InsertedAt); err != nil {
			return nil, fmt.Errorf("scan pending identity row: %w", err)
		}

		ident.HintName = fromText(hintName)
		ident.HintTeam = fromText(hintTeam)
		identities = append(identities, ident)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending identity rows: %w", err)
	}

	return identities, nil
}

func (db *DB) ListActorKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := db.conn().Query(ctx, `SELECT actor_key FROM employee_identities`)
	if err != nil {
		return nil, fmt.Errorf("query actor keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan actor key row: %w", err)
		}

		keys[key] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actor key rows: %w", err)
	}

	return keys, nil
}

// AssignEventsEmployee matches by user id when known, otherwise by username.
func (db *DB) AssignEventsEmployee(ctx context.Context, actor ports.ActorMatch, employeeID string, since time.Time) (int64, error) {
	var (
		query string
		arg   any
	)

	switch {
	case actor.UserID != nil:
		query = `UPDATE events SET employee_id = $1 WHERE employee_id IS NULL AND ts >= $2 AND from_user_id = $3`
		arg = *actor.UserID
	case actor.Username != "":
		query = `UPDATE events SET employee_id = $1 WHERE employee_id IS NULL AND ts >= $2 AND from_username = $3`
		arg = actor.Username
	default:
		return 0, nil
	}

	tag, err := db.conn().Exec(ctx, query, employeeID, since, arg)
	if err != nil {
		return 0, fmt.Errorf("assign events employee: %w", err)
	}

	return tag.RowsAffected(), nil
}

// ListEventActors returns one row per distinct actor. A mesai event is preferred
// because its payload carries the person's name.
func (db *DB) ListEventActors(ctx context.Context, since time.Time) ([]domain.EventActor, error) {
	rows, err := db.conn().Query(ctx, `
		SELECT from_user_id, from_username, source_channel, payload, ts
		FROM (
			SELECT DISTINCT ON (COALESCE('uid:' || from_user_id::text, 'uname:' || from_username))
				from_user_id, from_username, source_channel, payload, ts
			FROM events
			WHERE ts >= $1
			  AND (from_user_id IS NOT NULL OR from_username IS NOT NULL)
			ORDER BY COALESCE('uid:' || from_user_id::text, 'uname:' || from_username),
			         (source_channel = 'mesai') DESC, ts DESC
		) actors
		ORDER BY ts DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("query event actors: %w", err)
	}
	defer rows.Close()

	actors := make([]domain.EventActor, 0)

	for rows.Next() {
		var (
			actor    domain.EventActor
			userID   pgtype.Int8
			username pgtype.Text
			channel  string
		)

		if err := rows.Scan(&userID, &username, &channel, &actor.Payload, &actor.LastSeen); err != nil {
			return nil, fmt.Errorf("scan event actor row: %w", err)
		}

		actor.FromUserID = fromInt8Ptr(userID)
		actor.FromUsername = fromText(username)
		actor.Channel = domain.Channel(channel)
		actors = append(actors, actor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event actor rows: %w", err)
	}

	return actors, nil
}
