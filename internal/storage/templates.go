package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetActiveTemplate returns the most recently updated active template.
func (db *DB) GetActiveTemplate(ctx context.Context, channel, name string) (string, bool, error) {
	var body string

	err := db.conn().QueryRow(ctx, `
		SELECT template
		FROM admin_notifications
		WHERE channel = $1 AND name = $2 AND is_active
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
	`, channel, name).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("get active template: %w", err)
	}

	return body, true, nil
}
