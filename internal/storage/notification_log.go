package db

import (
	"context"
	"fmt"
)

func (db *DB) NotificationSent(ctx context.Context, channel, kind, periodKey string) (bool, error) {
	var exists bool

	err := db.conn().QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM admin_notifications_log
			WHERE channel = $1 AND type = $2 AND period_key = $3
		)
	`, channel, kind, periodKey).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check notification log: %w", err)
	}

	return exists, nil
}

func (db *DB) MarkNotificationSent(ctx context.Context, channel, kind, periodKey string) error {
	_, err := db.conn().Exec(ctx, `
		INSERT INTO admin_notifications_log (channel, type, period_key)
		VALUES ($1, $2, $3)
		ON CONFLICT (channel, type, period_key) DO UPDATE SET sent_at = NOW()
	`, channel, kind, periodKey)
	if err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}

	return nil
}
