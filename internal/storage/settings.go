package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (db *DB) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string

	err := db.conn().QueryRow(ctx, `SELECT value FROM admin_settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("get setting: %w", err)
	}

	return value, true, nil
}

func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.conn().Exec(ctx, `
		INSERT INTO admin_settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`, key, value)
	if err != nil {
		return fmt.Errorf("set setting: %w", err)
	}

	return nil
}
