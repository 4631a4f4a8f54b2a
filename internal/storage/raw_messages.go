package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lueurxax/support-kpi/internal/core/domain"
)

// SaveRawMessage stores a webhook message once per (chat_id, msg_id).
func (db *DB) SaveRawMessage(ctx context.Context, msg *domain.RawMessage) (bool, error) {
	tag, err := db.conn().Exec(ctx, `
		INSERT INTO raw_messages (update_id, chat_id, msg_id, from_user_id, from_username, ts, channel_tag, kind, raw_payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (chat_id, msg_id) DO NOTHING
	`, msg.UpdateID, msg.ChatID, msg.MsgID, toInt8Ptr(msg.FromUserID), toText(msg.FromUsername),
		msg.Timestamp, string(msg.ChannelTag), string(msg.Kind), jsonOrEmpty(msg.RawPayload))
	if err != nil {
		return false, fmt.Errorf("save raw message: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (db *DB) GetRawMessage(ctx context.Context, chatID, msgID int64) (*domain.RawMessage, error) {
	var (
		msg      domain.RawMessage
		userID   pgtype.Int8
		username pgtype.Text
		channel  string
		kind     string
	)

	err := db.conn().QueryRow(ctx, `
		SELECT id, COALESCE(update_id, 0), chat_id, msg_id, from_user_id, from_username, ts, channel_tag, kind, raw_payload, inserted_at
		FROM raw_messages
		WHERE chat_id = $1 AND msg_id = $2
	`, chatID, msgID).Scan(&msg.ID, &msg.UpdateID, &msg.ChatID, &msg.MsgID, &userID, &username,
		&msg.Timestamp, &channel, &kind, &msg.RawPayload, &msg.InsertedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // nil,nil indicates message not stored
		}

		return nil, fmt.Errorf("get raw message: %w", err)
	}

	msg.FromUserID = fromInt8Ptr(userID)
	msg.FromUsername = fromText(username)
	msg.ChannelTag = domain.Channel(channel)
	msg.Kind = domain.MessageKind(kind)

	return &msg, nil
}
