package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	errs "github.com/lueurxax/support-kpi/internal/core/errors"
)

// MaxTextRunes caps stored message text.
const MaxTextRunes = 2000

// Message is the part of a webhook update the pipeline works with.
type Message struct {
	UpdateID  int64
	ChatID    int64
	MsgID     int64
	ReplyToID int64
	UserID    *int64
	Username  string // with leading "@"
	FullName  string
	Text      string
	Timestamp time.Time
	Kind      domain.MessageKind
	Raw       json.RawMessage
}

// IsReply reports whether the message answers another message.
func (m Message) IsReply() bool {
	return m.ReplyToID != 0
}

// CorrelationID is "{chat_id}:{origin_msg_id}" where the origin is the
// replied-to message, or the message itself.
func (m Message) CorrelationID() string {
	origin := m.MsgID
	if m.IsReply() {
		origin = m.ReplyToID
	}

	return CorrelationID(m.ChatID, origin)
}

// CorrelationID formats a thread key.
func CorrelationID(chatID, originMsgID int64) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(originMsgID, 10)
}

// ParseUpdate decodes a webhook body. It returns nil, nil when the update
// carries no message, edited message or channel post.
func ParseUpdate(body []byte) (*Message, error) {
	var upd tgbotapi.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		return nil, fmt.Errorf("decode update: %w: %w", errs.ErrInvalidInput, err)
	}

	msg, kind := pickMessage(&upd)
	if msg == nil {
		return nil, nil //nolint:nilnil // nil,nil indicates an update without a message
	}

	if msg.Chat == nil {
		return nil, fmt.Errorf("decode update %d: %w: message without chat", upd.UpdateID, errs.ErrInvalidInput)
	}

	out := &Message{
		UpdateID:  int64(upd.UpdateID),
		ChatID:    msg.Chat.ID,
		MsgID:     int64(msg.MessageID),
		Text:      truncateRunes(firstText(msg), MaxTextRunes),
		Timestamp: time.Unix(int64(msg.Date), 0).UTC(),
		Kind:      kind,
		Raw:       json.RawMessage(body),
	}

	if msg.ReplyToMessage != nil {
		out.ReplyToID = int64(msg.ReplyToMessage.MessageID)

		if kind == domain.KindMessage {
			out.Kind = domain.KindReply
		}
	}

	if from := msg.From; from != nil {
		if from.ID != 0 {
			id := from.ID
			out.UserID = &id
		}

		if from.UserName != "" {
			out.Username = "@" + from.UserName
		}

		out.FullName = strings.TrimSpace(strings.TrimSpace(from.FirstName) + " " + strings.TrimSpace(from.LastName))
	}

	return out, nil
}

func pickMessage(upd *tgbotapi.Update) (*tgbotapi.Message, domain.MessageKind) {
	switch {
	case upd.Message != nil:
		return upd.Message, domain.KindMessage
	case upd.EditedMessage != nil:
		return upd.EditedMessage, domain.KindEdit
	case upd.ChannelPost != nil:
		return upd.ChannelPost, domain.KindChannelPost
	case upd.EditedChannelPost != nil:
		return upd.EditedChannelPost, domain.KindEdit
	default:
		return nil, ""
	}
}

func firstText(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}

	return msg.Caption
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	runes := []rune(s)

	return string(runes[:limit])
}

// ReplyParentID reads reply_to_message.message_id from a stored update body.
// It reports false when the message is not a reply or the body is unreadable.
func ReplyParentID(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var upd tgbotapi.Update
	if err := json.Unmarshal(raw, &upd); err != nil {
		return 0, false
	}

	msg, _ := pickMessage(&upd)
	if msg == nil || msg.ReplyToMessage == nil {
		return 0, false
	}

	return int64(msg.ReplyToMessage.MessageID), true
}
