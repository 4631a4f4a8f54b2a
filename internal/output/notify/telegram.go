// Package notify delivers rendered reports to Telegram chats through the Bot API.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout = 5 * time.Second

	logFieldChatID = "chat_id"
	logFieldParts  = "parts"
)

// Sender delivers one text message to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// messageAPI is the part of *tgbotapi.BotAPI used for delivery.
type messageAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Options control message formatting and delivery timeouts.
type Options struct {
	Timeout        time.Duration
	ParseMarkdown  bool
	DisablePreview bool
}

// TelegramSender sends messages with the bot token. Delivery is not retried;
// a failed part aborts the remaining parts.
type TelegramSender struct {
	api     messageAPI
	opts    Options
	timeout time.Duration
	logger  *zerolog.Logger
}

// NewTelegramSender authenticates the bot token. The HTTP client carries the
// per-request timeout.
func NewTelegramSender(token string, opts Options, logger *zerolog.Logger) (*TelegramSender, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("creating bot API: %w", err)
	}

	return newTelegramSender(api, opts, logger), nil
}

func newTelegramSender(api messageAPI, opts Options, logger *zerolog.Logger) *TelegramSender {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &TelegramSender{api: api, opts: opts, timeout: timeout, logger: logger}
}

// Send splits text at the Telegram length limit and sends the parts in order.
func (s *TelegramSender) Send(ctx context.Context, chatID int64, text string) error {
	parts := Split(text, MaxMessageUnits)

	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		if s.opts.ParseMarkdown {
			msg.ParseMode = tgbotapi.ModeMarkdown
		}

		msg.DisableWebPagePreview = s.opts.DisablePreview

		if err := s.sendOne(ctx, msg); err != nil {
			return fmt.Errorf("send report part %d to chat %d: %w", i+1, chatID, err)
		}
	}

	s.logger.Debug().Int64(logFieldChatID, chatID).Int(logFieldParts, len(parts)).Msg("report delivered")

	return nil
}

// sendOne bounds a blocking Bot API call by the context and the send timeout.
func (s *TelegramSender) sendOne(ctx context.Context, msg tgbotapi.MessageConfig) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		_, err := s.api.Send(msg)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("telegram send: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}

		return nil
	}
}

// LogSender logs messages instead of sending them. It is used when no bot
// token is configured.
type LogSender struct {
	logger *zerolog.Logger
}

func NewLogSender(logger *zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, chatID int64, text string) error {
	s.logger.Info().Int64(logFieldChatID, chatID).Str("text", text).Msg("report not delivered: no bot token")

	return nil
}
