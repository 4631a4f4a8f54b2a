package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errAPIDown = errors.New("api down")

type fakeAPI struct {
	mu    sync.Mutex
	sent  []tgbotapi.MessageConfig
	err   error
	delay time.Duration
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}

	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}

	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func TestTelegramSender_Send(t *testing.T) {
	logger := zerolog.Nop()
	api := &fakeAPI{}
	sender := newTelegramSender(api, Options{ParseMarkdown: true, DisablePreview: true}, &logger)

	require.NoError(t, sender.Send(context.Background(), -100, "*rapor*"))

	require.Len(t, api.sent, 1)
	assert.Equal(t, int64(-100), api.sent[0].ChatID)
	assert.Equal(t, "*rapor*", api.sent[0].Text)
	assert.Equal(t, tgbotapi.ModeMarkdown, api.sent[0].ParseMode)
	assert.True(t, api.sent[0].DisableWebPagePreview)
}

func TestTelegramSender_PlainText(t *testing.T) {
	logger := zerolog.Nop()
	api := &fakeAPI{}
	sender := newTelegramSender(api, Options{}, &logger)

	require.NoError(t, sender.Send(context.Background(), 1, "plain"))

	require.Len(t, api.sent, 1)
	assert.Empty(t, api.sent[0].ParseMode)
	assert.False(t, api.sent[0].DisableWebPagePreview)
}

func TestTelegramSender_SplitsLongMessages(t *testing.T) {
	logger := zerolog.Nop()
	api := &fakeAPI{}
	sender := newTelegramSender(api, Options{}, &logger)

	text := strings.Repeat(strings.Repeat("a", 999)+"\n", 5)

	require.NoError(t, sender.Send(context.Background(), 1, text))
	assert.Len(t, api.sent, 2)
}

func TestTelegramSender_Errors(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("api error", func(t *testing.T) {
		sender := newTelegramSender(&fakeAPI{err: errAPIDown}, Options{}, &logger)

		err := sender.Send(context.Background(), 1, "x")
		require.ErrorIs(t, err, errAPIDown)
	})

	t.Run("timeout", func(t *testing.T) {
		sender := newTelegramSender(&fakeAPI{delay: 200 * time.Millisecond}, Options{Timeout: 10 * time.Millisecond}, &logger)

		err := sender.Send(context.Background(), 1, "x")
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestLogSender(t *testing.T) {
	logger := zerolog.Nop()

	assert.NoError(t, NewLogSender(&logger).Send(context.Background(), 1, "x"))
}
