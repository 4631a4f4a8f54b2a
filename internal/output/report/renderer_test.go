package report

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/lueurxax/support-kpi/internal/core/ports/mocks"
)

var errTemplateDB = errors.New("template table missing")

type failingTemplates struct{}

func (failingTemplates) GetActiveTemplate(context.Context, string, string) (string, bool, error) {
	return "", false, errTemplateDB
}

func TestSubstitute(t *testing.T) {
	values := map[string]string{"date": "13.09.2025", "total_close": "4", "empty": ""}

	tests := []struct {
		name string
		body string
		want string
	}{
		{"known tokens", "{date}: {total_close}", "13.09.2025: 4"},
		{"unknown token kept", "{date} {nope}", "13.09.2025 {nope}"},
		{"repeated token", "{total_close}/{total_close}", "4/4"},
		{"empty value", "[{empty}]", "[]"},
		{"not a token", "{ date } {}", "{ date } {}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Substitute(tt.body, values))
		})
	}
}

func TestRenderer_StoredTemplateWins(t *testing.T) {
	logger := zerolog.Nop()
	store := mocks.NewStore()
	store.SetTemplate("bonus", "bonus_daily_v2", "custom {total_close}")

	r := NewRenderer(store, &logger)

	assert.Equal(t, "custom 7", r.Render(context.Background(), "bonus", "bonus_daily_v2", "fallback {total_close}", map[string]string{"total_close": "7"}))
	assert.Equal(t, "fallback 7", r.Render(context.Background(), "finans", "finans_daily_v2", "fallback {total_close}", map[string]string{"total_close": "7"}))
}

func TestRenderer_LookupFailureFallsBack(t *testing.T) {
	logger := zerolog.Nop()
	r := NewRenderer(failingTemplates{}, &logger)

	assert.Equal(t, "fallback", r.Render(context.Background(), "bonus", "x", "fallback", nil))
}
