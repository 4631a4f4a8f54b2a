// Package report renders KPI aggregates into chat messages and dispatches
// them to the configured report chats.
package report

import (
	"context"
	"regexp"

	"github.com/rs/zerolog"
)

const (
	logFieldChannel  = "channel"
	logFieldTemplate = "template"
	logFieldKind     = "kind"
	logFieldPeriod   = "period_key"
	logFieldChatID   = "chat_id"
)

var tokenRegex = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// TemplateSource returns the active template body for a channel and name.
type TemplateSource interface {
	GetActiveTemplate(ctx context.Context, channel, name string) (string, bool, error)
}

// Renderer substitutes {name} tokens into stored or built-in templates.
type Renderer struct {
	templates TemplateSource
	logger    *zerolog.Logger
}

func NewRenderer(templates TemplateSource, logger *zerolog.Logger) *Renderer {
	return &Renderer{templates: templates, logger: logger}
}

// Render uses the active stored template when one exists and the fallback
// otherwise. A failed lookup is logged and also falls back.
func (r *Renderer) Render(ctx context.Context, channel, name, fallback string, values map[string]string) string {
	body := fallback

	if r.templates != nil {
		stored, ok, err := r.templates.GetActiveTemplate(ctx, channel, name)

		switch {
		case err != nil:
			r.logger.Warn().Err(err).Str(logFieldChannel, channel).Str(logFieldTemplate, name).Msg("template lookup failed, using built-in")
		case ok && stored != "":
			body = stored
		}
	}

	return Substitute(body, values)
}

// Substitute replaces every {key} present in values. Unknown tokens stay as written.
func Substitute(body string, values map[string]string) string {
	return tokenRegex.ReplaceAllStringFunc(body, func(token string) string {
		if v, ok := values[token[1:len(token)-1]]; ok {
			return v
		}

		return token
	})
}
