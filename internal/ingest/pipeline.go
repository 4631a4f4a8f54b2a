package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	"github.com/lueurxax/support-kpi/internal/core/ports"
	"github.com/lueurxax/support-kpi/internal/identity"
	"github.com/lueurxax/support-kpi/internal/ingest/classify"
	"github.com/lueurxax/support-kpi/internal/platform/observability"
)

const (
	logFieldChatID      = "chat_id"
	logFieldMsgID       = "msg_id"
	logFieldChannel     = "channel"
	logFieldType        = "type"
	logFieldCorrelation = "correlation_id"
	logFieldActorKey    = "actor_key"
)

// Store is the persistence the pipeline writes to.
type Store interface {
	ports.RawMessageRepository
	ports.EventRepository
}

// IdentityResolver attributes actors to employees.
type IdentityResolver interface {
	Resolve(ctx context.Context, actorKey string) (string, error)
	EnsurePending(ctx context.Context, actorKey, hintName, hintTeam string) (bool, error)
}

// Result is the webhook outcome.
type Result struct {
	HasMessage bool
	Stored     bool
	Type       domain.EventType
	Channel    domain.Channel
}

// Pipeline runs parse, raw store, classify, correlate, resolve and event store
// for one webhook update.
type Pipeline struct {
	store      Store
	identities IdentityResolver
	routing    ChannelRouting
	logger     *zerolog.Logger
}

func NewPipeline(store Store, identities IdentityResolver, routing ChannelRouting, logger *zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		identities: identities,
		routing:    routing,
		logger:     logger,
	}
}

// Ingest processes one webhook body. Re-delivery of the same update stores
// nothing new. Edited messages are kept raw and produce no event. Identity
// failures are logged and the event is stored unattributed.
func (p *Pipeline) Ingest(ctx context.Context, body []byte) (Result, error) {
	start := time.Now()
	defer func() {
		observability.IngestDuration.Observe(time.Since(start).Seconds())
	}()

	msg, err := ParseUpdate(body)
	if err != nil {
		return Result{}, err
	}

	if msg == nil {
		return Result{}, nil
	}

	channel := p.routing.Channel(msg.ChatID)

	inserted, err := p.store.SaveRawMessage(ctx, &domain.RawMessage{
		UpdateID:     msg.UpdateID,
		ChatID:       msg.ChatID,
		MsgID:        msg.MsgID,
		FromUserID:   msg.UserID,
		FromUsername: msg.Username,
		Timestamp:    msg.Timestamp,
		ChannelTag:   channel,
		Kind:         msg.Kind,
		RawPayload:   msg.Raw,
	})
	if err != nil {
		p.logger.Warn().Err(err).Int64(logFieldChatID, msg.ChatID).Int64(logFieldMsgID, msg.MsgID).Msg("failed to save raw message")

		return Result{}, fmt.Errorf("ingest update: %w", err)
	}

	if !inserted {
		observability.DuplicateRawMessages.Inc()
	}

	// Edits keep the original date; classifying them would add events to closed threads.
	if msg.Kind == domain.KindEdit {
		p.logger.Debug().Int64(logFieldChatID, msg.ChatID).Int64(logFieldMsgID, msg.MsgID).Msg("edited message stored without event")

		return Result{HasMessage: true, Channel: channel}, nil
	}

	res := classify.Classify(classify.Input{Text: msg.Text, Channel: channel, IsReply: msg.IsReply()})

	actorKey := identity.ActorKey(msg.UserID, msg.Username)
	employeeID := p.attribute(ctx, actorKey, nameHint(res, msg), channel)

	ev := &domain.Event{
		SourceChannel: channel,
		Type:          res.Type,
		ChatID:        msg.ChatID,
		MsgID:         msg.MsgID,
		CorrelationID: msg.CorrelationID(),
		Timestamp:     msg.Timestamp,
		FromUserID:    msg.UserID,
		FromUsername:  msg.Username,
		EmployeeID:    employeeID,
		Payload:       res.PayloadJSON(),
	}

	stored, err := p.store.InsertEventIfAbsent(ctx, ev)
	if err != nil {
		p.logger.Warn().Err(err).Str(logFieldCorrelation, ev.CorrelationID).Str(logFieldType, string(ev.Type)).Msg("failed to store event")

		return Result{}, fmt.Errorf("ingest update: %w", err)
	}

	observability.WebhookUpdates.WithLabelValues(string(channel), string(res.Type)).Inc()

	if !stored {
		observability.DuplicateEvents.WithLabelValues(string(res.Type)).Inc()
	}

	p.logger.Debug().
		Int64(logFieldChatID, msg.ChatID).
		Int64(logFieldMsgID, msg.MsgID).
		Str(logFieldChannel, string(channel)).
		Str(logFieldType, string(res.Type)).
		Str(logFieldCorrelation, ev.CorrelationID).
		Bool("stored", stored).
		Msg("event ingested")

	return Result{HasMessage: true, Stored: stored, Type: res.Type, Channel: channel}, nil
}

func (p *Pipeline) attribute(ctx context.Context, actorKey, hint string, channel domain.Channel) string {
	if actorKey == identity.UnknownActor {
		return ""
	}

	employeeID, err := p.identities.Resolve(ctx, actorKey)
	if err != nil {
		p.logger.Warn().Err(err).Str(logFieldActorKey, actorKey).Msg("identity lookup failed")

		return ""
	}

	if employeeID != "" {
		return employeeID
	}

	if _, err := p.identities.EnsurePending(ctx, actorKey, hint, hintTeam(channel)); err != nil {
		p.logger.Warn().Err(err).Str(logFieldActorKey, actorKey).Msg("failed to record pending identity")
	}

	return ""
}

// nameHint prefers the attendance person, then the username, then the display name.
func nameHint(res classify.Result, msg *Message) string {
	if person := res.Person(); person != "" {
		return person
	}

	if msg.Username != "" {
		return strings.TrimPrefix(msg.Username, "@")
	}

	return msg.FullName
}

func hintTeam(channel domain.Channel) string {
	if channel.IsSupportQueue() {
		return string(channel)
	}

	return ""
}
