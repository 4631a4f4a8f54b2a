// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing business logic to remain independent of infrastructure concerns.
package ports

import (
	"context"
	"time"

	"github.com/lueurxax/support-kpi/internal/core/domain"
)

// SettingsStore reads and writes admin switches stored as text values.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// RawMessageRepository persists webhook messages verbatim.
type RawMessageRepository interface {
	// SaveRawMessage inserts the message unless (chat_id, msg_id) already exists.
	// It reports whether a row was inserted.
	SaveRawMessage(ctx context.Context, msg *domain.RawMessage) (bool, error)
	// GetRawMessage returns nil, nil when the message is not stored.
	GetRawMessage(ctx context.Context, chatID, msgID int64) (*domain.RawMessage, error)
}

// EventRepository persists classified events. Events are never updated on the ingestion path.
type EventRepository interface {
	// InsertEventIfAbsent is a no-op when (correlation_id, type) exists. It reports whether a row was inserted.
	InsertEventIfAbsent(ctx context.Context, ev *domain.Event) (bool, error)
	ListEvents(ctx context.Context, q domain.EventQuery) ([]domain.Event, error)
	// EventStats counts raw messages and events by type and channel.
	EventStats(ctx context.Context) (domain.EventStats, error)
}

// ActorMatch identifies the events produced by one chat actor.
type ActorMatch struct {
	UserID   *int64
	Username string
}

// IdentityRepository tracks actor to employee bindings.
type IdentityRepository interface {
	// GetIdentity returns nil, nil when the actor key is unknown.
	GetIdentity(ctx context.Context, actorKey string) (*domain.EmployeeIdentity, error)
	// CreatePendingIdentity inserts a pending row unless the actor key exists.
	CreatePendingIdentity(ctx context.Context, ident *domain.EmployeeIdentity) (bool, error)
	// FillIdentityHints sets hint fields that are still empty.
	FillIdentityHints(ctx context.Context, actorKey, hintName, hintTeam string) error
	ConfirmIdentity(ctx context.Context, actorKey, employeeID string) error
	ListPendingIdentities(ctx context.Context, limit, offset int) ([]domain.EmployeeIdentity, error)
	ListActorKeys(ctx context.Context) (map[string]struct{}, error)
	// AssignEventsEmployee backfills employee_id on the actor's unattributed events since the given time.
	AssignEventsEmployee(ctx context.Context, actor ActorMatch, employeeID string, since time.Time) (int64, error)
	ListEventActors(ctx context.Context, since time.Time) ([]domain.EventActor, error)
}

// EmployeeRepository reads the employee directory and creates employees during identity binding.
type EmployeeRepository interface {
	// ListEmployees returns every employee when department is empty.
	ListEmployees(ctx context.Context, department string) ([]domain.Employee, error)
	// GetEmployee returns nil, nil when the id is unknown.
	GetEmployee(ctx context.Context, employeeID string) (*domain.Employee, error)
	CreateEmployee(ctx context.Context, emp *domain.Employee) error
	// LinkEmployeeTelegram fills telegram and department fields that are still empty.
	LinkEmployeeTelegram(ctx context.Context, employeeID string, userID *int64, username, department string) error
	// LastEmployeeIDWithPrefix returns "" when no id carries the prefix.
	LastEmployeeIDWithPrefix(ctx context.Context, prefix string) (string, error)
}

// BindingRepository is the repository surface one identity binding writes through.
type BindingRepository interface {
	IdentityRepository
	EmployeeRepository
}

// BindingStore scopes a binding to one transaction. WithTx commits when fn
// returns nil and rolls back every write made through repo otherwise.
type BindingStore interface {
	BindingRepository
	WithTx(ctx context.Context, fn func(repo BindingRepository) error) error
}

// TemplateRepository returns active message templates.
type TemplateRepository interface {
	GetActiveTemplate(ctx context.Context, channel, name string) (string, bool, error)
}

// NotificationLogRepository records delivered scheduled reports.
type NotificationLogRepository interface {
	NotificationSent(ctx context.Context, channel, kind, periodKey string) (bool, error)
	MarkNotificationSent(ctx context.Context, channel, kind, periodKey string) error
}

// Locker guards scheduled jobs against overlapping runs across instances.
type Locker interface {
	TryAcquireAdvisoryLock(ctx context.Context, lockID int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, lockID int64) error
}
