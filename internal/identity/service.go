// Package identity maps chat actors to employees and implements the
// admin binding operations.
package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	errs "github.com/lueurxax/support-kpi/internal/core/errors"
	"github.com/lueurxax/support-kpi/internal/core/ports"
	"github.com/lueurxax/support-kpi/internal/platform/observability"
)

const (
	// EmployeePrefix is used for employees created during binding.
	EmployeePrefix = "RD-"

	defaultPendingLimit = 50
	// DefaultSinceDays is the backfill scan window when the caller gives none.
	DefaultSinceDays = 90

	logFieldActorKey   = "actor_key"
	logFieldEmployeeID = "employee_id"
)

// Repository is the storage the service needs.
type Repository interface {
	ports.BindingStore
}

// Service resolves and binds identities.
type Service struct {
	repo   Repository
	logger *zerolog.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for retro windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(repo Repository, logger *zerolog.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, logger: logger, now: time.Now}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Resolve returns the confirmed employee id for the actor, or "" when unbound.
func (s *Service) Resolve(ctx context.Context, actorKey string) (string, error) {
	if actorKey == UnknownActor {
		return "", nil
	}

	ident, err := s.repo.GetIdentity(ctx, actorKey)
	if err != nil {
		return "", fmt.Errorf("resolve identity: %w", err)
	}

	if ident == nil || ident.Status != domain.IdentityConfirmed {
		return "", nil
	}

	return ident.EmployeeID, nil
}

// EnsurePending records an unresolved actor, or fills empty hints on an existing row.
// It reports whether a new pending row was created.
func (s *Service) EnsurePending(ctx context.Context, actorKey, hintName, hintTeam string) (bool, error) {
	if actorKey == UnknownActor {
		return false, nil
	}

	created, err := s.repo.CreatePendingIdentity(ctx, &domain.EmployeeIdentity{
		ActorKey: actorKey,
		Status:   domain.IdentityPending,
		HintName: hintName,
		HintTeam: hintTeam,
	})
	if err != nil {
		return false, fmt.Errorf("ensure pending identity: %w", err)
	}

	if created {
		observability.PendingIdentities.Inc()
		s.logger.Info().Str(logFieldActorKey, actorKey).Str("hint_name", hintName).Msg("pending identity created")

		return true, nil
	}

	if hintName == "" && hintTeam == "" {
		return false, nil
	}

	if err := s.repo.FillIdentityHints(ctx, actorKey, hintName, hintTeam); err != nil {
		return false, fmt.Errorf("ensure pending identity: %w", err)
	}

	return false, nil
}

// ListPending returns pending identities, newest first.
func (s *Service) ListPending(ctx context.Context, limit, offset int) ([]domain.EmployeeIdentity, error) {
	if limit <= 0 {
		limit = defaultPendingLimit
	}

	if offset < 0 {
		offset = 0
	}

	rows, err := s.repo.ListPendingIdentities(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list pending identities: %w", err)
	}

	return rows, nil
}

// BindRequest is the admin binding action.
type BindRequest struct {
	ActorKey         string `json:"actor_key"`
	EmployeeID       string `json:"employee_id,omitempty"`
	CreateFullName   string `json:"create_full_name,omitempty"`
	CreateDepartment string `json:"create_department,omitempty"`
	RetroDays        int    `json:"retro_days"`
}

// BindResult reports what a binding changed.
type BindResult struct {
	ActorKey   string `json:"actor_key"`
	EmployeeID string `json:"employee_id"`
	RetroDays  int    `json:"retro_days"`
	Created    bool   `json:"created"`
	Backfilled int64  `json:"backfilled"`
}

// Bind confirms an actor against an existing employee, or a new RD- employee
// when EmployeeID is empty, then attributes the actor's unattributed events
// from the last RetroDays days.
func (s *Service) Bind(ctx context.Context, req BindRequest) (*BindResult, error) {
	actor, err := ParseActorKey(req.ActorKey)
	if err != nil {
		return nil, fmt.Errorf("bind identity: %w", err)
	}

	ident, err := s.repo.GetIdentity(ctx, req.ActorKey)
	if err != nil {
		return nil, fmt.Errorf("bind identity: %w", err)
	}

	if ident == nil {
		return nil, fmt.Errorf("bind %s: %w", req.ActorKey, errs.ErrIdentityNotFound)
	}

	telegramUsername := strings.TrimPrefix(actor.Username, "@")
	result := &BindResult{ActorKey: req.ActorKey, RetroDays: req.RetroDays}

	err = s.repo.WithTx(ctx, func(repo ports.BindingRepository) error {
		if req.EmployeeID != "" {
			emp, err := repo.GetEmployee(ctx, req.EmployeeID)
			if err != nil {
				return err
			}

			if emp == nil {
				return fmt.Errorf("bind %s: %w", req.EmployeeID, errs.ErrEmployeeNotFound)
			}

			if err := repo.LinkEmployeeTelegram(ctx, emp.EmployeeID, actor.UserID, telegramUsername, req.CreateDepartment); err != nil {
				return err
			}

			result.EmployeeID = emp.EmployeeID
		} else {
			fullName := firstNonEmpty(req.CreateFullName, ident.HintName)

			emp, err := createEmployee(ctx, repo, fullName, req.CreateDepartment, actor.UserID, telegramUsername)
			if err != nil {
				return err
			}

			result.EmployeeID = emp.EmployeeID
			result.Created = true
		}

		if err := repo.ConfirmIdentity(ctx, req.ActorKey, result.EmployeeID); err != nil {
			return err
		}

		if req.RetroDays > 0 {
			since := s.now().AddDate(0, 0, -req.RetroDays)

			updated, err := repo.AssignEventsEmployee(ctx, actor, result.EmployeeID, since)
			if err != nil {
				return err
			}

			result.Backfilled = updated
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bind identity: %w", err)
	}

	s.logger.Info().
		Str(logFieldActorKey, req.ActorKey).
		Str(logFieldEmployeeID, result.EmployeeID).
		Bool("created", result.Created).
		Int64("backfilled", result.Backfilled).
		Msg("identity bound")

	return result, nil
}

func createEmployee(ctx context.Context, repo ports.EmployeeRepository, fullName, department string, userID *int64, username string) (*domain.Employee, error) {
	last, err := repo.LastEmployeeIDWithPrefix(ctx, EmployeePrefix)
	if err != nil {
		return nil, fmt.Errorf("next employee id: %w", err)
	}

	id := NextEmployeeID(EmployeePrefix, last)

	emp := &domain.Employee{
		EmployeeID:       id,
		FullName:         firstNonEmpty(fullName, "Personel "+id),
		Department:       department,
		Status:           "active",
		TelegramUserID:   userID,
		TelegramUsername: username,
	}

	if err := repo.CreateEmployee(ctx, emp); err != nil {
		return nil, fmt.Errorf("create employee: %w", err)
	}

	return emp, nil
}

// BackfillResult summarizes a scan of historical events.
type BackfillResult struct {
	SinceDays            int `json:"since_days"`
	PendingInserted      int `json:"pending_inserted"`
	AutoCreatedEmployees int `json:"auto_created_employees"`
	ScannedActors        int `json:"scanned_actors"`
	NewActorKeys         int `json:"new_actor_keys"`
}

// BackfillFromEvents creates identity rows for actors seen in events but never
// registered. With autoCreate each new actor gets an RD- employee and a
// confirmed identity; otherwise a pending row.
func (s *Service) BackfillFromEvents(ctx context.Context, sinceDays int, autoCreate bool) (*BackfillResult, error) {
	var since time.Time
	if sinceDays > 0 {
		since = s.now().AddDate(0, 0, -sinceDays)
	}

	actors, err := s.repo.ListEventActors(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("backfill identities: %w", err)
	}

	existing, err := s.repo.ListActorKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("backfill identities: %w", err)
	}

	result := &BackfillResult{SinceDays: sinceDays, ScannedActors: len(actors)}

	for _, actor := range actors {
		key := ActorKey(actor.FromUserID, actor.FromUsername)
		if key == UnknownActor {
			continue
		}

		if _, ok := existing[key]; ok {
			continue
		}

		existing[key] = struct{}{}
		result.NewActorKeys++

		hint := actorHint(actor)

		if !autoCreate {
			created, err := s.repo.CreatePendingIdentity(ctx, &domain.EmployeeIdentity{
				ActorKey: key,
				Status:   domain.IdentityPending,
				HintName: hint,
			})
			if err != nil {
				return nil, fmt.Errorf("backfill identities: %w", err)
			}

			if created {
				result.PendingInserted++
			}

			continue
		}

		err := s.repo.WithTx(ctx, func(repo ports.BindingRepository) error {
			emp, err := createEmployee(ctx, repo, hint, "", nil, "")
			if err != nil {
				return err
			}

			_, err = repo.CreatePendingIdentity(ctx, &domain.EmployeeIdentity{
				ActorKey:   key,
				EmployeeID: emp.EmployeeID,
				Status:     domain.IdentityConfirmed,
				HintName:   hint,
			})

			return err
		})
		if err != nil {
			return nil, fmt.Errorf("backfill identities: %w", err)
		}

		result.AutoCreatedEmployees++
	}

	s.logger.Info().
		Int("since_days", sinceDays).
		Int("new_actor_keys", result.NewActorKeys).
		Int("pending_inserted", result.PendingInserted).
		Int("auto_created", result.AutoCreatedEmployees).
		Msg("identity backfill finished")

	return result, nil
}

// actorHint prefers the attendance person name, then the bare username.
func actorHint(actor domain.EventActor) string {
	if actor.Channel == domain.ChannelMesai && len(actor.Payload) > 0 {
		var payload struct {
			Person string `json:"person"`
		}

		if err := json.Unmarshal(actor.Payload, &payload); err == nil && payload.Person != "" {
			return payload.Person
		}
	}

	return strings.TrimPrefix(actor.FromUsername, "@")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return ""
}
