package mocks

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	"github.com/lueurxax/support-kpi/internal/core/ports"
)

type rawKey struct {
	chatID int64
	msgID  int64
}

type eventKey struct {
	correlationID string
	eventType     domain.EventType
}

type templateKey struct {
	channel string
	name    string
}

var _ ports.BindingStore = (*Store)(nil)

// Store is a thread-safe in-memory implementation of the storage ports.
type Store struct {
	mu sync.RWMutex

	raw        map[rawKey]domain.RawMessage
	events     []domain.Event
	eventIndex map[eventKey]int
	identities map[string]domain.EmployeeIdentity
	employees  map[string]domain.Employee
	templates  map[templateKey]string
	sentLog    map[string]struct{}
	locks      map[int64]struct{}
	nextID     int64

	// RawLookups counts GetRawMessage calls.
	RawLookups int

	// InsertEventFn allows overriding InsertEventIfAbsent behavior.
	InsertEventFn func(ctx context.Context, ev *domain.Event) (bool, error)

	// ListEventsFn allows overriding ListEvents behavior.
	ListEventsFn func(ctx context.Context, q domain.EventQuery) ([]domain.Event, error)

	// ConfirmIdentityFn allows overriding ConfirmIdentity behavior.
	ConfirmIdentityFn func(ctx context.Context, actorKey, employeeID string) error
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		raw:        make(map[rawKey]domain.RawMessage),
		eventIndex: make(map[eventKey]int),
		identities: make(map[string]domain.EmployeeIdentity),
		employees:  make(map[string]domain.Employee),
		templates:  make(map[templateKey]string),
		sentLog:    make(map[string]struct{}),
		locks:      make(map[int64]struct{}),
	}
}

func (s *Store) id() int64 {
	s.nextID++

	return s.nextID
}

// SaveRawMessage inserts the message unless (chat_id, msg_id) exists.
func (s *Store) SaveRawMessage(_ context.Context, msg *domain.RawMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := rawKey{chatID: msg.ChatID, msgID: msg.MsgID}
	if _, ok := s.raw[key]; ok {
		return false, nil
	}

	stored := *msg
	stored.ID = s.id()
	s.raw[key] = stored

	return true, nil
}

// GetRawMessage returns nil, nil when the message is unknown.
func (s *Store) GetRawMessage(_ context.Context, chatID, msgID int64) (*domain.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.RawLookups++

	msg, ok := s.raw[rawKey{chatID: chatID, msgID: msgID}]
	if !ok {
		return nil, nil //nolint:nilnil // nil,nil indicates message not stored
	}

	return &msg, nil
}

// RawMessageCount returns the number of stored raw messages.
func (s *Store) RawMessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.raw)
}

// InsertEventIfAbsent is a no-op when (correlation_id, type) exists.
func (s *Store) InsertEventIfAbsent(ctx context.Context, ev *domain.Event) (bool, error) {
	if s.InsertEventFn != nil {
		return s.InsertEventFn(ctx, ev)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := eventKey{correlationID: ev.CorrelationID, eventType: ev.Type}
	if _, ok := s.eventIndex[key]; ok {
		return false, nil
	}

	stored := *ev
	stored.ID = s.id()
	s.eventIndex[key] = len(s.events)
	s.events = append(s.events, stored)

	return true, nil
}

// AddEvent stores an event directly, bypassing the uniqueness check.
func (s *Store) AddEvent(ev domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev.ID = s.id()
	s.eventIndex[eventKey{correlationID: ev.CorrelationID, eventType: ev.Type}] = len(s.events)
	s.events = append(s.events, ev)
}

// Events returns a copy of every stored event.
func (s *Store) Events() []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Event, len(s.events))
	copy(out, s.events)

	return out
}

// ListEvents filters stored events and applies the query order and limit.
// Insertion order follows the assigned ids.
func (s *Store) ListEvents(ctx context.Context, q domain.EventQuery) ([]domain.Event, error) {
	if s.ListEventsFn != nil {
		return s.ListEventsFn(ctx, q)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Event, 0)

	for _, ev := range s.events {
		if matchesQuery(ev, q) {
			out = append(out, ev)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		switch q.Order {
		case domain.EventOrderNewest:
			return out[i].Timestamp.After(out[j].Timestamp)
		case domain.EventOrderLastInserted:
			return out[i].ID > out[j].ID
		default:
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}

	return out, nil
}

// EventStats counts stored raw messages and events.
func (s *Store) EventStats(_ context.Context) (domain.EventStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.EventStats{
		RawMessages: int64(len(s.raw)),
		Events:      int64(len(s.events)),
		ByType:      map[string]int64{},
		ByChannel:   map[string]int64{},
	}

	for _, ev := range s.events {
		stats.ByType[string(ev.Type)]++
		stats.ByChannel[string(ev.SourceChannel)]++
	}

	return stats, nil
}

func matchesQuery(ev domain.Event, q domain.EventQuery) bool {
	if q.Channel != "" && ev.SourceChannel != q.Channel {
		return false
	}

	if len(q.Types) > 0 && !containsType(q.Types, ev.Type) {
		return false
	}

	if !q.From.IsZero() && ev.Timestamp.Before(q.From) {
		return false
	}

	if !q.To.IsZero() && !ev.Timestamp.Before(q.To) {
		return false
	}

	if q.AttributedOnly && !ev.Attributed() {
		return false
	}

	if len(q.EmployeeIDs) > 0 && !containsString(q.EmployeeIDs, ev.EmployeeID) {
		return false
	}

	return true
}

func containsType(types []domain.EventType, t domain.EventType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}

	return false
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}

	return false
}

// GetIdentity returns nil, nil for unknown actor keys.
func (s *Store) GetIdentity(_ context.Context, actorKey string) (*domain.EmployeeIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ident, ok := s.identities[actorKey]
	if !ok {
		return nil, nil //nolint:nilnil // nil,nil indicates unknown actor
	}

	return &ident, nil
}

// CreatePendingIdentity inserts a pending identity unless the key exists.
func (s *Store) CreatePendingIdentity(_ context.Context, ident *domain.EmployeeIdentity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.identities[ident.ActorKey]; ok {
		return false, nil
	}

	stored := *ident
	stored.ID = s.id()

	if stored.Status == "" {
		stored.Status = domain.IdentityPending
	}

	if stored.InsertedAt.IsZero() {
		stored.InsertedAt = time.Now()
	}

	s.identities[ident.ActorKey] = stored

	return true, nil
}

// FillIdentityHints sets hint fields that are still empty.
func (s *Store) FillIdentityHints(_ context.Context, actorKey, hintName, hintTeam string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident, ok := s.identities[actorKey]
	if !ok {
		return nil
	}

	if ident.HintName == "" {
		ident.HintName = hintName
	}

	if ident.HintTeam == "" {
		ident.HintTeam = hintTeam
	}

	s.identities[actorKey] = ident

	return nil
}

// ConfirmIdentity binds the actor to an employee, creating the row when absent.
func (s *Store) ConfirmIdentity(ctx context.Context, actorKey, employeeID string) error {
	if s.ConfirmIdentityFn != nil {
		return s.ConfirmIdentityFn(ctx, actorKey, employeeID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ident, ok := s.identities[actorKey]
	if !ok {
		ident = domain.EmployeeIdentity{ID: s.id(), ActorKey: actorKey, InsertedAt: time.Now()}
	}

	ident.EmployeeID = employeeID
	ident.Status = domain.IdentityConfirmed
	s.identities[actorKey] = ident

	return nil
}

// WithTx runs fn against the store and restores identities, employees and
// events when fn fails. Ids handed out inside fn are not reused, matching
// database sequences. Writers outside fn are not isolated from it.
func (s *Store) WithTx(_ context.Context, fn func(repo ports.BindingRepository) error) error {
	snap := s.snapshot()

	if err := fn(s); err != nil {
		s.restore(snap)

		return err
	}

	return nil
}

type storeSnapshot struct {
	events     []domain.Event
	eventIndex map[eventKey]int
	identities map[string]domain.EmployeeIdentity
	employees  map[string]domain.Employee
}

func (s *Store) snapshot() storeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return storeSnapshot{
		events:     slices.Clone(s.events),
		eventIndex: maps.Clone(s.eventIndex),
		identities: maps.Clone(s.identities),
		employees:  maps.Clone(s.employees),
	}
}

func (s *Store) restore(snap storeSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = snap.events
	s.eventIndex = snap.eventIndex
	s.identities = snap.identities
	s.employees = snap.employees
}

// SetIdentity stores an identity row directly.
func (s *Store) SetIdentity(ident domain.EmployeeIdentity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ident.ID = s.id()
	s.identities[ident.ActorKey] = ident
}

// ListPendingIdentities returns pending rows, newest first.
func (s *Store) ListPendingIdentities(_ context.Context, limit, offset int) ([]domain.EmployeeIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := make([]domain.EmployeeIdentity, 0)

	for _, ident := range s.identities {
		if ident.Status == domain.IdentityPending {
			pending = append(pending, ident)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].InsertedAt.Equal(pending[j].InsertedAt) {
			return pending[i].ID > pending[j].ID
		}

		return pending[i].InsertedAt.After(pending[j].InsertedAt)
	})

	return page(pending, limit, offset), nil
}

func page[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}

	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return rows[offset:end]
}

// ListActorKeys returns every known actor key.
func (s *Store) ListActorKeys(_ context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make(map[string]struct{}, len(s.identities))
	for key := range s.identities {
		keys[key] = struct{}{}
	}

	return keys, nil
}

// AssignEventsEmployee backfills employee_id on unattributed events of the actor.
func (s *Store) AssignEventsEmployee(_ context.Context, actor ports.ActorMatch, employeeID string, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var updated int64

	for i := range s.events {
		ev := &s.events[i]
		if ev.EmployeeID != "" || ev.Timestamp.Before(since) {
			continue
		}

		if !matchesActor(*ev, actor) {
			continue
		}

		ev.EmployeeID = employeeID
		updated++
	}

	return updated, nil
}

func matchesActor(ev domain.Event, actor ports.ActorMatch) bool {
	if actor.UserID != nil {
		return ev.FromUserID != nil && *ev.FromUserID == *actor.UserID
	}

	return actor.Username != "" && ev.FromUsername == actor.Username
}

// ListEventActors returns one row per distinct actor, preferring mesai events, then the latest.
func (s *Store) ListEventActors(_ context.Context, since time.Time) ([]domain.EventActor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	best := make(map[string]domain.Event)
	order := make([]string, 0)

	for _, ev := range s.events {
		if !since.IsZero() && ev.Timestamp.Before(since) {
			continue
		}

		key := actorIdentity(ev)
		if key == "" {
			continue
		}

		current, ok := best[key]
		if !ok {
			order = append(order, key)
			best[key] = ev

			continue
		}

		if preferActorEvent(ev, current) {
			best[key] = ev
		}
	}

	actors := make([]domain.EventActor, 0, len(order))

	for _, key := range order {
		ev := best[key]
		actors = append(actors, domain.EventActor{
			FromUserID:   ev.FromUserID,
			FromUsername: ev.FromUsername,
			Channel:      ev.SourceChannel,
			Payload:      ev.Payload,
			LastSeen:     ev.Timestamp,
		})
	}

	sort.SliceStable(actors, func(i, j int) bool {
		return actors[i].LastSeen.After(actors[j].LastSeen)
	})

	return actors, nil
}

func actorIdentity(ev domain.Event) string {
	if ev.FromUserID != nil {
		return fmt.Sprintf("uid:%d", *ev.FromUserID)
	}

	if ev.FromUsername != "" {
		return "uname:" + ev.FromUsername
	}

	return ""
}

func preferActorEvent(candidate, current domain.Event) bool {
	candidateMesai := candidate.SourceChannel == domain.ChannelMesai
	currentMesai := current.SourceChannel == domain.ChannelMesai

	if candidateMesai != currentMesai {
		return candidateMesai
	}

	return candidate.Timestamp.After(current.Timestamp)
}

// AddEmployee stores an employee directly.
func (s *Store) AddEmployee(emp domain.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.employees[emp.EmployeeID] = emp
}

// ListEmployees returns employees of a department, or all when department is empty.
func (s *Store) ListEmployees(_ context.Context, department string) ([]domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Employee, 0)

	for _, emp := range s.employees {
		if department == "" || emp.Department == department {
			out = append(out, emp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].EmployeeID < out[j].EmployeeID
	})

	return out, nil
}

// GetEmployee returns nil, nil for unknown ids.
func (s *Store) GetEmployee(_ context.Context, employeeID string) (*domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	emp, ok := s.employees[employeeID]
	if !ok {
		return nil, nil //nolint:nilnil // nil,nil indicates unknown employee
	}

	return &emp, nil
}

// CreateEmployee inserts a new employee.
func (s *Store) CreateEmployee(_ context.Context, emp *domain.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.employees[emp.EmployeeID]; ok {
		return fmt.Errorf("create %s: %w", emp.EmployeeID, ErrEmployeeExists)
	}

	s.employees[emp.EmployeeID] = *emp

	return nil
}

// LinkEmployeeTelegram fills telegram and department fields that are still empty.
func (s *Store) LinkEmployeeTelegram(_ context.Context, employeeID string, userID *int64, username, department string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	emp, ok := s.employees[employeeID]
	if !ok {
		return nil
	}

	if emp.TelegramUserID == nil && userID != nil {
		id := *userID
		emp.TelegramUserID = &id
	}

	if emp.TelegramUsername == "" {
		emp.TelegramUsername = username
	}

	if emp.Department == "" {
		emp.Department = department
	}

	s.employees[employeeID] = emp

	return nil
}

// LastEmployeeIDWithPrefix returns the greatest id carrying the prefix, longer ids first.
func (s *Store) LastEmployeeIDWithPrefix(_ context.Context, prefix string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	last := ""

	for id := range s.employees {
		if !strings.HasPrefix(id, prefix) {
			continue
		}

		if len(id) > len(last) || (len(id) == len(last) && id > last) {
			last = id
		}
	}

	return last, nil
}

// SetTemplate stores an active template.
func (s *Store) SetTemplate(channel, name, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.templates[templateKey{channel: channel, name: name}] = body
}

// GetActiveTemplate returns the stored template for channel and name.
func (s *Store) GetActiveTemplate(_ context.Context, channel, name string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	body, ok := s.templates[templateKey{channel: channel, name: name}]

	return body, ok, nil
}

func sentKey(channel, kind, periodKey string) string {
	return channel + "|" + kind + "|" + periodKey
}

// NotificationSent reports whether the period was already delivered.
func (s *Store) NotificationSent(_ context.Context, channel, kind, periodKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.sentLog[sentKey(channel, kind, periodKey)]

	return ok, nil
}

// MarkNotificationSent records a delivered period.
func (s *Store) MarkNotificationSent(_ context.Context, channel, kind, periodKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sentLog[sentKey(channel, kind, periodKey)] = struct{}{}

	return nil
}

// TryAcquireAdvisoryLock emulates pg_try_advisory_lock.
func (s *Store) TryAcquireAdvisoryLock(_ context.Context, lockID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.locks[lockID]; held {
		return false, nil
	}

	s.locks[lockID] = struct{}{}

	return true, nil
}

// ReleaseAdvisoryLock emulates pg_advisory_unlock.
func (s *Store) ReleaseAdvisoryLock(_ context.Context, lockID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.locks, lockID)

	return nil
}
