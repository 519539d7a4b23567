package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/danishnav/team-catalog/internal/events"
	"github.com/danishnav/team-catalog/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

var errStoreDown = errors.New("store unavailable")

func strPtr(s string) *string { return &s }
func idPtr(id int64) *int64   { return &id }

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}

// memAudit is an in-memory audit log with sequential ids.
type memAudit struct {
	entries   []models.AuditEntry
	sinceErr  error
	getErr    error
	missingID map[int64]bool
}

func newMemAudit() *memAudit {
	return &memAudit{missingID: make(map[int64]bool)}
}

func (m *memAudit) add(action, entityType, id string, payload any) models.AuditEntry {
	e := models.AuditEntry{
		ID:         int64(len(m.entries) + 1),
		Action:     action,
		EntityType: entityType,
		EntityID:   id,
		Time:       time.Date(2024, 1, 1, 0, 0, len(m.entries), 0, time.UTC),
		Actor:      "S123456",
		Payload:    mustJSON(payload),
	}
	m.entries = append(m.entries, e)
	return e
}

func (m *memAudit) Since(_ context.Context, cursor int64, limit int) ([]models.AuditEntry, error) {
	if m.sinceErr != nil {
		return nil, m.sinceErr
	}
	var out []models.AuditEntry
	for _, e := range m.entries {
		if e.ID > cursor {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memAudit) PreviousFor(_ context.Context, entry models.AuditEntry) (*int64, error) {
	if entry.Action == models.ActionCreate {
		return nil, nil
	}
	var prev *int64
	for _, e := range m.entries {
		if e.EntityType == entry.EntityType && e.EntityID == entry.EntityID && e.ID < entry.ID {
			prev = idPtr(e.ID)
		}
	}
	return prev, nil
}

func (m *memAudit) Get(_ context.Context, id int64) (*models.AuditEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, e := range m.entries {
		if e.ID == id && !m.missingID[id] {
			e := e
			return &e, nil
		}
	}
	return nil, fmt.Errorf("audit %d: %w", id, models.ErrNotFound)
}

func (m *memAudit) Latest(context.Context) (*models.AuditEntry, error) {
	if len(m.entries) == 0 {
		return nil, nil
	}
	e := m.entries[len(m.entries)-1]
	return &e, nil
}

func (m *memAudit) LatestFor(_ context.Context, entityType, entityID string) (*models.AuditEntry, error) {
	var latest *models.AuditEntry
	for _, e := range m.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			e := e
			latest = &e
		}
	}
	return latest, nil
}

type memStates struct {
	cursors  map[string]int64
	advances int
	err      error
}

func newMemStates() *memStates {
	return &memStates{cursors: make(map[string]int64)}
}

func (m *memStates) Get(_ context.Context, cadence string) (models.NotificationState, error) {
	if m.err != nil {
		return models.NotificationState{}, m.err
	}
	s := models.NotificationState{Cadence: cadence}
	if c, ok := m.cursors[cadence]; ok {
		s.LastAuditNotified = idPtr(c)
	}
	return s, nil
}

func (m *memStates) Advance(_ context.Context, cadence string, id int64) error {
	m.advances++
	m.cursors[cadence] = id
	return nil
}

type memSubs struct {
	subs []models.Subscription
}

func (m *memSubs) add(recipient, cadence string, target *string) {
	kind := models.SubscriptionAllEvents
	if target != nil {
		kind = models.SubscriptionTargeted
	}
	m.subs = append(m.subs, models.Subscription{
		ID:           uuid.New(),
		RecipientKey: recipient,
		Cadence:      cadence,
		Kind:         kind,
		Target:       target,
	})
}

func (m *memSubs) ListByCadence(_ context.Context, cadence string) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, s := range m.subs {
		if s.Cadence == cadence {
			out = append(out, s)
		}
	}
	return out, nil
}

type memTasks struct {
	mu      sync.Mutex
	tasks   []models.NotificationTask
	saveErr error
	states  *memStates
}

// Enqueue keeps all tasks or none, like the transactional store.
func (m *memTasks) Enqueue(ctx context.Context, cadence string, tasks []models.NotificationTask, cursor int64) error {
	m.mu.Lock()
	if m.saveErr != nil {
		m.mu.Unlock()
		return m.saveErr
	}
	for i := range tasks {
		if tasks[i].ID == uuid.Nil {
			tasks[i].ID = uuid.New()
		}
	}
	m.tasks = append(m.tasks, tasks...)
	m.mu.Unlock()
	return m.states.Advance(ctx, cadence, cursor)
}

func (m *memTasks) Save(_ context.Context, task *models.NotificationTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	m.tasks = append(m.tasks, *task)
	return nil
}

func (m *memTasks) List(context.Context) ([]models.NotificationTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.NotificationTask(nil), m.tasks...), nil
}

func (m *memTasks) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tasks {
		if t.ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return models.ErrNotFound
}

type memObjects struct {
	objects map[string]json.RawMessage
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string]json.RawMessage)}
}

func (m *memObjects) put(objectType, id string, v any) {
	m.objects[objectType+"/"+id] = mustJSON(v)
}

func (m *memObjects) Get(_ context.Context, objectType, id string) (json.RawMessage, error) {
	data, ok := m.objects[objectType+"/"+id]
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", objectType, id, models.ErrNotFound)
	}
	return data, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, mail Mail) error {
	args := m.Called(ctx, mail)
	return args.Error(0)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
