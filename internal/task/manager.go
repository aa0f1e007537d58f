package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/btouchard/taskhub/internal/apperr"
	"github.com/btouchard/taskhub/internal/notify"
	"github.com/btouchard/taskhub/internal/store"
)

// Store is the persistence subset the Manager needs.
type Store interface {
	CreateTask(ctx context.Context, t *store.TaskRecord) error
	GetTask(ctx context.Context, id string) (*store.TaskRecord, error)
	UpdateTask(ctx context.Context, t *store.TaskRecord) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, f store.TaskFilter) ([]store.TaskRecord, error)
}

// Notifier creates assignment notifications.
type Notifier interface {
	Notify(ctx context.Context, userID, taskID string, tmpl notify.Template, title string) (*notify.Notification, error)
}

// UserLookup resolves users by id. Used only when assignee verification is
// enabled.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*store.UserRecord, error)
}

// Manager handles task lifecycle: validation, persistence, assignment
// notifications and real-time events.
type Manager struct {
	store    Store
	notifier Notifier
	events   notify.Broadcaster
	users    UserLookup
	now      func() time.Time
}

// NewManager creates a new task Manager. A nil broadcaster disables
// real-time events.
func NewManager(s Store, n Notifier, b notify.Broadcaster) *Manager {
	if b == nil {
		b = discard{}
	}
	return &Manager{
		store:    s,
		notifier: n,
		events:   b,
		now:      time.Now,
	}
}

// SetClock overrides the time source used for due date checks and
// timestamps.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// SetUserLookup enables assignee verification: unknown assignees are
// rejected on create and update.
func (m *Manager) SetUserLookup(users UserLookup) {
	m.users = users
}

// Create validates and persists a new task owned by actorID.
func (m *Manager) Create(ctx context.Context, actorID string, in CreateInput) (*Task, error) {
	now := m.now().UTC()

	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}
	desc, err := normalizeDescription(in.Description)
	if err != nil {
		return nil, err
	}
	due, err := futureDueDate(in.DueDate, now)
	if err != nil {
		return nil, err
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return nil, apperr.Validation("invalid priority %q", priority)
	}
	assignee := strings.TrimSpace(in.AssignedToID)
	if err := m.checkAssignee(ctx, assignee); err != nil {
		return nil, err
	}

	rec := &store.TaskRecord{
		ID:           uuid.NewString(),
		Title:        title,
		Description:  desc,
		DueDate:      due,
		Priority:     string(priority),
		Status:       string(StatusToDo),
		CreatorID:    actorID,
		AssignedToID: assignee,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.store.CreateTask(ctx, rec); err != nil {
		return nil, err
	}
	t, err := m.reload(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	slog.Info("task created",
		"task_id", t.ID,
		"creator_id", actorID,
		"assigned_to_id", assignee,
		"priority", string(priority))

	m.broadcast(ctx, notify.EventTaskCreated, t)

	if assignee != "" && assignee != actorID {
		if err := m.assign(ctx, t, notify.TemplateNewTask); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Update applies a partial update on behalf of actorID. The new assignee is
// notified only when it differs from the assignee before this update.
func (m *Manager) Update(ctx context.Context, taskID string, in UpdateInput, actorID string) (*Task, error) {
	if err := ValidateID("task", taskID); err != nil {
		return nil, err
	}
	rec, err := m.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	previous := rec.AssignedToID
	now := m.now().UTC()

	if in.Title != nil {
		if rec.Title, err = normalizeTitle(*in.Title); err != nil {
			return nil, err
		}
	}
	if in.Description != nil {
		if rec.Description, err = normalizeDescription(*in.Description); err != nil {
			return nil, err
		}
	}
	if in.DueDate != nil {
		if rec.DueDate, err = futureDueDate(*in.DueDate, now); err != nil {
			return nil, err
		}
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, apperr.Validation("invalid priority %q", *in.Priority)
		}
		rec.Priority = string(*in.Priority)
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, apperr.Validation("invalid status %q", *in.Status)
		}
		rec.Status = string(*in.Status)
	}
	if in.AssignedToID.Set {
		assignee := strings.TrimSpace(in.AssignedToID.Value)
		if err := m.checkAssignee(ctx, assignee); err != nil {
			return nil, err
		}
		rec.AssignedToID = assignee
	}
	rec.UpdatedAt = now

	if err := m.store.UpdateTask(ctx, rec); err != nil {
		return nil, err
	}
	t, err := m.reload(ctx, taskID)
	if err != nil {
		return nil, err
	}

	slog.Info("task updated", "task_id", taskID, "actor_id", actorID)

	m.broadcast(ctx, notify.EventTaskUpdated, t)

	if in.AssignedToID.Set && t.AssignedToID != "" && t.AssignedToID != previous && t.AssignedToID != actorID {
		if err := m.assign(ctx, t, notify.TemplateReassigned); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Delete removes a task and announces it.
func (m *Manager) Delete(ctx context.Context, taskID string) error {
	if err := ValidateID("task", taskID); err != nil {
		return err
	}
	if err := m.store.DeleteTask(ctx, taskID); err != nil {
		return err
	}

	slog.Info("task deleted", "task_id", taskID)

	m.broadcast(ctx, notify.EventTaskDeleted, map[string]string{"taskId": taskID})
	return nil
}

// Get returns a task by ID.
func (m *Manager) Get(ctx context.Context, taskID string) (*Task, error) {
	if err := ValidateID("task", taskID); err != nil {
		return nil, err
	}
	return m.reload(ctx, taskID)
}

// List returns tasks matching the filter in the requested order.
func (m *Manager) List(ctx context.Context, f Filter, s Sort) ([]Task, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	sf := store.TaskFilter{
		Status:       string(f.Status),
		Priority:     string(f.Priority),
		CreatorID:    f.CreatorID,
		AssignedToID: f.AssignedToID,
		SortBy:       s.column(),
		SortDesc:     s.descending(),
	}
	if f.Overdue {
		sf.OverdueAt = m.now().UTC()
		sf.CompletedStatus = string(StatusCompleted)
	}

	recs, err := m.store.ListTasks(ctx, sf)
	if err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(recs))
	for i := range recs {
		tasks = append(tasks, *fromRecord(&recs[i]))
	}
	return tasks, nil
}

func (m *Manager) reload(ctx context.Context, id string) (*Task, error) {
	rec, err := m.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromRecord(rec), nil
}

// checkAssignee validates a non-empty assignee id and, when a lookup is
// configured, that the user exists.
func (m *Manager) checkAssignee(ctx context.Context, assignee string) error {
	if assignee == "" {
		return nil
	}
	if err := ValidateID("assignee", assignee); err != nil {
		return err
	}
	if m.users == nil {
		return nil
	}
	if _, err := m.users.GetUser(ctx, assignee); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.Validation("assignee %q does not exist", assignee)
		}
		return fmt.Errorf("looking up assignee: %w", err)
	}
	return nil
}

// assign records a notification for the task's assignee and pushes it to
// that user's sessions.
func (m *Manager) assign(ctx context.Context, t *Task, tmpl notify.Template) error {
	n, err := m.notifier.Notify(ctx, t.AssignedToID, t.ID, tmpl, t.Title)
	if err != nil {
		return fmt.Errorf("notifying assignee: %w", err)
	}
	m.broadcastTo(ctx, t.AssignedToID, notify.EventTaskAssigned, n)
	m.broadcastTo(ctx, t.AssignedToID, notify.EventNotificationNew, n)
	return nil
}

func (m *Manager) broadcast(ctx context.Context, name string, payload any) {
	if err := m.events.BroadcastGlobal(ctx, name, payload); err != nil {
		slog.Warn("broadcast failed", "event", name, "error", err)
	}
}

func (m *Manager) broadcastTo(ctx context.Context, userID, name string, payload any) {
	if err := m.events.BroadcastToUser(ctx, userID, name, payload); err != nil {
		slog.Warn("broadcast failed", "event", name, "user_id", userID, "error", err)
	}
}

// discard is the Broadcaster used when none is configured.
type discard struct{}

func (discard) BroadcastGlobal(context.Context, string, any) error         { return nil }
func (discard) BroadcastToUser(context.Context, string, string, any) error { return nil }
