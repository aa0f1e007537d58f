package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/btouchard/taskhub/internal/store"
)

// Template is an assignment message with a single %s placeholder for the
// task title.
type Template string

const (
	TemplateNewTask    Template = `You have been assigned a new task: "%s"`
	TemplateReassigned Template = `You have been assigned to task: "%s"`
)

// Render interpolates title into the template.
func (t Template) Render(title string) string {
	return fmt.Sprintf(string(t), title)
}

// DefaultListLimit caps ListForUser when no limit is configured.
const DefaultListLimit = 50

// Notification tells a user they were assigned to a task.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TaskID    string    `json:"taskId"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
	Task      *TaskRef  `json:"task,omitempty"`
}

// TaskRef is the minimal task projection carried by a notification.
type TaskRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// NotificationStore is the persistence subset the Dispatcher needs.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *store.NotificationRecord) error
	MarkNotificationRead(ctx context.Context, id string) (*store.NotificationRecord, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]store.NotificationRecord, error)
}

// Dispatcher creates and serves assignment notifications.
type Dispatcher struct {
	store NotificationStore
	limit int
	now   func() time.Time
}

// NewDispatcher creates a Dispatcher. listLimit <= 0 uses DefaultListLimit.
func NewDispatcher(s NotificationStore, listLimit int) *Dispatcher {
	if listLimit <= 0 {
		listLimit = DefaultListLimit
	}
	return &Dispatcher{store: s, limit: listLimit, now: time.Now}
}

// Notify persists a notification for userID about taskID. The caller
// guarantees userID is a valid assignee.
func (d *Dispatcher) Notify(ctx context.Context, userID, taskID string, tmpl Template, title string) (*Notification, error) {
	rec := &store.NotificationRecord{
		ID:        uuid.NewString(),
		UserID:    userID,
		TaskID:    taskID,
		Message:   tmpl.Render(title),
		CreatedAt: d.now().UTC(),
	}
	if err := d.store.CreateNotification(ctx, rec); err != nil {
		return nil, err
	}

	slog.Info("notification created",
		"notification_id", rec.ID,
		"user_id", userID,
		"task_id", taskID)

	n := fromRecord(*rec)
	n.Task = &TaskRef{ID: taskID, Title: title}
	return &n, nil
}

// MarkRead flags a notification as read. Already-read notifications succeed
// unchanged.
func (d *Dispatcher) MarkRead(ctx context.Context, id string) (*Notification, error) {
	rec, err := d.store.MarkNotificationRead(ctx, id)
	if err != nil {
		return nil, err
	}
	n := fromRecord(*rec)
	return &n, nil
}

// CountUnread returns the number of unread notifications for userID.
func (d *Dispatcher) CountUnread(ctx context.Context, userID string) (int, error) {
	return d.store.CountUnreadNotifications(ctx, userID)
}

// ListForUser returns the newest notifications for userID.
func (d *Dispatcher) ListForUser(ctx context.Context, userID string) ([]Notification, error) {
	recs, err := d.store.ListNotifications(ctx, userID, d.limit)
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(recs))
	for _, r := range recs {
		out = append(out, fromRecord(r))
	}
	return out, nil
}

func fromRecord(r store.NotificationRecord) Notification {
	n := Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		TaskID:    r.TaskID,
		Message:   r.Message,
		IsRead:    r.IsRead,
		CreatedAt: r.CreatedAt,
	}
	if r.TaskExists {
		n.Task = &TaskRef{ID: r.TaskID, Title: r.TaskTitle}
	}
	return n
}
