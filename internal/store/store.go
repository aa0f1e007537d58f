package store

import (
	"context"
	"time"
)

// Store is the persistence interface for taskhub.
// Consumers declare narrower interfaces over the subset they use.
type Store interface {
	// Tasks
	CreateTask(ctx context.Context, t *TaskRecord) error
	GetTask(ctx context.Context, id string) (*TaskRecord, error)
	UpdateTask(ctx context.Context, t *TaskRecord) error
	DeleteTask(ctx context.Context, id string) error
	ListTasks(ctx context.Context, f TaskFilter) ([]TaskRecord, error)

	// Notifications
	CreateNotification(ctx context.Context, n *NotificationRecord) error
	GetNotification(ctx context.Context, id string) (*NotificationRecord, error)
	MarkNotificationRead(ctx context.Context, id string) (*NotificationRecord, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]NotificationRecord, error)

	// Users
	CreateUser(ctx context.Context, u *UserRecord) error
	GetUser(ctx context.Context, id string) (*UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*UserRecord, error)
	UpdateUser(ctx context.Context, u *UserRecord) error
	ListUsers(ctx context.Context) ([]UserRecord, error)
	UserExistsByEmail(ctx context.Context, email string) (bool, error)

	Close() error
}

// TaskRecord represents a persisted task. The Creator* and Assignee* display
// fields are filled by joins on read and ignored on write.
type TaskRecord struct {
	ID           string
	Title        string
	Description  string
	DueDate      time.Time
	Priority     string
	Status       string
	CreatorID    string
	AssignedToID string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	CreatorName   string
	CreatorEmail  string
	AssigneeName  string
	AssigneeEmail string
}

// Sort columns accepted by ListTasks.
const (
	SortCreatedAt = "created_at"
	SortDueDate   = "due_date"
	SortPriority  = "priority"
)

// TaskFilter specifies criteria for listing tasks. Empty fields do not filter.
type TaskFilter struct {
	Status       string
	Priority     string
	CreatorID    string
	AssignedToID string

	// OverdueAt, when non-zero, keeps tasks due before it that are not in
	// CompletedStatus.
	OverdueAt       time.Time
	CompletedStatus string

	SortBy   string
	SortDesc bool
}

// NotificationRecord represents a persisted notification. TaskTitle is
// joined from tasks on list and is empty when the task no longer exists.
type NotificationRecord struct {
	ID        string
	UserID    string
	TaskID    string
	Message   string
	IsRead    bool
	CreatedAt time.Time

	TaskTitle  string
	TaskExists bool
}

// UserRecord represents a persisted user account.
type UserRecord struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
