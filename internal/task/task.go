package task

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/btouchard/taskhub/internal/apperr"
	"github.com/btouchard/taskhub/internal/store"
)

// Status represents the workflow state of a task.
type Status string

const (
	StatusToDo       Status = "To Do"
	StatusInProgress Status = "In Progress"
	StatusReview     Status = "Review"
	StatusCompleted  Status = "Completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusReview, StatusCompleted:
		return true
	}
	return false
}

// Priority determines how urgent a task is.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// Weight returns the numeric rank used for ordering (higher = more urgent).
func (p Priority) Weight() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p.Weight() > 0
}

// MaxTitleLength is the longest accepted title, in characters.
const MaxTitleLength = 100

// dateOnly is the short due date format, interpreted as midnight UTC.
const dateOnly = "2006-01-02"

// UserRef is the read-only display projection of a user.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Task is a unit of work with a creator and an optional assignee.
type Task struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	DueDate      time.Time `json:"dueDate"`
	Priority     Priority  `json:"priority"`
	Status       Status    `json:"status"`
	CreatorID    string    `json:"creatorId"`
	AssignedToID string    `json:"assignedToId,omitempty"`
	Creator      *UserRef  `json:"creator,omitempty"`
	AssignedTo   *UserRef  `json:"assignedTo,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// fromRecord converts a stored task, resolving the joined user projections.
func fromRecord(r *store.TaskRecord) *Task {
	t := &Task{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		DueDate:      r.DueDate,
		Priority:     Priority(r.Priority),
		Status:       Status(r.Status),
		CreatorID:    r.CreatorID,
		AssignedToID: r.AssignedToID,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.CreatorEmail != "" {
		t.Creator = &UserRef{ID: r.CreatorID, Name: r.CreatorName, Email: r.CreatorEmail}
	}
	if r.AssignedToID != "" && r.AssigneeEmail != "" {
		t.AssignedTo = &UserRef{ID: r.AssignedToID, Name: r.AssigneeName, Email: r.AssigneeEmail}
	}
	return t
}

// CreateInput is the payload for Manager.Create.
type CreateInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	DueDate      string   `json:"dueDate"`
	Priority     Priority `json:"priority"`
	AssignedToID string   `json:"assignedToId"`
}

// UpdateInput is the payload for Manager.Update. Nil fields are left
// unchanged.
type UpdateInput struct {
	Title        *string        `json:"title"`
	Description  *string        `json:"description"`
	DueDate      *string        `json:"dueDate"`
	Priority     *Priority      `json:"priority"`
	Status       *Status        `json:"status"`
	AssignedToID OptionalString `json:"assignedToId"`
}

// OptionalString distinguishes an absent field from an explicit null or
// empty value. Set with an empty Value means "clear".
type OptionalString struct {
	Set   bool
	Value string
}

// SetString returns a present OptionalString holding v.
func SetString(v string) OptionalString {
	return OptionalString{Set: true, Value: v}
}

// UnmarshalJSON marks the field present; null decodes to the empty value.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = ""
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// ValidateID checks that id is a well-formed identifier.
func ValidateID(kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.Validation("invalid %s id %q", kind, id)
	}
	return nil
}

// ParseDueDate accepts RFC 3339 timestamps (with or without fractional
// seconds) and YYYY-MM-DD dates.
func ParseDueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, apperr.Validation("due date is required")
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(dateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, apperr.Validation("invalid due date %q", s)
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", apperr.Validation("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", apperr.Validation("title must be at most %d characters", MaxTitleLength)
	}
	return title, nil
}

func normalizeDescription(desc string) (string, error) {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return "", apperr.Validation("description is required")
	}
	return desc, nil
}

func futureDueDate(raw string, now time.Time) (time.Time, error) {
	due, err := ParseDueDate(raw)
	if err != nil {
		return time.Time{}, err
	}
	if !due.After(now) {
		return time.Time{}, apperr.Validation("due date must be in the future")
	}
	return due, nil
}
