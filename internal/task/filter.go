package task

import (
	"strconv"
	"strings"

	"github.com/btouchard/taskhub/internal/apperr"
	"github.com/btouchard/taskhub/internal/store"
)

// Filter specifies criteria for listing tasks. Zero-valued fields do not
// filter; set fields are AND-combined.
type Filter struct {
	Status       Status
	Priority     Priority
	CreatorID    string
	AssignedToID string
	Overdue      bool
}

// Validate checks each set field independently.
func (f Filter) Validate() error {
	if f.Status != "" && !f.Status.Valid() {
		return apperr.Validation("invalid status %q", f.Status)
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return apperr.Validation("invalid priority %q", f.Priority)
	}
	if f.CreatorID != "" {
		if err := ValidateID("creator", f.CreatorID); err != nil {
			return err
		}
	}
	if f.AssignedToID != "" {
		if err := ValidateID("assignee", f.AssignedToID); err != nil {
			return err
		}
	}
	return nil
}

// SortField names a sortable task attribute.
type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByDueDate   SortField = "dueDate"
	SortByPriority  SortField = "priority"
)

// Order is a sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Sort specifies list ordering. The zero value sorts by createdAt, newest
// first; a field without an order sorts descending.
type Sort struct {
	Field SortField
	Order Order
}

// Validate checks the field and direction.
func (s Sort) Validate() error {
	switch s.Field {
	case "", SortByCreatedAt, SortByDueDate, SortByPriority:
	default:
		return apperr.Validation("invalid sort field %q", s.Field)
	}
	switch s.Order {
	case "", OrderAsc, OrderDesc:
	default:
		return apperr.Validation("invalid sort order %q", s.Order)
	}
	return nil
}

func (s Sort) column() string {
	switch s.Field {
	case SortByDueDate:
		return store.SortDueDate
	case SortByPriority:
		return store.SortPriority
	default:
		return store.SortCreatedAt
	}
}

func (s Sort) descending() bool {
	return s.Order != OrderAsc
}

// ParseListParams builds a Filter and Sort from string parameters, as found
// in a query string or tool arguments. Recognized keys: status, priority,
// creatorId, assignedToId, overdue, sortBy, sortOrder.
func ParseListParams(get func(key string) string) (Filter, Sort, error) {
	f := Filter{
		Status:       Status(strings.TrimSpace(get("status"))),
		Priority:     Priority(strings.TrimSpace(get("priority"))),
		CreatorID:    strings.TrimSpace(get("creatorId")),
		AssignedToID: strings.TrimSpace(get("assignedToId")),
	}
	if raw := strings.TrimSpace(get("overdue")); raw != "" {
		overdue, err := strconv.ParseBool(raw)
		if err != nil {
			return Filter{}, Sort{}, apperr.Validation("invalid overdue value %q", raw)
		}
		f.Overdue = overdue
	}
	s := Sort{
		Field: SortField(strings.TrimSpace(get("sortBy"))),
		Order: Order(strings.ToLower(strings.TrimSpace(get("sortOrder")))),
	}

	if err := f.Validate(); err != nil {
		return Filter{}, Sort{}, err
	}
	if err := s.Validate(); err != nil {
		return Filter{}, Sort{}, err
	}
	return f, s, nil
}
