package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Real-time event names delivered to clients.
const (
	EventTaskCreated     = "task:created"
	EventTaskUpdated     = "task:updated"
	EventTaskDeleted     = "task:deleted"
	EventTaskAssigned    = "task:assigned"
	EventNotificationNew = "notification:new"
)

// Event is a typed real-time message. An empty UserID means every connected
// client; otherwise only that user's connections receive it.
type Event struct {
	Name    string          `json:"event"`
	UserID  string          `json:"userId,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event.
func NewEvent(name, userID string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshaling %s payload: %w", name, err)
	}
	return Event{Name: name, UserID: userID, Payload: data}, nil
}

// Global reports whether the event targets every client.
func (e Event) Global() bool {
	return e.UserID == ""
}

// Notifier delivers events to one kind of connected client. Implementations
// must not block the caller.
type Notifier interface {
	Notify(event Event)
}

// Broadcaster delivers events either globally or to one user's session group.
type Broadcaster interface {
	BroadcastGlobal(ctx context.Context, name string, payload any) error
	BroadcastToUser(ctx context.Context, userID, name string, payload any) error
}

var errNoUser = errors.New("user-scoped event requires a user id")

// Hub dispatches events to multiple notifiers in registration order.
type Hub struct {
	notifiers []Notifier
}

// NewHub creates a Hub with the given notifiers.
func NewHub(notifiers ...Notifier) *Hub {
	return &Hub{notifiers: notifiers}
}

// Add registers another notifier. It is not safe to call once events are
// flowing.
func (h *Hub) Add(n Notifier) {
	h.notifiers = append(h.notifiers, n)
}

// Notify sends an event to all registered notifiers.
func (h *Hub) Notify(event Event) {
	for _, n := range h.notifiers {
		n.Notify(event)
	}
}

// BroadcastGlobal delivers name/payload to every connected client.
func (h *Hub) BroadcastGlobal(_ context.Context, name string, payload any) error {
	ev, err := NewEvent(name, "", payload)
	if err != nil {
		return err
	}
	h.Notify(ev)
	return nil
}

// BroadcastToUser delivers name/payload to userID's connections only.
func (h *Hub) BroadcastToUser(_ context.Context, userID, name string, payload any) error {
	if userID == "" {
		return errNoUser
	}
	ev, err := NewEvent(name, userID, payload)
	if err != nil {
		return err
	}
	h.Notify(ev)
	return nil
}
