package notify

import (
	"log/slog"
	"sync"
)

// MCPSender abstracts the mcp-go server notification methods.
// Defined consumer-side per Go convention.
type MCPSender interface {
	SendNotificationToSpecificClient(sessionID string, method string, params map[string]any) error
	SendNotificationToAllClients(method string, params map[string]any)
}

// MCPNotifier pushes task events to connected MCP clients as
// notifications/message. User-scoped events only reach the sessions bound to
// that user.
type MCPNotifier struct {
	sender MCPSender

	mu       sync.RWMutex
	sessions map[string]map[string]struct{} // userID → session IDs
	owners   map[string]string              // session ID → userID
}

// NewMCPNotifier creates an MCPNotifier backed by sender.
func NewMCPNotifier(sender MCPSender) *MCPNotifier {
	return &MCPNotifier{
		sender:   sender,
		sessions: make(map[string]map[string]struct{}),
		owners:   make(map[string]string),
	}
}

// Bind associates an MCP session with the user who authenticated it. A
// session rebinding to a different user leaves its old group.
func (n *MCPNotifier) Bind(userID, sessionID string) {
	if userID == "" || sessionID == "" {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	if prev, ok := n.owners[sessionID]; ok {
		if prev == userID {
			return
		}
		n.removeLocked(prev, sessionID)
	}
	group, ok := n.sessions[userID]
	if !ok {
		group = make(map[string]struct{})
		n.sessions[userID] = group
	}
	group[sessionID] = struct{}{}
	n.owners[sessionID] = userID
}

// Unbind forgets a session, typically when the client disconnects.
func (n *MCPNotifier) Unbind(sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if userID, ok := n.owners[sessionID]; ok {
		n.removeLocked(userID, sessionID)
	}
}

func (n *MCPNotifier) removeLocked(userID, sessionID string) {
	delete(n.owners, sessionID)
	group := n.sessions[userID]
	delete(group, sessionID)
	if len(group) == 0 {
		delete(n.sessions, userID)
	}
}

// SessionsFor returns the session IDs bound to userID.
func (n *MCPNotifier) SessionsFor(userID string) []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]string, 0, len(n.sessions[userID]))
	for id := range n.sessions[userID] {
		out = append(out, id)
	}
	return out
}

// Notify sends an MCP notification for the given event.
func (n *MCPNotifier) Notify(event Event) {
	params := map[string]any{
		"level":  "info",
		"logger": "taskhub",
		"data": map[string]any{
			"event":   event.Name,
			"payload": event.Payload,
		},
	}

	if event.Global() {
		n.sender.SendNotificationToAllClients("notifications/message", params)
		return
	}

	for _, sessionID := range n.SessionsFor(event.UserID) {
		if err := n.sender.SendNotificationToSpecificClient(sessionID, "notifications/message", params); err != nil {
			slog.Debug("mcp notification failed",
				"session_id", sessionID,
				"event", event.Name,
				"error", err)
		}
	}
}
