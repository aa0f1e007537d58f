package notify

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Defaults for SSEStream.
const (
	DefaultSSEBuffer    = 64
	DefaultSSEHeartbeat = 25 * time.Second
)

// sseClient is a single authenticated SSE connection.
type sseClient struct {
	userID string
	ch     chan Event
}

// SSEStream manages Server-Sent Events connections. Each connection is tagged
// with its user so user-scoped events reach only that user's session group.
type SSEStream struct {
	buffer    int
	heartbeat time.Duration

	mu      sync.RWMutex
	clients map[*sseClient]struct{}
}

// NewSSEStream creates an SSEStream. Non-positive values fall back to the
// package defaults.
func NewSSEStream(buffer int, heartbeat time.Duration) *SSEStream {
	if buffer <= 0 {
		buffer = DefaultSSEBuffer
	}
	if heartbeat <= 0 {
		heartbeat = DefaultSSEHeartbeat
	}
	return &SSEStream{
		buffer:    buffer,
		heartbeat: heartbeat,
		clients:   make(map[*sseClient]struct{}),
	}
}

// Notify queues the event on every matching connection. Slow clients drop
// events instead of blocking the writer.
func (s *SSEStream) Notify(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		if !event.Global() && c.userID != event.UserID {
			continue
		}
		select {
		case c.ch <- event:
		default:
			slog.Warn("sse client buffer full, dropping event",
				"user_id", c.userID,
				"event", event.Name)
		}
	}
}

// ClientCount returns the number of open connections.
func (s *SSEStream) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Serve streams events to an authenticated user until the request ends.
func (s *SSEStream) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	c := &sseClient{userID: userID, ch: make(chan Event, s.buffer)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	slog.Debug("sse client connected", "user_id", userID)

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		close(c.ch)
		slog.Debug("sse client disconnected", "user_id", userID)
	}()

	fmt.Fprintf(w, "event: connected\ndata: {\"userId\":%q}\n\n", userID) //nolint:errcheck
	if err := rc.Flush(); err != nil {
		slog.Warn("sse streaming not supported", "error", err)
		return
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case ev := <-c.ch:
			// json.Marshal output never contains raw newlines.
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Payload); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
