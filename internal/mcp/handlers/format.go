package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/btouchard/taskhub/internal/apperr"
	"github.com/btouchard/taskhub/internal/auth"
	"github.com/btouchard/taskhub/internal/notify"
	"github.com/btouchard/taskhub/internal/task"
)

const dueLayout = "2006-01-02 15:04 MST"

var errNoUser = errors.New("authentication required")

// actor returns the authenticated user bound to the tool call.
func actor(ctx context.Context) (string, error) {
	id := auth.UserID(ctx)
	if id == "" {
		return "", errNoUser
	}
	return id, nil
}

// toolError reports err to the model. Classified errors keep their message;
// anything else is reported generically.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return mcp.NewToolResultError("Invalid input: " + apperr.Message(err))
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("Not found: " + apperr.Message(err))
	case errors.Is(err, apperr.ErrUnauthorized), errors.Is(err, errNoUser):
		return mcp.NewToolResultError("Unauthorized: " + apperr.Message(err))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Internal error: %s", err))
	}
}

// stringArg returns the trimmed string argument and whether it was supplied.
func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func statusIcon(s task.Status) string {
	switch s {
	case task.StatusToDo:
		return "📥"
	case task.StatusInProgress:
		return "🔄"
	case task.StatusReview:
		return "👀"
	case task.StatusCompleted:
		return "✅"
	default:
		return "❓"
	}
}

func writeTaskSummary(b *strings.Builder, t *task.Task) {
	fmt.Fprintf(b, "%s **%s** [%s]\n", statusIcon(t.Status), t.Title, t.Status)
	fmt.Fprintf(b, "  ID: %s\n", t.ID)
	fmt.Fprintf(b, "  Priority: %s | Due: %s\n", t.Priority, t.DueDate.UTC().Format(dueLayout))
	if t.AssignedTo != nil {
		fmt.Fprintf(b, "  Assigned to: %s <%s>\n", t.AssignedTo.Name, t.AssignedTo.Email)
	} else if t.AssignedToID != "" {
		fmt.Fprintf(b, "  Assigned to: %s\n", t.AssignedToID)
	}
}

func formatTask(t *task.Task) string {
	var b strings.Builder
	writeTaskSummary(&b, t)
	if t.Creator != nil {
		fmt.Fprintf(&b, "  Created by: %s <%s>\n", t.Creator.Name, t.Creator.Email)
	}
	fmt.Fprintf(&b, "  Updated: %s\n", t.UpdatedAt.UTC().Format(time.RFC3339))
	if t.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", t.Description)
	}
	return b.String()
}

func formatJSON(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("JSON encoding error: %s", err))
	}
	return mcp.NewToolResultText(string(data))
}

func formatNotification(b *strings.Builder, n notify.Notification) {
	mark := "🔔"
	if n.IsRead {
		mark = "✓"
	}
	fmt.Fprintf(b, "%s %s\n", mark, n.Message)
	fmt.Fprintf(b, "  ID: %s | %s\n", n.ID, n.CreatedAt.UTC().Format(time.RFC3339))
	if n.Task == nil {
		b.WriteString("  Task: deleted\n")
	}
}
