package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/taskhub/internal/notify"
)

// ListNotifications returns a handler that lists the caller's newest
// notifications.
func ListNotifications(d *notify.Dispatcher) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := actor(ctx)
		if err != nil {
			return toolError(err), nil
		}
		unreadOnly, _ := req.GetArguments()["unread_only"].(bool)

		list, err := d.ListForUser(ctx, userID)
		if err != nil {
			return toolError(err), nil
		}

		var sb strings.Builder
		shown := 0
		for _, n := range list {
			if unreadOnly && n.IsRead {
				continue
			}
			formatNotification(&sb, n)
			shown++
		}
		if shown == 0 {
			return mcp.NewToolResultText("No notifications."), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Notifications (%d)\n\n%s", shown, sb.String())), nil
	}
}

// MarkNotificationRead returns a handler that flags a notification as read.
func MarkNotificationRead(d *notify.Dispatcher) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, err := actor(ctx); err != nil {
			return toolError(err), nil
		}

		id, _ := stringArg(req.GetArguments(), "notification_id")
		if id == "" {
			return mcp.NewToolResultError("notification_id is required"), nil
		}

		n, err := d.MarkRead(ctx, id)
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Marked as read: %s", n.Message)), nil
	}
}

// UnreadCount returns a handler that reports how many notifications the
// caller has not read.
func UnreadCount(d *notify.Dispatcher) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := actor(ctx)
		if err != nil {
			return toolError(err), nil
		}

		n, err := d.CountUnread(ctx, userID)
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("%d unread notification(s)", n)), nil
	}
}
