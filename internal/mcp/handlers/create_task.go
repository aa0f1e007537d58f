package handlers

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/taskhub/internal/task"
)

// CreateTask returns a handler that creates a task owned by the caller.
func CreateTask(tm *task.Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := actor(ctx)
		if err != nil {
			return toolError(err), nil
		}
		args := req.GetArguments()

		var in task.CreateInput
		in.Title, _ = stringArg(args, "title")
		if in.Title == "" {
			return mcp.NewToolResultError("title is required"), nil
		}
		in.Description, _ = stringArg(args, "description")
		in.DueDate, _ = stringArg(args, "due_date")
		if p, ok := stringArg(args, "priority"); ok {
			in.Priority = task.Priority(p)
		}
		in.AssignedToID, _ = stringArg(args, "assigned_to_id")

		t, err := tm.Create(ctx, userID, in)
		if err != nil {
			return toolError(err), nil
		}

		slog.Debug("task created via mcp", "task_id", t.ID, "user_id", userID)
		return mcp.NewToolResultText("✅ Task created\n\n" + formatTask(t)), nil
	}
}
