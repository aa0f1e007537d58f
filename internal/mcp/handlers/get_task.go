package handlers

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/taskhub/internal/task"
)

// GetTask returns a handler that shows a single task, as text or JSON.
func GetTask(tm *task.Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, err := actor(ctx); err != nil {
			return toolError(err), nil
		}
		args := req.GetArguments()

		taskID, _ := stringArg(args, "task_id")
		if taskID == "" {
			return mcp.NewToolResultError("task_id is required"), nil
		}

		t, err := tm.Get(ctx, taskID)
		if err != nil {
			return toolError(err), nil
		}

		if format, _ := stringArg(args, "format"); format == "json" {
			return formatJSON(t), nil
		}
		return mcp.NewToolResultText(formatTask(t)), nil
	}
}
