package handlers

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/taskhub/internal/task"
)

// DeleteTask returns a handler that removes a task.
func DeleteTask(tm *task.Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, err := actor(ctx); err != nil {
			return toolError(err), nil
		}

		taskID, _ := stringArg(req.GetArguments(), "task_id")
		if taskID == "" {
			return mcp.NewToolResultError("task_id is required"), nil
		}

		if err := tm.Delete(ctx, taskID); err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("🗑️ Task %s deleted", taskID)), nil
	}
}
