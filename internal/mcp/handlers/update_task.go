package handlers

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/taskhub/internal/task"
)

// UpdateTask returns a handler that applies a partial update. Omitted
// arguments are left unchanged; an empty assigned_to_id unassigns.
func UpdateTask(tm *task.Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := actor(ctx)
		if err != nil {
			return toolError(err), nil
		}
		args := req.GetArguments()

		taskID, _ := stringArg(args, "task_id")
		if taskID == "" {
			return mcp.NewToolResultError("task_id is required"), nil
		}

		var in task.UpdateInput
		changed := false
		if v, ok := stringArg(args, "title"); ok {
			in.Title = &v
			changed = true
		}
		if v, ok := stringArg(args, "description"); ok {
			in.Description = &v
			changed = true
		}
		if v, ok := stringArg(args, "due_date"); ok {
			in.DueDate = &v
			changed = true
		}
		if v, ok := stringArg(args, "priority"); ok {
			p := task.Priority(v)
			in.Priority = &p
			changed = true
		}
		if v, ok := stringArg(args, "status"); ok {
			s := task.Status(v)
			in.Status = &s
			changed = true
		}
		if v, ok := stringArg(args, "assigned_to_id"); ok {
			in.AssignedToID = task.SetString(v)
			changed = true
		}
		if !changed {
			return mcp.NewToolResultError("at least one field to update is required"), nil
		}

		t, err := tm.Update(ctx, taskID, in, userID)
		if err != nil {
			return toolError(err), nil
		}
		return mcp.NewToolResultText("✏️ Task updated\n\n" + formatTask(t)), nil
	}
}
