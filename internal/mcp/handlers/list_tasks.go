package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/taskhub/internal/task"
)

// listArgs maps query-string keys onto tool argument names.
var listArgs = map[string]string{
	"status":       "status",
	"priority":     "priority",
	"creatorId":    "creator_id",
	"assignedToId": "assigned_to_id",
	"overdue":      "overdue",
	"sortBy":       "sort_by",
	"sortOrder":    "sort_order",
}

// ListTasks returns a handler that lists tasks with optional filters and
// sorting.
func ListTasks(tm *task.Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if _, err := actor(ctx); err != nil {
			return toolError(err), nil
		}
		args := req.GetArguments()

		f, s, err := task.ParseListParams(func(key string) string {
			switch v := args[listArgs[key]].(type) {
			case string:
				return v
			case bool:
				return strconv.FormatBool(v)
			default:
				return ""
			}
		})
		if err != nil {
			return toolError(err), nil
		}

		tasks, err := tm.List(ctx, f, s)
		if err != nil {
			return toolError(err), nil
		}

		if len(tasks) == 0 {
			return mcp.NewToolResultText("No tasks found matching the given filters."), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "📋 Tasks (%d found)\n\n", len(tasks))
		for i := range tasks {
			writeTaskSummary(&sb, &tasks[i])
			sb.WriteString("\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
