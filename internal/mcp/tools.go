package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/taskhub/internal/mcp/handlers"
)

var (
	statuses   = []string{"To Do", "In Progress", "Review", "Completed"}
	priorities = []string{"Low", "Medium", "High", "Urgent"}
)

func registerTools(s *server.MCPServer, deps *Deps) {
	// list_tasks: List tasks with filters
	s.AddTool(
		mcp.NewTool("list_tasks",
			mcp.WithDescription("List tasks with optional filters and sorting."),
			mcp.WithString("status",
				mcp.Description("Filter by status"),
				mcp.Enum(statuses...),
			),
			mcp.WithString("priority",
				mcp.Description("Filter by priority"),
				mcp.Enum(priorities...),
			),
			mcp.WithString("creator_id",
				mcp.Description("Only tasks created by this user ID"),
			),
			mcp.WithString("assigned_to_id",
				mcp.Description("Only tasks assigned to this user ID"),
			),
			mcp.WithBoolean("overdue",
				mcp.Description("If true, only tasks past their due date that are not completed"),
			),
			mcp.WithString("sort_by",
				mcp.Description("Sort field (default: createdAt)"),
				mcp.Enum("createdAt", "dueDate", "priority"),
			),
			mcp.WithString("sort_order",
				mcp.Description("Sort direction (default: desc)"),
				mcp.Enum("asc", "desc"),
			),
		),
		handlers.ListTasks(deps.Tasks),
	)

	// get_task: Show one task
	s.AddTool(
		mcp.NewTool("get_task",
			mcp.WithDescription("Get a task with its creator and assignee."),
			mcp.WithString("task_id",
				mcp.Required(),
				mcp.Description("The task ID"),
			),
			mcp.WithString("format",
				mcp.Description("Output format: text (default) or json"),
				mcp.Enum("text", "json"),
			),
		),
		handlers.GetTask(deps.Tasks),
	)

	// create_task: Create a task as the caller
	s.AddTool(
		mcp.NewTool("create_task",
			mcp.WithDescription("Create a task. The caller becomes its creator; the assignee, if any, is notified."),
			mcp.WithString("title",
				mcp.Required(),
				mcp.Description("Task title (max 100 characters)"),
			),
			mcp.WithString("description",
				mcp.Required(),
				mcp.Description("What needs to be done"),
			),
			mcp.WithString("due_date",
				mcp.Required(),
				mcp.Description("Due date in the future, RFC 3339 or YYYY-MM-DD"),
			),
			mcp.WithString("priority",
				mcp.Description("Task priority (default: Medium)"),
				mcp.Enum(priorities...),
			),
			mcp.WithString("assigned_to_id",
				mcp.Description("User ID of the assignee"),
			),
		),
		handlers.CreateTask(deps.Tasks),
	)

	// update_task: Partial update
	s.AddTool(
		mcp.NewTool("update_task",
			mcp.WithDescription("Update a task. Only the supplied fields change. A new assignee is notified."),
			mcp.WithString("task_id",
				mcp.Required(),
				mcp.Description("The task ID"),
			),
			mcp.WithString("title",
				mcp.Description("New title"),
			),
			mcp.WithString("description",
				mcp.Description("New description"),
			),
			mcp.WithString("due_date",
				mcp.Description("New due date in the future"),
			),
			mcp.WithString("priority",
				mcp.Description("New priority"),
				mcp.Enum(priorities...),
			),
			mcp.WithString("status",
				mcp.Description("New status"),
				mcp.Enum(statuses...),
			),
			mcp.WithString("assigned_to_id",
				mcp.Description("New assignee user ID; empty string unassigns"),
			),
		),
		handlers.UpdateTask(deps.Tasks),
	)

	// delete_task: Remove a task
	s.AddTool(
		mcp.NewTool("delete_task",
			mcp.WithDescription("Delete a task. Its notifications are kept."),
			mcp.WithString("task_id",
				mcp.Required(),
				mcp.Description("The task ID"),
			),
		),
		handlers.DeleteTask(deps.Tasks),
	)

	// list_notifications: Caller's notifications, newest first
	s.AddTool(
		mcp.NewTool("list_notifications",
			mcp.WithDescription("List your most recent notifications, newest first."),
			mcp.WithBoolean("unread_only",
				mcp.Description("If true, hide notifications already read"),
			),
		),
		handlers.ListNotifications(deps.Notifications),
	)

	// mark_notification_read
	s.AddTool(
		mcp.NewTool("mark_notification_read",
			mcp.WithDescription("Mark a notification as read."),
			mcp.WithString("notification_id",
				mcp.Required(),
				mcp.Description("The notification ID"),
			),
		),
		handlers.MarkNotificationRead(deps.Notifications),
	)

	// unread_count
	s.AddTool(
		mcp.NewTool("unread_count",
			mcp.WithDescription("Count your unread notifications."),
		),
		handlers.UnreadCount(deps.Notifications),
	)
}
