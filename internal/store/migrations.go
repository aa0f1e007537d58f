package store

// migrations is the ordered list of schema migrations. Entry i brings the
// schema to version i+1.
var migrations = []string{
	`CREATE TABLE users (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	);

	CREATE TABLE tasks (
		id             TEXT PRIMARY KEY,
		title          TEXT NOT NULL,
		description    TEXT NOT NULL,
		due_date       TEXT NOT NULL,
		priority       TEXT NOT NULL DEFAULT 'Medium',
		status         TEXT NOT NULL DEFAULT 'To Do',
		creator_id     TEXT NOT NULL,
		assigned_to_id TEXT NOT NULL DEFAULT '',
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL
	);

	CREATE INDEX idx_tasks_creator ON tasks(creator_id);
	CREATE INDEX idx_tasks_assignee ON tasks(assigned_to_id);
	CREATE INDEX idx_tasks_status ON tasks(status);
	CREATE INDEX idx_tasks_priority ON tasks(priority);
	CREATE INDEX idx_tasks_due_date ON tasks(due_date);`,

	`CREATE TABLE notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		task_id    TEXT NOT NULL,
		message    TEXT NOT NULL,
		is_read    INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX idx_notifications_user_read ON notifications(user_id, is_read);`,
}
