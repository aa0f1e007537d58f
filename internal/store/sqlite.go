package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/btouchard/taskhub/internal/apperr"
)

// timeFormat is fixed-width UTC so that text comparison in SQL orders
// chronologically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const memoryPath = ":memory:"

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, zero CGO).
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
// The database file is created with 0600 permissions and its parent directory with 0700.
// Pass ":memory:" for a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := memoryPath
	if path != memoryPath {
		if err := prepareFile(path); err != nil {
			return nil, err
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite handles one writer at a time
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

func prepareFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("creating database file: %w", err)
		}
		_ = f.Close()
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TEXT NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	if err := s.db.Get(&current, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		slog.Info("applying migration", "version", i+1)
		if _, err := s.db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", i+1); err != nil {
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Tasks ---

type taskRow struct {
	ID            string `db:"id"`
	Title         string `db:"title"`
	Description   string `db:"description"`
	DueDate       string `db:"due_date"`
	Priority      string `db:"priority"`
	Status        string `db:"status"`
	CreatorID     string `db:"creator_id"`
	AssignedToID  string `db:"assigned_to_id"`
	CreatedAt     string `db:"created_at"`
	UpdatedAt     string `db:"updated_at"`
	CreatorName   string `db:"creator_name"`
	CreatorEmail  string `db:"creator_email"`
	AssigneeName  string `db:"assignee_name"`
	AssigneeEmail string `db:"assignee_email"`
}

func (r taskRow) record() TaskRecord {
	return TaskRecord{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		DueDate:       parseTime(r.DueDate),
		Priority:      r.Priority,
		Status:        r.Status,
		CreatorID:     r.CreatorID,
		AssignedToID:  r.AssignedToID,
		CreatedAt:     parseTime(r.CreatedAt),
		UpdatedAt:     parseTime(r.UpdatedAt),
		CreatorName:   r.CreatorName,
		CreatorEmail:  r.CreatorEmail,
		AssigneeName:  r.AssigneeName,
		AssigneeEmail: r.AssigneeEmail,
	}
}

const selectTasks = `SELECT t.id, t.title, t.description, t.due_date, t.priority, t.status,
	t.creator_id, t.assigned_to_id, t.created_at, t.updated_at,
	COALESCE(c.name, '') AS creator_name, COALESCE(c.email, '') AS creator_email,
	COALESCE(a.name, '') AS assignee_name, COALESCE(a.email, '') AS assignee_email
	FROM tasks t
	LEFT JOIN users c ON c.id = t.creator_id
	LEFT JOIN users a ON a.id = t.assigned_to_id AND t.assigned_to_id != ''`

// priorityRank orders priorities by urgency rather than alphabetically.
const priorityRank = `CASE t.priority
	WHEN 'Low' THEN 1 WHEN 'Medium' THEN 2 WHEN 'High' THEN 3 WHEN 'Urgent' THEN 4
	ELSE 0 END`

func (s *SQLiteStore) CreateTask(ctx context.Context, t *TaskRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks (id, title, description, due_date, priority,
		status, creator_id, assigned_to_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, formatTime(t.DueDate), t.Priority,
		t.Status, t.CreatorID, t.AssignedToID, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting task: %w", classify(err))
	}
	return nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*TaskRecord, error) {
	var row taskRow
	err := s.db.GetContext(ctx, &row, selectTasks+" WHERE t.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("task", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting task: %w", err)
	}
	rec := row.record()
	return &rec, nil
}

// UpdateTask rewrites the mutable columns. CreatorID and CreatedAt are never
// touched.
func (s *SQLiteStore) UpdateTask(ctx context.Context, t *TaskRecord) error {
	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET
		title = ?, description = ?, due_date = ?, priority = ?, status = ?,
		assigned_to_id = ?, updated_at = ?
		WHERE id = ?`,
		t.Title, t.Description, formatTime(t.DueDate), t.Priority, t.Status,
		t.AssignedToID, formatTime(t.UpdatedAt),
		t.ID)
	if err != nil {
		return fmt.Errorf("updating task: %w", classify(err))
	}
	return requireAffected(res, "task", t.ID)
}

func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return requireAffected(res, "task", id)
}

func (s *SQLiteStore) ListTasks(ctx context.Context, f TaskFilter) ([]TaskRecord, error) {
	var conditions []string
	var args []any

	if f.Status != "" {
		conditions = append(conditions, "t.status = ?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		conditions = append(conditions, "t.priority = ?")
		args = append(args, f.Priority)
	}
	if f.CreatorID != "" {
		conditions = append(conditions, "t.creator_id = ?")
		args = append(args, f.CreatorID)
	}
	if f.AssignedToID != "" {
		conditions = append(conditions, "t.assigned_to_id = ?")
		args = append(args, f.AssignedToID)
	}
	if !f.OverdueAt.IsZero() {
		conditions = append(conditions, "t.due_date < ?", "t.status != ?")
		args = append(args, formatTime(f.OverdueAt), f.CompletedStatus)
	}

	query := selectTasks
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	direction := "ASC"
	if f.SortDesc {
		direction = "DESC"
	}
	switch f.SortBy {
	case SortDueDate:
		query += fmt.Sprintf(" ORDER BY t.due_date %s, t.created_at DESC, t.id", direction)
	case SortPriority:
		query += fmt.Sprintf(" ORDER BY %s %s, t.created_at DESC, t.id", priorityRank, direction)
	default:
		query += fmt.Sprintf(" ORDER BY t.created_at %s, t.id", direction)
	}

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}

	tasks := make([]TaskRecord, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.record())
	}
	return tasks, nil
}

// --- Notifications ---

type notificationRow struct {
	ID         string `db:"id"`
	UserID     string `db:"user_id"`
	TaskID     string `db:"task_id"`
	Message    string `db:"message"`
	IsRead     int    `db:"is_read"`
	CreatedAt  string `db:"created_at"`
	TaskTitle  string `db:"task_title"`
	TaskExists int    `db:"task_exists"`
}

func (r notificationRow) record() NotificationRecord {
	return NotificationRecord{
		ID:         r.ID,
		UserID:     r.UserID,
		TaskID:     r.TaskID,
		Message:    r.Message,
		IsRead:     r.IsRead != 0,
		CreatedAt:  parseTime(r.CreatedAt),
		TaskTitle:  r.TaskTitle,
		TaskExists: r.TaskExists != 0,
	}
}

const selectNotifications = `SELECT n.id, n.user_id, n.task_id, n.message, n.is_read, n.created_at,
	COALESCE(t.title, '') AS task_title, (t.id IS NOT NULL) AS task_exists
	FROM notifications n
	LEFT JOIN tasks t ON t.id = n.task_id`

func (s *SQLiteStore) CreateNotification(ctx context.Context, n *NotificationRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO notifications (id, user_id, task_id, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.TaskID, n.Message, boolToInt(n.IsRead), formatTime(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting notification: %w", classify(err))
	}
	return nil
}

func (s *SQLiteStore) GetNotification(ctx context.Context, id string) (*NotificationRecord, error) {
	var row notificationRow
	err := s.db.GetContext(ctx, &row, selectNotifications+" WHERE n.id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("notification", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification: %w", err)
	}
	rec := row.record()
	return &rec, nil
}

// MarkNotificationRead sets is_read and returns the current record. Marking an
// already-read notification succeeds.
func (s *SQLiteStore) MarkNotificationRead(ctx context.Context, id string) (*NotificationRecord, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET is_read = 1 WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	if err := requireAffected(res, "notification", id); err != nil {
		return nil, err
	}
	return s.GetNotification(ctx, id)
}

func (s *SQLiteStore) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0", userID)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) ListNotifications(ctx context.Context, userID string, limit int) ([]NotificationRecord, error) {
	query := selectNotifications + " WHERE n.user_id = ? ORDER BY n.created_at DESC, n.id DESC"
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	out := make([]NotificationRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// --- Users ---

type userRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

func (r userRow) record() UserRecord {
	return UserRecord{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    parseTime(r.CreatedAt),
		UpdatedAt:    parseTime(r.UpdatedAt),
	}
}

const selectUsers = "SELECT id, name, email, password_hash, created_at, updated_at FROM users"

func (s *SQLiteStore) CreateUser(ctx context.Context, u *UserRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, formatTime(u.CreatedAt), formatTime(u.UpdatedAt))
	if err != nil {
		return fmt.Errorf("inserting user: %w", classify(err))
	}
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*UserRecord, error) {
	return s.getUser(ctx, "id", id)
}

func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return s.getUser(ctx, "email", email)
}

func (s *SQLiteStore) getUser(ctx context.Context, column, value string) (*UserRecord, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, selectUsers+" WHERE "+column+" = ?", value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("user", value)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	rec := row.record()
	return &rec, nil
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, u *UserRecord) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET name = ?, updated_at = ? WHERE id = ?",
		u.Name, formatTime(u.UpdatedAt), u.ID)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return requireAffected(res, "user", u.ID)
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]UserRecord, error) {
	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, selectUsers+" ORDER BY name, id"); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	out := make([]UserRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

func (s *SQLiteStore) UserExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users WHERE email = ?", email); err != nil {
		return false, fmt.Errorf("checking email: %w", err)
	}
	return count > 0, nil
}

// --- Helpers ---

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return apperr.NotFound(kind, id)
	}
	return nil
}

// classify maps SQLite constraint failures onto apperr classes.
func classify(err error) error {
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", apperr.ErrConflict, err)
	}
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(timeFormat, s)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
