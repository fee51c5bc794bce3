package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Priority levels for tasks.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task statuses.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in_progress"
	StatusDone       = "done"
	StatusArchived   = "archived"
)

// Task represents a task in the database.
type Task struct {
	ID           int64
	UserID       int64
	Title        string
	Description  sql.NullString
	DueDate      sql.NullTime
	Priority     string
	Status       string
	ReminderDate sql.NullTime
	ReminderSent bool
	CompletedAt  sql.NullTime
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const taskColumns = `id, user_id, title, description, due_date, priority, status,
	reminder_date, reminder_sent, completed_at, created_at, updated_at`

func scanTask(scan func(...any) error) (*Task, error) {
	task := &Task{}
	err := scan(
		&task.ID, &task.UserID, &task.Title, &task.Description, &task.DueDate,
		&task.Priority, &task.Status, &task.ReminderDate, &task.ReminderSent,
		&task.CompletedAt, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// CreateTask inserts a new task and fills in its assigned ID. Empty priority
// and status fall back to their defaults.
func (s *Store) CreateTask(ctx context.Context, task *Task) error {
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Priority == "" {
		task.Priority = PriorityMedium
	}
	if task.Status == "" {
		task.Status = StatusTodo
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, title, description, due_date, priority, status,
			reminder_date, reminder_sent, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, task.UserID, task.Title, task.Description, task.DueDate, task.Priority,
		task.Status, task.ReminderDate, task.ReminderSent, task.CompletedAt,
		task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get task id: %w", err)
	}
	task.ID = id
	return nil
}

// GetTask retrieves a task owned by userID.
func (s *Store) GetTask(ctx context.Context, id, userID int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	task, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// TaskFilter narrows ListTasks. Zero-valued fields are ignored.
type TaskFilter struct {
	Status    string
	Priority  string
	DueAfter  *time.Time
	DueBefore *time.Time
	Limit     int
}

// ListTasks returns userID's tasks matching the filter, soonest due date
// first, undated tasks last.
func (s *Store) ListTasks(ctx context.Context, userID int64, filter TaskFilter) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	args := []any{userID}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, filter.Priority)
	}
	if filter.DueAfter != nil {
		query += ` AND due_date >= ?`
		args = append(args, *filter.DueAfter)
	}
	if filter.DueBefore != nil {
		query += ` AND due_date <= ?`
		args = append(args, *filter.DueBefore)
	}
	query += ` ORDER BY due_date IS NULL, due_date, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask rewrites every mutable column of a task owned by the task's
// UserID.
func (s *Store) UpdateTask(ctx context.Context, task *Task) error {
	task.UpdatedAt = time.Now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, due_date = ?, priority = ?, status = ?,
			reminder_date = ?, reminder_sent = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, task.Title, task.Description, task.DueDate, task.Priority, task.Status,
		task.ReminderDate, task.ReminderSent, task.CompletedAt, task.UpdatedAt,
		task.ID, task.UserID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task not found: %d", task.ID)
	}
	return nil
}

// UpdateTaskStatus moves a task owned by userID to status. Moving to done
// stamps completed_at; moving anywhere else clears it.
func (s *Store) UpdateTaskStatus(ctx context.Context, id, userID int64, status string) error {
	completedAt := sql.NullTime{}
	if status == StatusDone {
		completedAt = sql.NullTime{Time: time.Now(), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, status, completedAt, time.Now(), id, userID)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task not found: %d", id)
	}
	return nil
}

// DeleteTask removes a task owned by userID.
func (s *Store) DeleteTask(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task not found: %d", id)
	}
	return nil
}

// DueTaskReminders returns tasks whose reminder date has passed, whose
// reminder has not been sent, and which are still open.
func (s *Store) DueTaskReminders(ctx context.Context, now time.Time) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE reminder_date IS NOT NULL AND reminder_sent = 0
			AND status NOT IN (?, ?)
		ORDER BY reminder_date
	`, StatusDone, StatusArchived)
	if err != nil {
		return nil, fmt.Errorf("failed to query task reminders: %w", err)
	}
	defer rows.Close()

	var due []*Task
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if task.ReminderDate.Time.After(now) {
			continue
		}
		due = append(due, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task reminders: %w", err)
	}
	return due, nil
}

// MarkTaskReminderSent records that the reminder for a task went out.
func (s *Store) MarkTaskReminderSent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET reminder_sent = 1, updated_at = ? WHERE id = ?
	`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark task reminder sent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task not found: %d", id)
	}
	return nil
}
