package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Event represents a calendar event in the database.
type Event struct {
	ID          int64
	UserID      int64
	Title       string
	Description sql.NullString
	Location    sql.NullString
	StartTime   time.Time
	EndTime     time.Time
	IsAllDay    bool
	Color       sql.NullString
	// RecurringRule holds an iCal RFC 5545 recurrence rule, when set.
	RecurringRule sql.NullString
	// ReminderMinutes is how long before StartTime a reminder fires.
	ReminderMinutes sql.NullInt64
	ReminderSent    bool
	// SyncUID is the external calendar UID for events pulled in by a
	// provider sync. NULL for locally created events.
	SyncUID   sql.NullString
	CreatedAt time.Time
	UpdatedAt time.Time
}

const eventColumns = `id, user_id, title, description, location, start_time, end_time,
	is_all_day, color, recurring_rule, reminder_minutes, reminder_sent, sync_uid,
	created_at, updated_at`

func scanEvent(scan func(...any) error) (*Event, error) {
	evt := &Event{}
	err := scan(
		&evt.ID, &evt.UserID, &evt.Title, &evt.Description, &evt.Location,
		&evt.StartTime, &evt.EndTime, &evt.IsAllDay, &evt.Color,
		&evt.RecurringRule, &evt.ReminderMinutes, &evt.ReminderSent,
		&evt.SyncUID, &evt.CreatedAt, &evt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return evt, nil
}

// CreateEvent inserts a new event and fills in its assigned ID.
func (s *Store) CreateEvent(ctx context.Context, evt *Event) error {
	now := time.Now()
	evt.CreatedAt = now
	evt.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO events (user_id, title, description, location, start_time, end_time,
			is_all_day, color, recurring_rule, reminder_minutes, reminder_sent, sync_uid,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, evt.UserID, evt.Title, evt.Description, evt.Location, evt.StartTime, evt.EndTime,
		evt.IsAllDay, evt.Color, evt.RecurringRule, evt.ReminderMinutes, evt.ReminderSent,
		evt.SyncUID, evt.CreatedAt, evt.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event id: %w", err)
	}
	evt.ID = id
	return nil
}

// GetEvent retrieves an event owned by userID.
func (s *Store) GetEvent(ctx context.Context, id, userID int64) (*Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ? AND user_id = ?`, id, userID)
	evt, err := scanEvent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("event not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return evt, nil
}

// ListEvents returns userID's events ordered by start time. Either bound may
// be nil, which leaves that side of the window open.
func (s *Store) ListEvents(ctx context.Context, userID int64, start, end *time.Time) ([]*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE user_id = ?`
	args := []any{userID}
	if start != nil {
		query += ` AND start_time >= ?`
		args = append(args, *start)
	}
	if end != nil {
		query += ` AND start_time <= ?`
		args = append(args, *end)
	}
	query += ` ORDER BY start_time`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		evt, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}
	return events, nil
}

// UpdateEvent rewrites every mutable column of an event owned by the event's
// UserID.
func (s *Store) UpdateEvent(ctx context.Context, evt *Event) error {
	evt.UpdatedAt = time.Now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET title = ?, description = ?, location = ?, start_time = ?, end_time = ?,
			is_all_day = ?, color = ?, recurring_rule = ?, reminder_minutes = ?,
			reminder_sent = ?, sync_uid = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`, evt.Title, evt.Description, evt.Location, evt.StartTime, evt.EndTime,
		evt.IsAllDay, evt.Color, evt.RecurringRule, evt.ReminderMinutes,
		evt.ReminderSent, evt.SyncUID, evt.UpdatedAt, evt.ID, evt.UserID)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("event not found: %d", evt.ID)
	}
	return nil
}

// DeleteEvent removes an event owned by userID.
func (s *Store) DeleteEvent(ctx context.Context, id, userID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM events WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("event not found: %d", id)
	}
	return nil
}

// GetEventBySyncUID retrieves the event previously synced from an external
// calendar under uid.
func (s *Store) GetEventBySyncUID(ctx context.Context, userID int64, uid string) (*Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE user_id = ? AND sync_uid = ?`, userID, uid)
	evt, err := scanEvent(row.Scan)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event by sync uid: %w", err)
	}
	return evt, nil
}

// DueEventReminders returns events whose reminder window has opened at
// instant now and whose reminder has not been sent yet. Events already in
// the past are excluded.
func (s *Store) DueEventReminders(ctx context.Context, now time.Time) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+eventColumns+` FROM events
		WHERE reminder_minutes IS NOT NULL AND reminder_sent = 0 AND start_time > ?
		ORDER BY start_time
	`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query event reminders: %w", err)
	}
	defer rows.Close()

	var due []*Event
	for rows.Next() {
		evt, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		remindAt := evt.StartTime.Add(-time.Duration(evt.ReminderMinutes.Int64) * time.Minute)
		if !now.Before(remindAt) {
			due = append(due, evt)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event reminders: %w", err)
	}
	return due, nil
}

// MarkEventReminderSent records that the reminder for an event went out.
func (s *Store) MarkEventReminderSent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE events SET reminder_sent = 1, updated_at = ? WHERE id = ?
	`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark event reminder sent: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("event not found: %d", id)
	}
	return nil
}
