package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// User represents an account in the database.
type User struct {
	ID                 int64
	Username           string
	Email              string
	HashedPassword     string
	FullName           sql.NullString
	IsActive           bool
	CalendarPreference sql.NullString
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CreateUser inserts a new user and fills in its assigned ID.
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.IsActive = true

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, hashed_password, full_name, is_active, calendar_preference, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, user.Username, user.Email, user.HashedPassword, user.FullName,
		user.IsActive, user.CalendarPreference, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %w", err)
	}
	user.ID = id
	return nil
}

const userColumns = `id, username, email, hashed_password, full_name, is_active, calendar_preference, created_at, updated_at`

func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.HashedPassword,
		&user.FullName, &user.IsActive, &user.CalendarPreference,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// SetCalendarPreference stores the user's preferred external calendar
// provider ("google", "caldav", or empty for none).
func (s *Store) SetCalendarPreference(ctx context.Context, id int64, preference string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET calendar_preference = ?, updated_at = ?
		WHERE id = ?
	`, preference, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set calendar preference: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %d", id)
	}
	return nil
}
