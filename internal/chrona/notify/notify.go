// Package notify delivers reminders and notifications to users.
package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// Notifier sends a notification to a user. Implementations must be safe for
// concurrent use; delivery failures are reported, not fatal.
type Notifier interface {
	// Notify sends a free-form notification.
	Notify(ctx context.Context, userID int64, title, message string) error
	// RemindEvent sends a reminder for an upcoming event.
	RemindEvent(ctx context.Context, userID, eventID int64, title string) error
	// RemindTask sends a reminder for a due task.
	RemindTask(ctx context.Context, userID, taskID int64, title string) error
}

// LogNotifier writes notifications to the structured log instead of sending
// them anywhere. It is the default and the fallback when email is disabled.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier returns a Notifier backed by log.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, userID int64, title, message string) error {
	n.log.Info("notification", "user_id", userID, "title", title, "message", message)
	return nil
}

func (n *LogNotifier) RemindEvent(_ context.Context, userID, eventID int64, title string) error {
	n.log.Info("event reminder", "user_id", userID, "event_id", eventID, "title", title)
	return nil
}

func (n *LogNotifier) RemindTask(_ context.Context, userID, taskID int64, title string) error {
	n.log.Info("task reminder", "user_id", userID, "task_id", taskID, "title", title)
	return nil
}

// EmailNotifier sends notifications by email. When disabled it degrades to
// logging what would have been sent.
//
// Actual SMTP delivery is stubbed: the notifier records the outgoing message
// in the log. The Notifier boundary keeps a real transport swappable in.
type EmailNotifier struct {
	enabled bool
	from    string
	log     *slog.Logger
}

// NewEmailNotifier returns an email-backed Notifier.
func NewEmailNotifier(enabled bool, from string, log *slog.Logger) *EmailNotifier {
	if log == nil {
		log = slog.Default()
	}
	if !enabled {
		log.Warn("email notifications are disabled")
	}
	return &EmailNotifier{enabled: enabled, from: from, log: log}
}

func (n *EmailNotifier) Notify(_ context.Context, userID int64, title, message string) error {
	if !n.enabled {
		n.log.Info("email would be sent", "user_id", userID, "title", title)
		return nil
	}
	n.log.Info("sending email", "user_id", userID, "from", n.from, "title", title, "message", message)
	return nil
}

func (n *EmailNotifier) RemindEvent(ctx context.Context, userID, eventID int64, title string) error {
	return n.Notify(ctx, userID,
		fmt.Sprintf("Reminder for Event #%d", eventID),
		fmt.Sprintf("You have an upcoming event: %s", title))
}

func (n *EmailNotifier) RemindTask(ctx context.Context, userID, taskID int64, title string) error {
	return n.Notify(ctx, userID,
		fmt.Sprintf("Reminder for Task #%d", taskID),
		fmt.Sprintf("You have a task due soon: %s", title))
}

// New picks a Notifier implementation: email when enabled, logging otherwise.
func New(emailEnabled bool, emailFrom string, log *slog.Logger) Notifier {
	if emailEnabled {
		return NewEmailNotifier(true, emailFrom, log)
	}
	return NewLogNotifier(log)
}
