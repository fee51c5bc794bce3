// Package calendar implements the storage-facing service for events and
// tasks: validation, ownership-scoped CRUD, and the reminder sweep.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chrona-app/chrona/internal/chrona/notify"
	"github.com/chrona-app/chrona/internal/chrona/store"
)

// Service wraps the store with domain rules. All operations are scoped to
// the owning user; a caller can never see or mutate another user's data.
type Service struct {
	store    *store.Store
	notifier notify.Notifier
	log      *slog.Logger
}

// New creates a Service.
func New(st *store.Store, notifier notify.Notifier, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if notifier == nil {
		notifier = notify.NewLogNotifier(log)
	}
	return &Service{store: st, notifier: notifier, log: log}
}

// validPriorities and validStatuses are the accepted task enums.
var validPriorities = map[string]bool{
	store.PriorityLow:    true,
	store.PriorityMedium: true,
	store.PriorityHigh:   true,
}

var validStatuses = map[string]bool{
	store.StatusTodo:       true,
	store.StatusInProgress: true,
	store.StatusDone:       true,
	store.StatusArchived:   true,
}

// --- Events ---

// CreateEvent validates and persists a new event.
func (s *Service) CreateEvent(ctx context.Context, evt *store.Event) error {
	if evt.Title == "" {
		return fmt.Errorf("event title is required")
	}
	if evt.UserID == 0 {
		return fmt.Errorf("event user is required")
	}
	if !evt.EndTime.After(evt.StartTime) {
		return fmt.Errorf("event end time must be after its start time")
	}
	return s.store.CreateEvent(ctx, evt)
}

// GetEvent returns one of userID's events.
func (s *Service) GetEvent(ctx context.Context, id, userID int64) (*store.Event, error) {
	return s.store.GetEvent(ctx, id, userID)
}

// GetEvents returns userID's events inside the window. Either bound may be
// nil.
func (s *Service) GetEvents(ctx context.Context, userID int64, start, end *time.Time) ([]*store.Event, error) {
	return s.store.ListEvents(ctx, userID, start, end)
}

// UpdateEvent validates and persists changes to an event.
func (s *Service) UpdateEvent(ctx context.Context, evt *store.Event) error {
	if evt.Title == "" {
		return fmt.Errorf("event title is required")
	}
	if !evt.EndTime.After(evt.StartTime) {
		return fmt.Errorf("event end time must be after its start time")
	}
	return s.store.UpdateEvent(ctx, evt)
}

// DeleteEvent removes one of userID's events.
func (s *Service) DeleteEvent(ctx context.Context, id, userID int64) error {
	return s.store.DeleteEvent(ctx, id, userID)
}

// --- Tasks ---

// CreateTask validates and persists a new task.
func (s *Service) CreateTask(ctx context.Context, task *store.Task) error {
	if task.Title == "" {
		return fmt.Errorf("task title is required")
	}
	if task.UserID == 0 {
		return fmt.Errorf("task user is required")
	}
	if task.Priority != "" && !validPriorities[task.Priority] {
		return fmt.Errorf("invalid priority %q", task.Priority)
	}
	if task.Status != "" && !validStatuses[task.Status] {
		return fmt.Errorf("invalid status %q", task.Status)
	}
	return s.store.CreateTask(ctx, task)
}

// GetTask returns one of userID's tasks.
func (s *Service) GetTask(ctx context.Context, id, userID int64) (*store.Task, error) {
	return s.store.GetTask(ctx, id, userID)
}

// GetTasks returns userID's tasks matching the filter.
func (s *Service) GetTasks(ctx context.Context, userID int64, filter store.TaskFilter) ([]*store.Task, error) {
	if filter.Status != "" && !validStatuses[filter.Status] {
		return nil, fmt.Errorf("invalid status %q", filter.Status)
	}
	if filter.Priority != "" && !validPriorities[filter.Priority] {
		return nil, fmt.Errorf("invalid priority %q", filter.Priority)
	}
	return s.store.ListTasks(ctx, userID, filter)
}

// UpdateTask validates and persists changes to a task.
func (s *Service) UpdateTask(ctx context.Context, task *store.Task) error {
	if task.Title == "" {
		return fmt.Errorf("task title is required")
	}
	if !validPriorities[task.Priority] {
		return fmt.Errorf("invalid priority %q", task.Priority)
	}
	if !validStatuses[task.Status] {
		return fmt.Errorf("invalid status %q", task.Status)
	}
	return s.store.UpdateTask(ctx, task)
}

// UpdateTaskStatus moves one of userID's tasks to status. The store stamps
// or clears the completion time as appropriate.
func (s *Service) UpdateTaskStatus(ctx context.Context, id, userID int64, status string) error {
	if !validStatuses[status] {
		return fmt.Errorf("invalid status %q", status)
	}
	return s.store.UpdateTaskStatus(ctx, id, userID, status)
}

// DeleteTask removes one of userID's tasks.
func (s *Service) DeleteTask(ctx context.Context, id, userID int64) error {
	return s.store.DeleteTask(ctx, id, userID)
}

// --- Reminders ---

// ProcessDueReminders delivers every due event and task reminder as of now
// and returns how many went out. Individual delivery failures are logged and
// skipped so one bad notification cannot stall the sweep.
func (s *Service) ProcessDueReminders(ctx context.Context, now time.Time) (int, error) {
	sent := 0

	events, err := s.store.DueEventReminders(ctx, now)
	if err != nil {
		return sent, err
	}
	for _, evt := range events {
		if err := s.notifier.RemindEvent(ctx, evt.UserID, evt.ID, evt.Title); err != nil {
			s.log.Error("event reminder delivery failed", "event_id", evt.ID, "error", err)
			continue
		}
		if err := s.store.MarkEventReminderSent(ctx, evt.ID); err != nil {
			s.log.Error("failed to mark event reminder sent", "event_id", evt.ID, "error", err)
			continue
		}
		sent++
	}

	tasks, err := s.store.DueTaskReminders(ctx, now)
	if err != nil {
		return sent, err
	}
	for _, task := range tasks {
		if err := s.notifier.RemindTask(ctx, task.UserID, task.ID, task.Title); err != nil {
			s.log.Error("task reminder delivery failed", "task_id", task.ID, "error", err)
			continue
		}
		if err := s.store.MarkTaskReminderSent(ctx, task.ID); err != nil {
			s.log.Error("failed to mark task reminder sent", "task_id", task.ID, "error", err)
			continue
		}
		sent++
	}

	return sent, nil
}
