package agent

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chrona-app/chrona/internal/chrona/calendar"
	"github.com/chrona-app/chrona/internal/chrona/llm"
	"github.com/chrona-app/chrona/internal/chrona/nlp"
	"github.com/chrona-app/chrona/internal/chrona/store"
)

// Complex-query context bounds: events from a week back to two weeks ahead,
// and at most five open tasks per status.
const (
	contextEventsPast   = 7 * 24 * time.Hour
	contextEventsFuture = 14 * 24 * time.Hour
	contextTaskLimit    = 5
)

// CommandParser extracts structured fields from a command. Both the pure
// rule-based parser and the model-backed one satisfy it.
type CommandParser interface {
	ParseEvent(ctx context.Context, text string, ref time.Time) nlp.EventResult
	ParseTask(ctx context.Context, text string, ref time.Time) nlp.TaskResult
}

// Dispatcher routes classified commands to their handlers.
type Dispatcher struct {
	classifier Classifier
	parser     CommandParser
	calendar   *calendar.Service
	provider   llm.Provider
	model      string
	log        *slog.Logger
	now        func() time.Time
}

// DispatcherConfig carries the dispatcher's collaborators. Provider is
// optional; without it complex queries are declined and classification and
// parsing run rule-based only.
type DispatcherConfig struct {
	Classifier Classifier
	Parser     CommandParser
	Calendar   *calendar.Service
	Provider   llm.Provider
	Model      string
	Log        *slog.Logger
	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewDispatcher wires a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Classifier == nil {
		cfg.Classifier = NewRuleClassifier()
	}
	return &Dispatcher{
		classifier: cfg.Classifier,
		parser:     cfg.Parser,
		calendar:   cfg.Calendar,
		provider:   cfg.Provider,
		model:      cfg.Model,
		log:        cfg.Log,
		now:        cfg.Now,
	}
}

// ProcessCommand classifies text and runs the matching handler on behalf of
// userID. It always returns an envelope, never an error.
func (d *Dispatcher) ProcessCommand(ctx context.Context, userID int64, text string) *Response {
	intent := d.classifier.Classify(ctx, text)
	d.log.Info("command classified", "user_id", userID, "intent", intent)

	switch intent {
	case IntentCreateEvent:
		return d.handleCreateEvent(ctx, userID, text)
	case IntentCreateTask:
		return d.handleCreateTask(ctx, userID, text)
	case IntentShowEvents:
		return d.handleShowEvents(ctx, userID, text)
	case IntentShowTasks:
		return d.handleShowTasks(ctx, userID, text)
	case IntentUpdateTaskStatus:
		return d.handleUpdateTaskStatus(ctx, userID, text)
	case IntentComplexQuery:
		return d.handleComplexQuery(ctx, userID, text)
	default:
		return failure(IntentUnknown, "I couldn't understand your command. Please try again.", nil)
	}
}

func (d *Dispatcher) handleCreateEvent(ctx context.Context, userID int64, text string) *Response {
	now := d.now()
	result := d.parser.ParseEvent(ctx, text, now)
	fields := result.Fields

	// The rule-based path always fills in times; a model result may not.
	start := fields.StartTime
	if start == nil {
		s := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, now.Location()).Add(time.Hour)
		start = &s
	}
	end := fields.EndTime
	if end == nil || !end.After(*start) {
		e := start.Add(time.Hour)
		end = &e
	}

	evt := &store.Event{
		UserID:    userID,
		Title:     fields.Title,
		StartTime: *start,
		EndTime:   *end,
		IsAllDay:  fields.IsAllDay,
	}
	if fields.Location != "" {
		evt.Location = sql.NullString{String: fields.Location, Valid: true}
	}
	if fields.Description != "" {
		evt.Description = sql.NullString{String: fields.Description, Valid: true}
	}

	if err := d.calendar.CreateEvent(ctx, evt); err != nil {
		d.log.Error("failed to create event", "user_id", userID, "error", err)
		return failure(IntentCreateEvent, "Failed to create event. Please try again.", err)
	}

	summary := summarizeEvent(evt)
	return &Response{
		Success:     true,
		Message:     fmt.Sprintf("Event created: %s", evt.Title),
		CommandType: IntentCreateEvent,
		EventID:     evt.ID,
		Event:       &summary,
	}
}

func (d *Dispatcher) handleCreateTask(ctx context.Context, userID int64, text string) *Response {
	result := d.parser.ParseTask(ctx, text, d.now())
	fields := result.Fields

	task := &store.Task{
		UserID:   userID,
		Title:    fields.Title,
		Priority: fields.Priority,
		Status:   fields.Status,
	}
	if fields.DueDate != nil {
		task.DueDate = sql.NullTime{Time: *fields.DueDate, Valid: true}
	}
	if fields.Description != "" {
		task.Description = sql.NullString{String: fields.Description, Valid: true}
	}

	if err := d.calendar.CreateTask(ctx, task); err != nil {
		d.log.Error("failed to create task", "user_id", userID, "error", err)
		return failure(IntentCreateTask, "Failed to create task. Please try again.", err)
	}

	summary := summarizeTask(task)
	return &Response{
		Success:     true,
		Message:     fmt.Sprintf("Task created: %s", task.Title),
		CommandType: IntentCreateTask,
		TaskID:      task.ID,
		Task:        &summary,
	}
}

func (d *Dispatcher) handleShowEvents(ctx context.Context, userID int64, text string) *Response {
	start, end := extractDateRange(text, d.now())

	events, err := d.calendar.GetEvents(ctx, userID, start, end)
	if err != nil {
		d.log.Error("failed to list events", "user_id", userID, "error", err)
		return failure(IntentShowEvents, "Failed to retrieve events. Please try again.", err)
	}

	summaries := make([]EventSummary, 0, len(events))
	for _, evt := range events {
		summaries = append(summaries, summarizeEvent(evt))
	}

	return &Response{
		Success:     true,
		Message:     fmt.Sprintf("Found %d events", len(events)),
		CommandType: IntentShowEvents,
		Events:      summaries,
		DateRange:   echoDateRange(start, end),
	}
}

func (d *Dispatcher) handleShowTasks(ctx context.Context, userID int64, text string) *Response {
	lower := strings.ToLower(text)

	var filter store.TaskFilter
	switch {
	case strings.Contains(lower, "done") || strings.Contains(lower, "completed"):
		filter.Status = store.StatusDone
	case strings.Contains(lower, "in progress"):
		filter.Status = store.StatusInProgress
	case strings.Contains(lower, "todo") || strings.Contains(lower, "to do") || strings.Contains(lower, "to-do"):
		filter.Status = store.StatusTodo
	}
	switch {
	case strings.Contains(lower, "high priority"):
		filter.Priority = store.PriorityHigh
	case strings.Contains(lower, "low priority"):
		filter.Priority = store.PriorityLow
	case strings.Contains(lower, "medium priority"):
		filter.Priority = store.PriorityMedium
	}

	tasks, err := d.calendar.GetTasks(ctx, userID, filter)
	if err != nil {
		d.log.Error("failed to list tasks", "user_id", userID, "error", err)
		return failure(IntentShowTasks, "Failed to retrieve tasks. Please try again.", err)
	}

	summaries := make([]TaskSummary, 0, len(tasks))
	for _, task := range tasks {
		summaries = append(summaries, summarizeTask(task))
	}

	var described []string
	if filter.Status != "" {
		described = append(described, fmt.Sprintf("status='%s'", filter.Status))
	}
	if filter.Priority != "" {
		described = append(described, fmt.Sprintf("priority='%s'", filter.Priority))
	}
	message := fmt.Sprintf("Found %d tasks", len(tasks))
	if len(described) > 0 {
		message += " with filters " + strings.Join(described, ", ")
	}

	return &Response{
		Success:     true,
		Message:     message,
		CommandType: IntentShowTasks,
		Tasks:       summaries,
	}
}

func (d *Dispatcher) handleUpdateTaskStatus(ctx context.Context, userID int64, text string) *Response {
	taskID := nlp.ExtractTaskID(text)
	if taskID == 0 {
		return failure(IntentUpdateTaskStatus,
			"Couldn't identify which task to update. Please include the task ID.", nil)
	}

	// Marking a task defaults to done unless the text says otherwise.
	lower := strings.ToLower(text)
	status := store.StatusDone
	switch {
	case strings.Contains(lower, "in progress"):
		status = store.StatusInProgress
	case strings.Contains(lower, "todo") || strings.Contains(lower, "to do") || strings.Contains(lower, "to-do"):
		status = store.StatusTodo
	}

	if err := d.calendar.UpdateTaskStatus(ctx, taskID, userID, status); err != nil {
		return failure(IntentUpdateTaskStatus,
			fmt.Sprintf("Couldn't find task %d or you don't have permission to update it.", taskID), err)
	}

	resp := &Response{
		Success:     true,
		Message:     fmt.Sprintf("Task %d marked as %s", taskID, status),
		CommandType: IntentUpdateTaskStatus,
		TaskID:      taskID,
	}
	if task, err := d.calendar.GetTask(ctx, taskID, userID); err == nil {
		summary := summarizeTask(task)
		resp.Task = &summary
	}
	return resp
}

func (d *Dispatcher) handleComplexQuery(ctx context.Context, userID int64, text string) *Response {
	if d.provider == nil {
		return failure(IntentComplexQuery,
			"I can't answer that kind of question right now. Please try a simpler command.", nil)
	}

	now := d.now()
	from := now.Add(-contextEventsPast)
	to := now.Add(contextEventsFuture)
	events, err := d.calendar.GetEvents(ctx, userID, &from, &to)
	if err != nil {
		d.log.Error("failed to gather event context", "user_id", userID, "error", err)
		return failure(IntentComplexQuery, "Failed to answer your question. Please try again.", err)
	}

	var tasks []*store.Task
	for _, status := range []string{store.StatusTodo, store.StatusInProgress} {
		part, err := d.calendar.GetTasks(ctx, userID, store.TaskFilter{
			Status: status,
			Limit:  contextTaskLimit,
		})
		if err != nil {
			d.log.Error("failed to gather task context", "user_id", userID, "error", err)
			return failure(IntentComplexQuery, "Failed to answer your question. Please try again.", err)
		}
		tasks = append(tasks, part...)
	}

	resp, err := d.provider.Complete(ctx, llm.CompletionRequest{
		Model: d.model,
		Messages: []llm.Message{
			{Role: "system", Content: "You are Chrona, a personal calendar assistant. Answer the user's question using only the schedule context provided. Be concise and concrete."},
			{Role: "user", Content: formatScheduleContext(now, events, tasks) + "\n\nQuestion: " + text},
		},
	})
	if err != nil {
		d.log.Error("complex query failed", "user_id", userID, "error", err)
		return failure(IntentComplexQuery, "Failed to answer your question. Please try again.", err)
	}

	return &Response{
		Success:       true,
		Message:       resp.Content,
		CommandType:   IntentComplexQuery,
		ContextEvents: len(events),
		ContextTasks:  len(tasks),
	}
}

// formatScheduleContext renders the bounded schedule window as a text block
// for the model.
func formatScheduleContext(now time.Time, events []*store.Event, tasks []*store.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Current date and time: %s\n", now.Format("Monday, 2006-01-02 15:04"))

	b.WriteString("\nEvents:\n")
	if len(events) == 0 {
		b.WriteString("(none)\n")
	}
	for _, evt := range events {
		fmt.Fprintf(&b, "- %s: %s to %s", evt.Title,
			evt.StartTime.Format(envelopeTimeFormat), evt.EndTime.Format(envelopeTimeFormat))
		if evt.Location.Valid {
			fmt.Fprintf(&b, " at %s", evt.Location.String)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nTasks:\n")
	if len(tasks) == 0 {
		b.WriteString("(none)\n")
	}
	for _, task := range tasks {
		fmt.Fprintf(&b, "- %s [%s, %s priority]", task.Title, task.Status, task.Priority)
		if task.DueDate.Valid {
			fmt.Fprintf(&b, " due %s", task.DueDate.Time.Format(envelopeDateFormat))
		}
		b.WriteString("\n")
	}

	return b.String()
}
