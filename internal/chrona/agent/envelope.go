package agent

import (
	"time"

	"github.com/chrona-app/chrona/internal/chrona/store"
)

// Response is the uniform envelope every handler produces. Intent-specific
// fields are omitted when empty; Success, Message, and CommandType are
// always present.
type Response struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	CommandType Intent `json:"command_type"`
	Error       string `json:"error,omitempty"`

	EventID int64          `json:"event_id,omitempty"`
	Event   *EventSummary  `json:"event,omitempty"`
	Events  []EventSummary `json:"events,omitempty"`

	TaskID int64         `json:"task_id,omitempty"`
	Task   *TaskSummary  `json:"task,omitempty"`
	Tasks  []TaskSummary `json:"tasks,omitempty"`

	DateRange *DateRangeEcho `json:"date_range,omitempty"`

	// ContextEvents and ContextTasks report how much schedule context a
	// complex query was answered with.
	ContextEvents int `json:"context_events,omitempty"`
	ContextTasks  int `json:"context_tasks,omitempty"`
}

// EventSummary is the event shape embedded in envelopes.
type EventSummary struct {
	ID        int64  `json:"id,omitempty"`
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Location  string `json:"location,omitempty"`
}

// TaskSummary is the task shape embedded in envelopes.
type TaskSummary struct {
	ID       int64  `json:"id,omitempty"`
	Title    string `json:"title"`
	Priority string `json:"priority,omitempty"`
	Status   string `json:"status,omitempty"`
	DueDate  string `json:"due_date,omitempty"`
}

// DateRangeEcho is the human-readable range a show_events query resolved to.
// An absent bound echoes as "all past events" / "all future events".
type DateRangeEcho struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

const (
	envelopeTimeFormat = "2006-01-02 15:04"
	envelopeDateFormat = "2006-01-02"
)

func summarizeEvent(evt *store.Event) EventSummary {
	return EventSummary{
		ID:        evt.ID,
		Title:     evt.Title,
		StartTime: evt.StartTime.Format(envelopeTimeFormat),
		EndTime:   evt.EndTime.Format(envelopeTimeFormat),
		Location:  evt.Location.String,
	}
}

func summarizeTask(task *store.Task) TaskSummary {
	summary := TaskSummary{
		ID:       task.ID,
		Title:    task.Title,
		Priority: task.Priority,
		Status:   task.Status,
	}
	if task.DueDate.Valid {
		summary.DueDate = task.DueDate.Time.Format(envelopeDateFormat)
	}
	return summary
}

func echoDateRange(start, end *time.Time) *DateRangeEcho {
	echo := &DateRangeEcho{Start: "all past events", End: "all future events"}
	if start != nil {
		echo.Start = start.Format(envelopeDateFormat)
	}
	if end != nil {
		echo.End = end.Format(envelopeDateFormat)
	}
	return echo
}

// failure builds a success:false envelope preserving the command type.
func failure(intent Intent, message string, err error) *Response {
	resp := &Response{
		Success:     false,
		Message:     message,
		CommandType: intent,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
