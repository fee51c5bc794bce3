package agent_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/chrona-app/chrona/internal/chrona/agent"
	"github.com/chrona-app/chrona/internal/chrona/calendar"
	"github.com/chrona-app/chrona/internal/chrona/llm"
	"github.com/chrona-app/chrona/internal/chrona/nlp"
	"github.com/chrona-app/chrona/internal/chrona/store"
)

// Monday, June 3rd 2024, midnight.
var dispatchNow = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

// fixedClassifier always returns the same intent, to drive a specific
// handler regardless of keyword precedence.
type fixedClassifier struct{ intent agent.Intent }

func (f fixedClassifier) Classify(_ context.Context, _ string) agent.Intent { return f.intent }

type dispatcherEnv struct {
	dispatcher *agent.Dispatcher
	store      *store.Store
	service    *calendar.Service
	userID     int64
}

func newDispatcherEnv(t *testing.T, classifier agent.Classifier, provider llm.Provider) *dispatcherEnv {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "chrona-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp db file: %v", err)
	}
	f.Close()

	st, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	user := &store.User{Username: "alice", Email: "alice@example.com", HashedPassword: "x"}
	if err := st.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	svc := calendar.New(st, nil, nil)
	parser := llm.NewExtractionParser(nil, nlp.NewParser(nlp.NewHeuristicTagger()), "", nil)

	d := agent.NewDispatcher(agent.DispatcherConfig{
		Classifier: classifier,
		Parser:     parser,
		Calendar:   svc,
		Provider:   provider,
		Now:        func() time.Time { return dispatchNow },
	})
	return &dispatcherEnv{dispatcher: d, store: st, service: svc, userID: user.ID}
}

func TestProcessCommand_CreateEvent(t *testing.T) {
	env := newDispatcherEnv(t, nil, nil)

	resp := env.dispatcher.ProcessCommand(context.Background(), env.userID,
		"Schedule a meeting with John at 2pm tomorrow for 1 hour at coffee shop")

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.CommandType != agent.IntentCreateEvent {
		t.Errorf("command_type: got %q", resp.CommandType)
	}
	if resp.EventID == 0 || resp.Event == nil {
		t.Fatal("expected an event id and summary")
	}
	if !strings.Contains(strings.ToLower(resp.Event.Title), "meeting with john") {
		t.Errorf("title: got %q", resp.Event.Title)
	}
	if resp.Event.Location != "coffee shop" {
		t.Errorf("location: got %q", resp.Event.Location)
	}

	evt, err := env.store.GetEvent(context.Background(), resp.EventID, env.userID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	wantStart := time.Date(2024, 6, 4, 14, 0, 0, 0, time.UTC)
	if !evt.StartTime.Equal(wantStart) {
		t.Errorf("persisted start: got %v, want %v", evt.StartTime, wantStart)
	}
	if !evt.EndTime.Equal(wantStart.Add(time.Hour)) {
		t.Errorf("persisted end: got %v, want %v", evt.EndTime, wantStart.Add(time.Hour))
	}
}

func TestProcessCommand_CreateTask(t *testing.T) {
	env := newDispatcherEnv(t, nil, nil)

	resp := env.dispatcher.ProcessCommand(context.Background(), env.userID,
		"Add a task to submit report by Friday high priority")

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.CommandType != agent.IntentCreateTask {
		t.Errorf("command_type: got %q", resp.CommandType)
	}
	if resp.Task == nil {
		t.Fatal("expected a task summary")
	}
	if !strings.Contains(resp.Task.Title, "submit report") {
		t.Errorf("title: got %q", resp.Task.Title)
	}
	if resp.Task.Priority != "high" {
		t.Errorf("priority: got %q", resp.Task.Priority)
	}
	// That week's Friday is June 7th.
	if resp.Task.DueDate != "2024-06-07" {
		t.Errorf("due_date: got %q, want 2024-06-07", resp.Task.DueDate)
	}
}

func TestProcessCommand_ShowEvents_ThisWeek(t *testing.T) {
	env := newDispatcherEnv(t, nil, nil)

	// One event inside this week, one outside it.
	seed := []struct {
		title string
		start time.Time
	}{
		{"inside", time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC)},
		{"outside", time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC)},
	}
	for _, sd := range seed {
		evt := &store.Event{
			UserID:    env.userID,
			Title:     sd.title,
			StartTime: sd.start,
			EndTime:   sd.start.Add(time.Hour),
		}
		if err := env.store.CreateEvent(context.Background(), evt); err != nil {
			t.Fatalf("CreateEvent(%s): %v", sd.title, err)
		}
	}

	resp := env.dispatcher.ProcessCommand(context.Background(), env.userID,
		"Show my events for this week")

	if !resp.Success || resp.CommandType != agent.IntentShowEvents {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if len(resp.Events) != 1 || resp.Events[0].Title != "inside" {
		t.Errorf("events: got %+v, want just %q", resp.Events, "inside")
	}
	if resp.DateRange == nil || resp.DateRange.Start != "2024-06-03" || resp.DateRange.End != "2024-06-09" {
		t.Errorf("date_range: got %+v", resp.DateRange)
	}
	if resp.Message != "Found 1 events" {
		t.Errorf("message: got %q", resp.Message)
	}
}

func TestProcessCommand_ShowEvents_OpenRangeEcho(t *testing.T) {
	env := newDispatcherEnv(t, fixedClassifier{agent.IntentShowEvents}, nil)

	resp := env.dispatcher.ProcessCommand(context.Background(), env.userID, "show everything")
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.DateRange == nil ||
		resp.DateRange.Start != "all past events" ||
		resp.DateRange.End != "all future events" {
		t.Errorf("date_range: got %+v", resp.DateRange)
	}
}

func TestProcessCommand_ShowTasks_Filters(t *testing.T) {
	env := newDispatcherEnv(t, fixedClassifier{agent.IntentShowTasks}, nil)

	seed := []struct {
		title    string
		priority string
		status   string
	}{
		{"a", store.PriorityHigh, store.StatusTodo},
		{"b", store.PriorityLow, store.StatusTodo},
		{"c", store.PriorityHigh, store.StatusDone},
	}
	for _, sd := range seed {
		task := &store.Task{UserID: env.userID, Title: sd.title, Priority: sd.priority, Status: sd.status}
		if err := env.store.CreateTask(context.Background(), task); err != nil {
			t.Fatalf("CreateTask(%s): %v", sd.title, err)
		}
	}

	resp := env.dispatcher.ProcessCommand(context.Background(), env.userID,
		"show my todo tasks with high priority")

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if len(resp.Tasks) != 1 || resp.Tasks[0].Title != "a" {
		t.Errorf("tasks: got %+v, want just %q", resp.Tasks, "a")
	}
	if !strings.Contains(resp.Message, "status='todo'") || !strings.Contains(resp.Message, "priority='high'") {
		t.Errorf("message: got %q", resp.Message)
	}
}

func TestProcessCommand_UpdateTaskStatus(t *testing.T) {
	env := newDispatcherEnv(t, fixedClassifier{agent.IntentUpdateTaskStatus}, nil)

	task := &store.Task{UserID: env.userID, Title: "Ship the release"}
	if err := env.store.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	resp := env.dispatcher.ProcessCommand(context.Background(), env.userID,
		"mark task 1 as done")

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.TaskID != task.ID {
		t.Errorf("task_id: got %d, want %d", resp.TaskID, task.ID)
	}
	if resp.Task == nil || resp.Task.Status != store.StatusDone {
		t.Errorf("task summary: got %+v, want status done", resp.Task)
	}

	got, err := env.store.GetTask(context.Background(), task.ID, env.userID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if !got.CompletedAt.Valid {
		t.Error("CompletedAt should be stamped")
	}
}

func TestProcessCommand_UpdateTaskStatus_InProgressOverride(t *testing.T) {
	env := newDispatcherEnv(t, fixedClassifier{agent.IntentUpdateTaskStatus}, nil)

	task := &store.Task{UserID: env.userID, Title: "Draft"}
	if err := env.store.CreateTask(context.Background(), task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	resp := env.dispatcher.ProcessCommand(context.Background(), env.userID,
		"mark task 1 as in progress")
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.Task == nil || resp.Task.Status != store.StatusInProgress {
		t.Errorf("task summary: got %+v, want status in_progress", resp.Task)
	}
}

func TestProcessCommand_UpdateTaskStatus_MissingID(t *testing.T) {
	env := newDispatcherEnv(t, fixedClassifier{agent.IntentUpdateTaskStatus}, nil)

	resp := env.dispatcher.ProcessCommand(context.Background(), env.userID,
		"mark my report as done")

	if resp.Success {
		t.Fatal("expected failure without a task ID")
	}
	if resp.CommandType != agent.IntentUpdateTaskStatus {
		t.Errorf("command_type: got %q", resp.CommandType)
	}
	if !strings.Contains(resp.Message, "task ID") {
		t.Errorf("message should ask for the task ID, got %q", resp.Message)
	}
}

func TestProcessCommand_UpdateTaskStatus_NotFound(t *testing.T) {
	env := newDispatcherEnv(t, fixedClassifier{agent.IntentUpdateTaskStatus}, nil)

	resp := env.dispatcher.ProcessCommand(context.Background(), env.userID,
		"mark task 42 as done")

	if resp.Success {
		t.Fatal("expected failure for a missing task")
	}
	if !strings.Contains(resp.Message, "42") {
		t.Errorf("message: got %q", resp.Message)
	}
}

func TestProcessCommand_ComplexQuery(t *testing.T) {
	provider := &stubProvider{content: "Your week looks light."}
	env := newDispatcherEnv(t, fixedClassifier{agent.IntentComplexQuery}, provider)

	// One event inside the context window, one far outside it.
	for _, start := range []time.Time{
		dispatchNow.Add(48 * time.Hour),
		dispatchNow.Add(40 * 24 * time.Hour),
	} {
		evt := &store.Event{
			UserID:    env.userID,
			Title:     "evt",
			StartTime: start,
			EndTime:   start.Add(time.Hour),
		}
		if err := env.store.CreateEvent(context.Background(), evt); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}
	// Seven open tasks; the context caps at five.
	for i := 0; i < 7; i++ {
		task := &store.Task{UserID: env.userID, Title: "t"}
		if err := env.store.CreateTask(context.Background(), task); err != nil {
			t.Fatalf("CreateTask: %v", err)
		}
	}

	resp := env.dispatcher.ProcessCommand(context.Background(), env.userID,
		"am I overbooked this week?")

	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.Message != "Your week looks light." {
		t.Errorf("message should be the model reply verbatim, got %q", resp.Message)
	}
	if resp.ContextEvents != 1 {
		t.Errorf("context_events: got %d, want 1", resp.ContextEvents)
	}
	if resp.ContextTasks != 5 {
		t.Errorf("context_tasks: got %d, want 5", resp.ContextTasks)
	}
}

func TestProcessCommand_ComplexQuery_NoProvider(t *testing.T) {
	env := newDispatcherEnv(t, fixedClassifier{agent.IntentComplexQuery}, nil)

	resp := env.dispatcher.ProcessCommand(context.Background(), env.userID, "am I overbooked?")
	if resp.Success {
		t.Fatal("expected a decline without a provider")
	}
	if resp.CommandType != agent.IntentComplexQuery {
		t.Errorf("command_type: got %q", resp.CommandType)
	}
}

func TestProcessCommand_Unknown(t *testing.T) {
	env := newDispatcherEnv(t, nil, nil)

	resp := env.dispatcher.ProcessCommand(context.Background(), env.userID, "hello there")
	if resp.Success {
		t.Fatal("expected failure for an unclassifiable command")
	}
	if resp.CommandType != agent.IntentUnknown {
		t.Errorf("command_type: got %q", resp.CommandType)
	}
}

func TestProcessCommand_CreateEvent_StoreFailure(t *testing.T) {
	env := newDispatcherEnv(t, fixedClassifier{agent.IntentCreateEvent}, nil)

	// Close the database underneath the dispatcher to force a storage
	// error; the envelope must stay structured.
	env.store.Close()

	resp := env.dispatcher.ProcessCommand(context.Background(), env.userID,
		"Schedule a meeting tomorrow at 2pm")
	if resp.Success {
		t.Fatal("expected failure after the store closed")
	}
	if resp.CommandType != agent.IntentCreateEvent {
		t.Errorf("command_type: got %q", resp.CommandType)
	}
	if resp.Error == "" {
		t.Error("expected the captured error message")
	}
}
