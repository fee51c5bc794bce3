package agent_test

import (
	"context"
	"testing"

	"github.com/chrona-app/chrona/internal/chrona/agent"
)

func TestRuleClassifier(t *testing.T) {
	cases := []struct {
		text string
		want agent.Intent
	}{
		{"Schedule a meeting with John tomorrow at 2pm", agent.IntentCreateEvent},
		{"create event for the offsite", agent.IntentCreateEvent},
		{"new event on monday", agent.IntentCreateEvent},
		{"Add a task to submit report by Friday", agent.IntentCreateTask},
		{"add this to my to-do list", agent.IntentCreateTask},
		{"Show my events for next week", agent.IntentShowEvents},
		{"what events do I have", agent.IntentShowEvents},
		{"list all my open items", agent.IntentUnknown},
		{"Lunch with Ana tomorrow", agent.IntentCreateEvent}, // time indicator fallback
		{"Dinner at 7", agent.IntentCreateEvent},             // " at " indicator
		{"hello there", agent.IntentUnknown},
		{"", agent.IntentUnknown},
	}

	c := agent.NewRuleClassifier()
	for _, tc := range cases {
		if got := c.Classify(context.Background(), tc.text); got != tc.want {
			t.Errorf("Classify(%q): got %q, want %q", tc.text, got, tc.want)
		}
	}
}

func TestRuleClassifier_PrecedenceOrderHolds(t *testing.T) {
	// A create-event keyword beats a show-tasks keyword appearing in the
	// same command.
	c := agent.NewRuleClassifier()
	got := c.Classify(context.Background(), "schedule time to review my tasks")
	if got != agent.IntentCreateEvent {
		t.Errorf("got %q, want %q", got, agent.IntentCreateEvent)
	}

	// The bare "task" keyword wins over both the show-tasks vocabulary and
	// the status-update verbs, matching the fixed precedence even for
	// commands that read like listings or updates.
	for _, text := range []string{"list tasks with high priority", "mark task 7 as done"} {
		if got := c.Classify(context.Background(), text); got != agent.IntentCreateTask {
			t.Errorf("Classify(%q): got %q, want %q", text, got, agent.IntentCreateTask)
		}
	}
}

func TestRuleClassifier_UpdateVerbsNeedTaskWord(t *testing.T) {
	// "complete" and "finish" alone never reach update_task_status, and
	// without the word "task" they fall through to the time-indicator
	// check, then unknown.
	c := agent.NewRuleClassifier()
	if got := c.Classify(context.Background(), "finish the report"); got != agent.IntentUnknown {
		t.Errorf("got %q, want %q", got, agent.IntentUnknown)
	}
}
