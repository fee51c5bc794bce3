package google

import (
	"testing"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

func TestConvertEvent_Timed(t *testing.T) {
	item := &calendar.Event{
		ICalUID:     "uid-1",
		Summary:     "Standup",
		Location:    "Zoom",
		Description: "daily",
		Start:       &calendar.EventDateTime{DateTime: "2024-06-05T09:00:00Z"},
		End:         &calendar.EventDateTime{DateTime: "2024-06-05T09:15:00Z"},
	}

	rev, ok := convertEvent(item)
	if !ok {
		t.Fatal("expected a conversion")
	}
	if rev.UID != "uid-1" || rev.Title != "Standup" || rev.Location != "Zoom" {
		t.Errorf("fields: got %+v", rev)
	}
	wantStart := time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)
	if !rev.StartTime.Equal(wantStart) || !rev.EndTime.Equal(wantStart.Add(15*time.Minute)) {
		t.Errorf("times: got %v to %v", rev.StartTime, rev.EndTime)
	}
	if rev.IsAllDay {
		t.Error("a timed event must not be all-day")
	}
}

func TestConvertEvent_AllDay(t *testing.T) {
	item := &calendar.Event{
		ICalUID: "uid-2",
		Summary: "Conference",
		Start:   &calendar.EventDateTime{Date: "2024-06-05"},
		End:     &calendar.EventDateTime{Date: "2024-06-07"},
	}

	rev, ok := convertEvent(item)
	if !ok {
		t.Fatal("expected a conversion")
	}
	if !rev.IsAllDay {
		t.Error("a date-only event must be all-day")
	}
	if rev.StartTime.Hour() != 0 || rev.EndTime.Day() != 7 {
		t.Errorf("times: got %v to %v", rev.StartTime, rev.EndTime)
	}
}

func TestConvertEvent_SkipsWithoutTimes(t *testing.T) {
	items := []*calendar.Event{
		nil,
		{ICalUID: "a", Summary: "no start"},
		{ICalUID: "b", Summary: "empty start", Start: &calendar.EventDateTime{}, End: &calendar.EventDateTime{}},
		{ICalUID: "c", Summary: "bad time",
			Start: &calendar.EventDateTime{DateTime: "yesterday"},
			End:   &calendar.EventDateTime{DateTime: "later"}},
	}
	if got := convertEvents(items); len(got) != 0 {
		t.Errorf("converted: got %d, want 0", len(got))
	}
}

func TestConvertEvent_GeneratesUIDWhenMissing(t *testing.T) {
	item := &calendar.Event{
		Summary: "No UID",
		Start:   &calendar.EventDateTime{DateTime: "2024-06-05T09:00:00Z"},
		End:     &calendar.EventDateTime{DateTime: "2024-06-05T10:00:00Z"},
	}

	rev, ok := convertEvent(item)
	if !ok {
		t.Fatal("expected a conversion")
	}
	if rev.UID == "" {
		t.Error("expected a generated UID")
	}
}
