package agent

import (
	"strings"
	"time"
)

// extractDateRange turns a textual range phrase into window bounds, both nil
// when the text names no range. The week starts on Monday; month boundaries
// come from calendar rollover.
func extractDateRange(text string, now time.Time) (start, end *time.Time) {
	lower := strings.ToLower(text)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	endOfDay := func(t time.Time) time.Time {
		return t.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
	}

	switch {
	case strings.Contains(lower, "today"):
		s, e := today, endOfDay(today)
		return &s, &e

	case strings.Contains(lower, "tomorrow"):
		s := today.AddDate(0, 0, 1)
		e := endOfDay(s)
		return &s, &e

	case strings.Contains(lower, "this week"):
		s := today.AddDate(0, 0, -mondayIndex(today.Weekday()))
		e := endOfDay(s.AddDate(0, 0, 6))
		return &s, &e

	case strings.Contains(lower, "next week"):
		s := today.AddDate(0, 0, -mondayIndex(today.Weekday())+7)
		e := endOfDay(s.AddDate(0, 0, 6))
		return &s, &e

	case strings.Contains(lower, "this month"):
		s := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		e := endOfDay(s.AddDate(0, 1, -1))
		return &s, &e
	}

	return nil, nil
}

// mondayIndex maps a weekday to its Monday-based offset (Monday=0 ... Sunday=6).
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}
