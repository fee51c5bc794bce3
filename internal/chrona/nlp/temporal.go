package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeInfo is the output of temporal expression resolution. Start and End are
// nil when no date (or no duration, respectively) could be extracted.
type TimeInfo struct {
	Start *time.Time
	End   *time.Time
}

// defaultHour is the clock hour assigned when a date phrase is found but no
// time of day accompanies it ("submit report by Friday" → Friday 09:00).
const defaultHour = 9

var (
	tomorrowRe = regexp.MustCompile(`(?i)\b(tomorrow)\b`)
	nextWeekRe = regexp.MustCompile(`(?i)\b(next week|in a week)\b`)

	// timeOfDayRe matches "at 2pm", "from 10:30 a.m.", or a bare "7".
	// The meridiem defaults to am when omitted.
	timeOfDayRe = regexp.MustCompile(`(?i)\b(at|from)?\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?`)

	durationRe = regexp.MustCompile(`(?i)for\s+(\d+)\s+(hour|hours|hr|hrs)`)
)

// weekdayPatterns pairs each weekday name with its compiled word-boundary
// pattern, in Monday-first order. The scan order is part of the contract:
// a later weekday mention overwrites an earlier one, and any weekday hit
// overwrites a prior "tomorrow" / "next week" resolution.
var weekdayPatterns = []struct {
	re  *regexp.Regexp
	day time.Weekday
}{
	{regexp.MustCompile(`(?i)\b(monday)\b`), time.Monday},
	{regexp.MustCompile(`(?i)\b(tuesday)\b`), time.Tuesday},
	{regexp.MustCompile(`(?i)\b(wednesday)\b`), time.Wednesday},
	{regexp.MustCompile(`(?i)\b(thursday)\b`), time.Thursday},
	{regexp.MustCompile(`(?i)\b(friday)\b`), time.Friday},
	{regexp.MustCompile(`(?i)\b(saturday)\b`), time.Saturday},
	{regexp.MustCompile(`(?i)\b(sunday)\b`), time.Sunday},
}

// Resolve extracts date, time-of-day, and duration information from text,
// anchored to the reference instant ref.
//
// Date resolution: "tomorrow" → ref+1d; "next week"/"in a week" → ref+7d;
// a weekday name → the next strictly-future occurrence of that weekday
// (same-day resolves a full week ahead, never "today"). Conflicting cues
// resolve last-match-wins in the order above.
//
// Time of day is only applied when a date was found. Without a time-of-day
// match the date stands at 09:00 and End stays nil; with one, End is
// Start + the "for N hours" duration, defaulting to one hour.
func Resolve(text string, ref time.Time) TimeInfo {
	base := time.Date(ref.Year(), ref.Month(), ref.Day(), defaultHour, 0, 0, 0, ref.Location())

	var start *time.Time
	if tomorrowRe.MatchString(text) {
		t := base.AddDate(0, 0, 1)
		start = &t
	} else if nextWeekRe.MatchString(text) {
		t := base.AddDate(0, 0, 7)
		start = &t
	}

	for _, wp := range weekdayPatterns {
		if !wp.re.MatchString(text) {
			continue
		}
		daysAhead := mondayIndexed(wp.day) - mondayIndexed(base.Weekday())
		if daysAhead <= 0 {
			daysAhead += 7
		}
		t := base.AddDate(0, 0, daysAhead)
		start = &t
	}

	if start == nil {
		return TimeInfo{}
	}

	info := TimeInfo{Start: start}

	m := timeOfDayRe.FindStringSubmatch(text)
	if m == nil {
		return info
	}

	hour, _ := strconv.Atoi(m[2])
	minute := 0
	if m[3] != "" {
		minute, _ = strconv.Atoi(m[3])
	}
	meridiem := strings.ToLower(m[4])
	if meridiem == "" {
		meridiem = "am"
	}
	if strings.Contains(meridiem, "p") && hour < 12 {
		hour += 12
	}
	if hour == 12 && strings.Contains(meridiem, "a") {
		hour = 0
	}
	if hour > 23 || minute > 59 {
		// Out-of-range clock (e.g. the digits of a duration phrase);
		// keep the date at the default hour.
		return info
	}

	s := time.Date(start.Year(), start.Month(), start.Day(), hour, minute, 0, 0, start.Location())
	info.Start = &s

	durationHours := 1
	if dm := durationRe.FindStringSubmatch(text); dm != nil {
		durationHours, _ = strconv.Atoi(dm[1])
	}
	e := s.Add(time.Duration(durationHours) * time.Hour)
	info.End = &e

	return info
}

// mondayIndexed converts Go's Sunday-first weekday numbering to the
// Monday=0..Sunday=6 convention the resolver's arithmetic uses.
func mondayIndexed(d time.Weekday) int {
	return (int(d) + 6) % 7
}
