// Package providers pulls events from external calendars into local storage.
//
// Each backend (Google Calendar, CalDAV) implements Provider; the Syncer
// fetches a window of remote events and upserts them by iCalendar UID, so
// repeated sync passes converge instead of duplicating.
package providers

import (
	"context"
	"time"
)

// RemoteEvent is the provider-neutral shape of an external calendar entry.
// UID is the iCalendar UID and must be stable across fetches of the same
// entry; providers generate one when the backend omits it.
type RemoteEvent struct {
	UID         string
	Title       string
	Description string
	Location    string
	StartTime   time.Time
	EndTime     time.Time
	IsAllDay    bool
}

// Provider fetches events from one external calendar backend.
type Provider interface {
	// Name identifies the backend in logs and sync reports.
	Name() string
	// FetchEvents returns the remote events overlapping [from, to].
	FetchEvents(ctx context.Context, from, to time.Time) ([]RemoteEvent, error)
}
