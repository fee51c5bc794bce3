// Package caldav implements the CalDAV provider, covering iCloud and any
// other RFC 4791 server reachable with basic auth.
package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"github.com/chrona-app/chrona/internal/chrona/providers"
)

// Config selects the server and calendar.
type Config struct {
	// Endpoint is the CalDAV base URL, e.g. https://caldav.icloud.com/.
	Endpoint string
	Username string
	Password string
	// CalendarName selects a calendar by display name. Empty picks the
	// first calendar the server advertises.
	CalendarName string
}

// basicAuthTransport adds credentials to every request.
type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}

// Client fetches events from one CalDAV calendar collection.
type Client struct {
	client       *caldav.Client
	calendarPath string
	log          *slog.Logger
}

// NewClient connects to the server and resolves the calendar collection
// path via principal discovery.
func NewClient(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}

	httpClient := &http.Client{Transport: &basicAuthTransport{
		username: cfg.Username,
		password: cfg.Password,
		base:     http.DefaultTransport,
	}}

	client, err := caldav.NewClient(httpClient, cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("caldav: create client: %w", err)
	}

	c := &Client{client: client, log: log}
	if err := c.resolveCalendar(ctx, cfg.CalendarName); err != nil {
		return nil, err
	}
	log.Info("resolved caldav calendar", "path", c.calendarPath)
	return c, nil
}

func (c *Client) Name() string { return "caldav" }

func (c *Client) resolveCalendar(ctx context.Context, name string) error {
	principal, err := c.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return fmt.Errorf("caldav: find principal: %w", err)
	}
	homeSet, err := c.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return fmt.Errorf("caldav: find calendar home set: %w", err)
	}
	calendars, err := c.client.FindCalendars(ctx, homeSet)
	if err != nil {
		return fmt.Errorf("caldav: list calendars: %w", err)
	}
	if len(calendars) == 0 {
		return fmt.Errorf("caldav: server advertises no calendars")
	}

	if name == "" {
		c.calendarPath = calendars[0].Path
		return nil
	}
	for _, cal := range calendars {
		if cal.Name == name {
			c.calendarPath = cal.Path
			return nil
		}
	}
	return fmt.Errorf("caldav: no calendar named %q", name)
}

// FetchEvents runs a VEVENT time-range calendar-query over [from, to].
func (c *Client) FetchEvents(ctx context.Context, from, to time.Time) ([]providers.RemoteEvent, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			Comps: []caldav.CalendarCompRequest{{
				Name:     ical.CompEvent,
				AllProps: true,
			}},
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: from,
				End:   to,
			}},
		},
	}

	objects, err := c.client.QueryCalendar(ctx, c.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("caldav: query calendar: %w", err)
	}

	var remote []providers.RemoteEvent
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		remote = append(remote, eventsFromCalendar(obj.Data)...)
	}

	c.log.Debug("fetched caldav events",
		"path", c.calendarPath, "objects", len(objects), "events", len(remote))
	return remote, nil
}

// eventsFromCalendar maps every decodable VEVENT in cal to the
// provider-neutral shape.
func eventsFromCalendar(cal *ical.Calendar) []providers.RemoteEvent {
	var remote []providers.RemoteEvent
	for _, ev := range cal.Events() {
		rev, ok := convertEvent(ev)
		if !ok {
			continue
		}
		remote = append(remote, rev)
	}
	return remote
}

func convertEvent(ev ical.Event) (providers.RemoteEvent, bool) {
	start, err := ev.DateTimeStart(time.UTC)
	if err != nil {
		return providers.RemoteEvent{}, false
	}
	end, err := ev.DateTimeEnd(time.UTC)
	if err != nil || !end.After(start) {
		return providers.RemoteEvent{}, false
	}

	rev := providers.RemoteEvent{StartTime: start, EndTime: end}
	rev.UID, _ = ev.Props.Text(ical.PropUID)
	if rev.UID == "" {
		rev.UID = uuid.New().String()
	}
	rev.Title, _ = ev.Props.Text(ical.PropSummary)
	rev.Description, _ = ev.Props.Text(ical.PropDescription)
	rev.Location, _ = ev.Props.Text(ical.PropLocation)

	if prop := ev.Props.Get(ical.PropDateTimeStart); prop != nil {
		rev.IsAllDay = prop.ValueType() == ical.ValueDate
	}
	return rev, true
}
