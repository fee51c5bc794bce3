// Package google implements the Google Calendar provider. Authentication
// uses a previously issued OAuth token file; there is no consent flow here.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/chrona-app/chrona/internal/chrona/providers"
)

const allDayLayout = "2006-01-02"

// Config carries the OAuth client and calendar selection.
type Config struct {
	ClientID     string
	ClientSecret string
	// TokenFile is a JSON-encoded oauth2.Token written by an external
	// consent flow.
	TokenFile string
	// CalendarID defaults to "primary".
	CalendarID string
}

// Client fetches events from one Google calendar.
type Client struct {
	service    *calendar.Service
	calendarID string
	log        *slog.Logger
}

// NewClient builds an authenticated calendar client from cfg.
func NewClient(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}

	token, err := tokenFromFile(cfg.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("google: load token %s: %w", cfg.TokenFile, err)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{calendar.CalendarReadonlyScope},
		Endpoint:     googleauth.Endpoint,
	}

	service, err := calendar.NewService(ctx,
		option.WithHTTPClient(oauthCfg.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("google: create calendar service: %w", err)
	}

	return &Client{service: service, calendarID: cfg.CalendarID, log: log}, nil
}

func (c *Client) Name() string { return "google" }

// FetchEvents lists the calendar's events in [from, to], recurring entries
// expanded to single instances.
func (c *Client) FetchEvents(ctx context.Context, from, to time.Time) ([]providers.RemoteEvent, error) {
	list, err := c.service.Events.List(c.calendarID).
		Context(ctx).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(from.UTC().Format(time.RFC3339)).
		TimeMax(to.UTC().Format(time.RFC3339)).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, fmt.Errorf("google: list events: %w", err)
	}

	c.log.Debug("fetched google events",
		"calendar_id", c.calendarID, "count", len(list.Items))
	return convertEvents(list.Items), nil
}

// convertEvents maps wire events to the provider-neutral shape, skipping
// entries without usable times.
func convertEvents(items []*calendar.Event) []providers.RemoteEvent {
	remote := make([]providers.RemoteEvent, 0, len(items))
	for _, item := range items {
		rev, ok := convertEvent(item)
		if !ok {
			continue
		}
		remote = append(remote, rev)
	}
	return remote
}

func convertEvent(item *calendar.Event) (providers.RemoteEvent, bool) {
	if item == nil || item.Start == nil || item.End == nil {
		return providers.RemoteEvent{}, false
	}

	rev := providers.RemoteEvent{
		UID:         item.ICalUID,
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
	}
	if rev.UID == "" {
		rev.UID = uuid.New().String()
	}

	switch {
	case item.Start.DateTime != "" && item.End.DateTime != "":
		start, err1 := time.Parse(time.RFC3339, item.Start.DateTime)
		end, err2 := time.Parse(time.RFC3339, item.End.DateTime)
		if err1 != nil || err2 != nil {
			return providers.RemoteEvent{}, false
		}
		rev.StartTime = start
		rev.EndTime = end
	case item.Start.Date != "" && item.End.Date != "":
		start, err1 := time.Parse(allDayLayout, item.Start.Date)
		end, err2 := time.Parse(allDayLayout, item.End.Date)
		if err1 != nil || err2 != nil {
			return providers.RemoteEvent{}, false
		}
		rev.StartTime = start
		rev.EndTime = end
		rev.IsAllDay = true
	default:
		return providers.RemoteEvent{}, false
	}

	return rev, true
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, err
	}
	return token, nil
}
