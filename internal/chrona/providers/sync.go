package providers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chrona-app/chrona/internal/chrona/store"
)

// Default sync window: a month back, three months ahead.
const (
	defaultSyncPast   = 30 * 24 * time.Hour
	defaultSyncFuture = 90 * 24 * time.Hour
)

// SyncReport summarizes one sync pass.
type SyncReport struct {
	Provider string
	Fetched  int
	Created  int
	Updated  int
	Skipped  int
}

// Syncer upserts remote events into the store. Sync state lives in the
// events table itself (the sync_uid column), so there is no side file to
// corrupt or lose.
type Syncer struct {
	store     *store.Store
	providers []Provider
	log       *slog.Logger
	now       func() time.Time
}

// NewSyncer wires a Syncer over the given providers.
func NewSyncer(st *store.Store, provs []Provider, log *slog.Logger) *Syncer {
	if log == nil {
		log = slog.Default()
	}
	return &Syncer{store: st, providers: provs, log: log, now: time.Now}
}

// SyncAll runs a sync pass for userID against every configured provider.
// A failing provider is reported and does not stop the others.
func (s *Syncer) SyncAll(ctx context.Context, userID int64) []SyncReport {
	now := s.now()
	from := now.Add(-defaultSyncPast)
	to := now.Add(defaultSyncFuture)

	reports := make([]SyncReport, 0, len(s.providers))
	for _, p := range s.providers {
		report, err := s.syncProvider(ctx, userID, p, from, to)
		if err != nil {
			s.log.Error("provider sync failed",
				"provider", p.Name(), "user_id", userID, "error", err)
		}
		reports = append(reports, report)
	}
	return reports
}

func (s *Syncer) syncProvider(ctx context.Context, userID int64, p Provider, from, to time.Time) (SyncReport, error) {
	report := SyncReport{Provider: p.Name()}

	remote, err := p.FetchEvents(ctx, from, to)
	if err != nil {
		return report, fmt.Errorf("providers: fetch from %s: %w", p.Name(), err)
	}
	report.Fetched = len(remote)

	for _, rev := range remote {
		switch outcome, err := s.upsert(ctx, userID, rev); {
		case err != nil:
			// One bad entry must not abort the pass.
			report.Skipped++
			s.log.Warn("skipping remote event",
				"provider", p.Name(), "uid", rev.UID, "error", err)
		case outcome == outcomeCreated:
			report.Created++
		case outcome == outcomeUpdated:
			report.Updated++
		default:
			report.Skipped++
		}
	}

	s.log.Info("provider sync finished",
		"provider", p.Name(), "user_id", userID,
		"fetched", report.Fetched, "created", report.Created,
		"updated", report.Updated, "skipped", report.Skipped)
	return report, nil
}

type upsertOutcome int

const (
	outcomeSkipped upsertOutcome = iota
	outcomeCreated
	outcomeUpdated
)

func (s *Syncer) upsert(ctx context.Context, userID int64, rev RemoteEvent) (upsertOutcome, error) {
	if rev.UID == "" || rev.Title == "" {
		return outcomeSkipped, nil
	}
	if !rev.EndTime.After(rev.StartTime) {
		return outcomeSkipped, nil
	}

	existing, err := s.store.GetEventBySyncUID(ctx, userID, rev.UID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		evt := &store.Event{
			UserID:    userID,
			Title:     rev.Title,
			StartTime: rev.StartTime,
			EndTime:   rev.EndTime,
			IsAllDay:  rev.IsAllDay,
			SyncUID:   sql.NullString{String: rev.UID, Valid: true},
		}
		applyRemoteStrings(evt, rev)
		if err := s.store.CreateEvent(ctx, evt); err != nil {
			return outcomeSkipped, err
		}
		return outcomeCreated, nil
	case err != nil:
		return outcomeSkipped, err
	}

	if !remoteDiffers(existing, rev) {
		return outcomeSkipped, nil
	}
	existing.Title = rev.Title
	existing.StartTime = rev.StartTime
	existing.EndTime = rev.EndTime
	existing.IsAllDay = rev.IsAllDay
	applyRemoteStrings(existing, rev)
	if err := s.store.UpdateEvent(ctx, existing); err != nil {
		return outcomeSkipped, err
	}
	return outcomeUpdated, nil
}

func applyRemoteStrings(evt *store.Event, rev RemoteEvent) {
	evt.Description = sql.NullString{String: rev.Description, Valid: rev.Description != ""}
	evt.Location = sql.NullString{String: rev.Location, Valid: rev.Location != ""}
}

func remoteDiffers(evt *store.Event, rev RemoteEvent) bool {
	return evt.Title != rev.Title ||
		!evt.StartTime.Equal(rev.StartTime) ||
		!evt.EndTime.Equal(rev.EndTime) ||
		evt.IsAllDay != rev.IsAllDay ||
		evt.Description.String != rev.Description ||
		evt.Location.String != rev.Location
}
