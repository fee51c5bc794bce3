package providers_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/chrona-app/chrona/internal/chrona/providers"
	"github.com/chrona-app/chrona/internal/chrona/store"
)

// stubProvider serves a fixed event slice or an error.
type stubProvider struct {
	name   string
	events []providers.RemoteEvent
	err    error

	lastFrom time.Time
	lastTo   time.Time
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) FetchEvents(_ context.Context, from, to time.Time) ([]providers.RemoteEvent, error) {
	s.lastFrom, s.lastTo = from, to
	return s.events, s.err
}

func newTestStore(t *testing.T) (*store.Store, int64) {
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
	return st, user.ID
}

func remoteMeeting(uid string, start time.Time) providers.RemoteEvent {
	return providers.RemoteEvent{
		UID:       uid,
		Title:     "Team sync",
		Location:  "Room 2",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}
}

func TestSyncAll_CreatesNewEvents(t *testing.T) {
	st, userID := newTestStore(t)
	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	p := &stubProvider{name: "stub", events: []providers.RemoteEvent{
		remoteMeeting("uid-1", start),
		remoteMeeting("uid-2", start.Add(2*time.Hour)),
	}}
	syncer := providers.NewSyncer(st, []providers.Provider{p}, nil)

	reports := syncer.SyncAll(context.Background(), userID)
	if len(reports) != 1 {
		t.Fatalf("reports: got %d, want 1", len(reports))
	}
	if reports[0].Created != 2 || reports[0].Updated != 0 {
		t.Errorf("report: got %+v, want 2 created", reports[0])
	}

	evt, err := st.GetEventBySyncUID(context.Background(), userID, "uid-1")
	if err != nil {
		t.Fatalf("GetEventBySyncUID: %v", err)
	}
	if evt.Title != "Team sync" || evt.Location.String != "Room 2" {
		t.Errorf("persisted event: got %+v", evt)
	}
	if p.lastTo.Before(p.lastFrom) {
		t.Error("fetch window is inverted")
	}
}

func TestSyncAll_SecondPassIsIdempotent(t *testing.T) {
	st, userID := newTestStore(t)
	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	p := &stubProvider{name: "stub", events: []providers.RemoteEvent{
		remoteMeeting("uid-1", start),
	}}
	syncer := providers.NewSyncer(st, []providers.Provider{p}, nil)

	syncer.SyncAll(context.Background(), userID)
	reports := syncer.SyncAll(context.Background(), userID)

	if reports[0].Created != 0 || reports[0].Updated != 0 || reports[0].Skipped != 1 {
		t.Errorf("second pass: got %+v, want 1 unchanged skip", reports[0])
	}

	events, err := st.ListEvents(context.Background(), userID, nil, nil)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("events after two passes: got %d, want 1", len(events))
	}
}

func TestSyncAll_UpdatesChangedEvent(t *testing.T) {
	st, userID := newTestStore(t)
	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	p := &stubProvider{name: "stub", events: []providers.RemoteEvent{
		remoteMeeting("uid-1", start),
	}}
	syncer := providers.NewSyncer(st, []providers.Provider{p}, nil)
	syncer.SyncAll(context.Background(), userID)

	moved := remoteMeeting("uid-1", start.Add(3*time.Hour))
	moved.Title = "Team sync (moved)"
	p.events = []providers.RemoteEvent{moved}

	reports := syncer.SyncAll(context.Background(), userID)
	if reports[0].Updated != 1 || reports[0].Created != 0 {
		t.Errorf("report: got %+v, want 1 updated", reports[0])
	}

	evt, err := st.GetEventBySyncUID(context.Background(), userID, "uid-1")
	if err != nil {
		t.Fatalf("GetEventBySyncUID: %v", err)
	}
	if evt.Title != "Team sync (moved)" {
		t.Errorf("title after update: got %q", evt.Title)
	}
	if !evt.StartTime.Equal(moved.StartTime) {
		t.Errorf("start after update: got %v, want %v", evt.StartTime, moved.StartTime)
	}
}

func TestSyncAll_SkipsMalformedEntries(t *testing.T) {
	st, userID := newTestStore(t)
	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	noUID := remoteMeeting("", start)
	inverted := remoteMeeting("uid-bad", start)
	inverted.EndTime = inverted.StartTime

	p := &stubProvider{name: "stub", events: []providers.RemoteEvent{
		noUID, inverted, remoteMeeting("uid-ok", start),
	}}
	syncer := providers.NewSyncer(st, []providers.Provider{p}, nil)

	reports := syncer.SyncAll(context.Background(), userID)
	if reports[0].Created != 1 || reports[0].Skipped != 2 {
		t.Errorf("report: got %+v, want 1 created and 2 skipped", reports[0])
	}
}

func TestSyncAll_ProviderFailureDoesNotStopOthers(t *testing.T) {
	st, userID := newTestStore(t)
	start := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)

	broken := &stubProvider{name: "broken", err: errors.New("endpoint down")}
	healthy := &stubProvider{name: "healthy", events: []providers.RemoteEvent{
		remoteMeeting("uid-1", start),
	}}
	syncer := providers.NewSyncer(st, []providers.Provider{broken, healthy}, nil)

	reports := syncer.SyncAll(context.Background(), userID)
	if len(reports) != 2 {
		t.Fatalf("reports: got %d, want 2", len(reports))
	}
	if reports[1].Provider != "healthy" || reports[1].Created != 1 {
		t.Errorf("healthy report: got %+v", reports[1])
	}
}
