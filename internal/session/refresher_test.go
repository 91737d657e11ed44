package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

type fakeFetcher struct {
	users map[int]*model.UserRecord
	err   error
	calls int
}

func (f *fakeFetcher) FetchUser(ctx context.Context, userID int) (*model.UserRecord, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, errors.New("no such user")
	}
	cp := *u
	return &cp, nil
}

func TestRefresher_Tick_ReplacesRecordWholesale(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	m := NewManager(st, time.Hour)
	sess, err := m.Create(ctx, model.UserRecord{ID: 42, Name: "Kenny_West", Money: 15000, Mute: 60})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	fetcher := &fakeFetcher{users: map[int]*model.UserRecord{
		// Fresh server row: money changed, mute lifted.
		42: {ID: 42, Name: "Kenny_West", Money: 8200, Mute: 0},
	}}
	r := NewRefresher(st, fetcher, RefresherConfig{}, slog.Default())

	if err := r.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	got, _ := m.Get(ctx, sess.ID)
	if got == nil {
		t.Fatal("session disappeared")
	}
	if got.User.Money != 8200 {
		t.Errorf("money = %d, want 8200", got.User.Money)
	}
	if got.User.Mute != 0 {
		t.Errorf("mute = %d, want 0 (record replaced wholesale)", got.User.Mute)
	}
	if !got.RefreshedAt.After(sess.RefreshedAt.Add(-time.Second)) {
		t.Error("refreshed_at not advanced")
	}
}

func TestRefresher_Tick_FetchFailureKeepsStaleRecord(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	m := NewManager(st, time.Hour)
	sess, _ := m.Create(ctx, model.UserRecord{ID: 42, Name: "Kenny_West", Money: 15000})

	fetcher := &fakeFetcher{err: errors.New("backend down")}
	r := NewRefresher(st, fetcher, RefresherConfig{}, slog.Default())

	if err := r.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	// Stale record survives; the user stays logged in.
	got, _ := m.Get(ctx, sess.ID)
	if got == nil {
		t.Fatal("session should survive a failed refresh")
	}
	if got.User.Money != 15000 {
		t.Errorf("money = %d, want stale 15000", got.User.Money)
	}
}

func TestRefresher_Tick_SkipsConsoleSessions(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	m := NewManager(st, time.Hour)
	if _, err := m.CreateConsole(ctx, "root"); err != nil {
		t.Fatalf("create console: %v", err)
	}

	fetcher := &fakeFetcher{users: map[int]*model.UserRecord{}}
	r := NewRefresher(st, fetcher, RefresherConfig{}, slog.Default())

	if err := r.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times for console-only sessions, want 0", fetcher.calls)
	}
}

func TestRefresher_Tick_CleansExpired(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()
	ctx := context.Background()

	dead := &model.Session{
		ID:        "sess_dead",
		User:      model.UserRecord{ID: 7},
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := st.CreateSession(ctx, dead); err != nil {
		t.Fatalf("create: %v", err)
	}

	fetcher := &fakeFetcher{users: map[int]*model.UserRecord{}}
	r := NewRefresher(st, fetcher, RefresherConfig{}, slog.Default())

	if err := r.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}

	got, _ := st.GetSession(ctx, "sess_dead")
	if got != nil {
		t.Error("expected expired session to be cleaned up")
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher called %d times for an expired session, want 0", fetcher.calls)
	}
}

func TestRefresher_StartStop(t *testing.T) {
	st := setupTestStore(t)
	defer st.Close()

	fetcher := &fakeFetcher{users: map[int]*model.UserRecord{}}
	r := NewRefresher(st, fetcher, RefresherConfig{Interval: 10 * time.Millisecond}, slog.Default())

	done := make(chan error, 1)
	go func() { done <- r.Start(context.Background()) }()

	time.Sleep(30 * time.Millisecond)
	if err := r.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("start returned: %v", err)
	}
}
