package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

// UserFetcher re-reads a single account row from the game backend.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID int) (*model.UserRecord, error)
}

// RefresherConfig holds refresher configuration.
type RefresherConfig struct {
	Interval time.Duration // how often cached records are re-fetched
	Timeout  time.Duration // per-fetch deadline
}

// DefaultRefresherConfig returns sensible defaults.
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Interval: 10 * time.Second,
		Timeout:  5 * time.Second,
	}
}

// Refresher periodically re-fetches the user record behind every live
// session and replaces the cached copy wholesale. A failed fetch is a
// silent no-op: the stale record stays until the next tick, so a flaky
// backend never logs anyone out.
type Refresher struct {
	store   Store
	fetcher UserFetcher
	config  RefresherConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRefresher creates a session refresher.
func NewRefresher(st Store, fetcher UserFetcher, cfg RefresherConfig, logger *slog.Logger) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultRefresherConfig().Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRefresherConfig().Timeout
	}
	return &Refresher{
		store:   st,
		fetcher: fetcher,
		config:  cfg,
		logger:  logger.With("component", "refresher"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the refresh loop. Blocks until ctx is cancelled or Stop is called.
func (r *Refresher) Start(ctx context.Context) error {
	r.logger.Info("refresher started", "interval", r.config.Interval)
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopping (context cancelled)")
			close(r.doneCh)
			return ctx.Err()
		case <-r.stopCh:
			r.logger.Info("refresher stopping (stop called)")
			close(r.doneCh)
			return nil
		case <-ticker.C:
			if err := r.Tick(ctx); err != nil {
				r.logger.Error("tick error", "error", err)
			}
		}
	}
}

// Stop gracefully shuts down the refresher and waits for the current tick to finish.
func (r *Refresher) Stop() error {
	close(r.stopCh)
	<-r.doneCh
	return nil
}

// Tick runs a single refresh pass over all live sessions.
func (r *Refresher) Tick(ctx context.Context) error {
	if n, err := r.store.DeleteExpiredSessions(ctx); err != nil {
		r.logger.Error("cleanup expired", "error", err)
	} else if n > 0 {
		r.logger.Debug("expired sessions removed", "count", n)
	}

	sessions, err := r.store.ListSessions(ctx)
	if err != nil {
		return err
	}

	for _, sess := range sessions {
		if sess.Console || sess.IsExpired() {
			continue
		}
		r.refreshOne(ctx, sess)
	}
	return nil
}

func (r *Refresher) refreshOne(ctx context.Context, sess *model.Session) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	user, err := r.fetcher.FetchUser(fetchCtx, sess.User.ID)
	if err != nil {
		// Keep the stale record; the next tick will try again.
		r.logger.Debug("refresh skipped", "session", sess.ID, "user_id", sess.User.ID, "error", err)
		return
	}

	sess.User = *user
	sess.RefreshedAt = time.Now()
	if err := r.store.UpdateSession(ctx, sess); err != nil {
		r.logger.Error("update session", "session", sess.ID, "error", err)
	}
}
