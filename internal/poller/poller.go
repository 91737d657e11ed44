// Package poller keeps a last-known-good copy of a remote value fresh.
//
// Each poller owns one upstream read (online count, settings, rules, news)
// and re-fetches it on a fixed interval. Readers always get the cached copy;
// a failed fetch keeps the previous value so the site never flickers empty
// when the game backend has a bad moment.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Config holds poller configuration.
type Config struct {
	Interval     time.Duration // how often to re-fetch
	Timeout      time.Duration // per-fetch deadline
	PrimeRetries int           // extra attempts during the initial prime
	PrimeDelay   time.Duration // fixed delay between prime attempts
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:     10 * time.Second,
		Timeout:      5 * time.Second,
		PrimeRetries: 2,
		PrimeDelay:   time.Second,
	}
}

// Poller periodically fetches a value of type T and caches the latest
// successful result.
type Poller[T any] struct {
	name   string
	fetch  func(ctx context.Context) (T, error)
	config Config
	logger *slog.Logger

	mu        sync.RWMutex
	value     T
	ok        bool
	fetchedAt time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a poller. name tags log lines; fetch performs one upstream read.
func New[T any](name string, fetch func(ctx context.Context) (T, error), cfg Config, logger *slog.Logger) *Poller[T] {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.PrimeDelay <= 0 {
		cfg.PrimeDelay = def.PrimeDelay
	}
	return &Poller[T]{
		name:   name,
		fetch:  fetch,
		config: cfg,
		logger: logger.With("component", "poller", "poller", name),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Prime performs the initial fetch with bounded fixed-delay retries so the
// cache is warm before the server starts answering. A total failure is not
// fatal: the poller starts cold and fills in on a later tick.
func (p *Poller[T]) Prime(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt <= p.config.PrimeRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.config.PrimeDelay):
			}
		}
		if err := p.Tick(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	p.logger.Warn("prime failed, starting cold", "attempts", p.config.PrimeRetries+1, "error", lastErr)
	return lastErr
}

// Start begins the polling loop. Blocks until ctx is cancelled or Stop is called.
func (p *Poller[T]) Start(ctx context.Context) error {
	p.logger.Info("poller started", "interval", p.config.Interval)
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopping (context cancelled)")
			close(p.doneCh)
			return ctx.Err()
		case <-p.stopCh:
			p.logger.Info("poller stopping (stop called)")
			close(p.doneCh)
			return nil
		case <-ticker.C:
			if err := p.Tick(ctx); err != nil {
				p.logger.Debug("tick failed, keeping cached value", "error", err)
			}
		}
	}
}

// Stop gracefully shuts down the poller and waits for the current tick to finish.
func (p *Poller[T]) Stop() error {
	close(p.stopCh)
	<-p.doneCh
	return nil
}

// Tick performs a single fetch and, on success, replaces the cached value.
func (p *Poller[T]) Tick(ctx context.Context) error {
	fetchCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	v, err := p.fetch(fetchCtx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.value = v
	p.ok = true
	p.fetchedAt = time.Now()
	p.mu.Unlock()
	return nil
}

// Get returns the cached value. ok is false until the first successful fetch.
func (p *Poller[T]) Get() (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value, p.ok
}

// FetchedAt returns when the cached value was last replaced.
func (p *Poller[T]) FetchedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fetchedAt
}
