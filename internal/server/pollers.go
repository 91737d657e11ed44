package server

import (
	"context"
	"log/slog"

	"github.com/pr-poehali-dev/samp-survival-site/internal/config"
	"github.com/pr-poehali-dev/samp-survival-site/internal/poller"
	"github.com/pr-poehali-dev/samp-survival-site/pkg/gameapi"
)

// Pollers bundles the background caches behind the public read endpoints.
type Pollers struct {
	Online   *poller.Poller[*gameapi.OnlineStatus]
	Settings *poller.Poller[gameapi.Settings]
	Rules    *poller.Poller[[]gameapi.Rule]
	News     *poller.Poller[[]gameapi.NewsItem]
}

// NewPollers wires one poller per upstream read, each on its own interval.
func NewPollers(api *gameapi.Client, cfg config.PollConfig, logger *slog.Logger) *Pollers {
	def := poller.DefaultConfig()

	online := def
	online.Interval = cfg.Online
	settings := def
	settings.Interval = cfg.Settings
	rules := def
	rules.Interval = cfg.Rules
	news := def
	news.Interval = cfg.News

	return &Pollers{
		Online:   poller.New("online", api.FetchOnline, online, logger),
		Settings: poller.New("settings", api.FetchSettings, settings, logger),
		Rules:    poller.New("rules", api.FetchRules, rules, logger),
		News:     poller.New("news", api.FetchNews, news, logger),
	}
}

// Prime warms every cache before the server starts answering.
func (p *Pollers) Prime(ctx context.Context) {
	p.Online.Prime(ctx)
	p.Settings.Prime(ctx)
	p.Rules.Prime(ctx)
	p.News.Prime(ctx)
}

// Start launches all polling loops in background goroutines.
func (p *Pollers) Start(ctx context.Context) {
	go p.Online.Start(ctx)
	go p.Settings.Start(ctx)
	go p.Rules.Start(ctx)
	go p.News.Start(ctx)
}

// Stop shuts every poller down and waits for in-flight ticks.
func (p *Pollers) Stop() {
	p.Online.Stop()
	p.Settings.Stop()
	p.Rules.Stop()
	p.News.Stop()
}
