// Package web renders the site's HTML pages: home, rules, profile, cases,
// and the admin shell. Pages are read-only server-rendered views over the
// same data the JSON API serves; mutating actions post to /api/v1 from small
// inline scripts.
package web

import (
	"log/slog"
	"net/http"

	"github.com/pr-poehali-dev/samp-survival-site/internal/server"
	"github.com/pr-poehali-dev/samp-survival-site/internal/session"
	"github.com/pr-poehali-dev/samp-survival-site/internal/store"
	"github.com/pr-poehali-dev/samp-survival-site/pkg/gameapi"
)

// Web handles the HTML surface.
type Web struct {
	store    store.Store
	sessions *session.Manager
	pollers  *server.Pollers
	api      *gameapi.Client
	logger   *slog.Logger
}

// New creates the HTML page handler.
func New(st store.Store, sessions *session.Manager, pollers *server.Pollers, api *gameapi.Client, logger *slog.Logger) *Web {
	return &Web{
		store:    st,
		sessions: sessions,
		pollers:  pollers,
		api:      api,
		logger:   logger.With("component", "web"),
	}
}

// render writes a page through the shared layout. Render failures surface as
// a plain 500; the layout itself is static so this only fires on bad data.
func (web *Web) render(w http.ResponseWriter, name string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderTemplate(w, name, data); err != nil {
		web.logger.Error("render failed", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
