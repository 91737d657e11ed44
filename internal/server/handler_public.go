package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Store     string `json:"store"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, healthResponse{
		Status:    "healthy",
		Version:   "0.1.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Store:     "sqlite",
	})
}

// respondCached answers from a poller cache, or 503 while it is still cold.
// The cache keeps its last-known-good value across upstream outages, so a
// cold cache only happens right after startup with the backend down.
func respondCached[T any](s *Server, w http.ResponseWriter, r *http.Request, get func() (T, bool)) {
	reqID := RequestIDFromContext(r.Context())

	v, ok := get()
	if !ok {
		respondError(w, reqID, http.StatusServiceUnavailable, &model.APIError{
			Code:    model.ErrUpstream,
			Message: "data not available yet",
		})
		return
	}
	respondOK(w, reqID, v)
}

func (s *Server) handleOnline(w http.ResponseWriter, r *http.Request) {
	respondCached(s, w, r, s.pollers.Online.Get)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	respondCached(s, w, r, s.pollers.Settings.Get)
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	respondCached(s, w, r, s.pollers.Rules.Get)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	respondCached(s, w, r, s.pollers.News.Get)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		s.logger.Error("list categories", "error", err)
		respondError(w, reqID, http.StatusInternalServerError, &model.APIError{
			Code:    model.ErrInternal,
			Message: "failed to list categories",
		})
		return
	}
	respondOK(w, reqID, cats)
}
