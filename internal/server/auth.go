package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/pr-poehali-dev/samp-survival-site/internal/session"
	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

const ctxKeySession ctxKey = "session"

// SessionFromContext extracts the authenticated session from request context.
func SessionFromContext(ctx context.Context) *model.Session {
	if sess, ok := ctx.Value(ctxKeySession).(*model.Session); ok {
		return sess
	}
	return nil
}

// requireSession resolves the session cookie and rejects requests without a
// live session.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := RequestIDFromContext(r.Context())

		sess, err := s.sessions.FromRequest(r)
		if err != nil {
			s.logger.Error("session lookup failed", "error", err)
			respondError(w, reqID, http.StatusInternalServerError, &model.APIError{
				Code:    model.ErrInternal,
				Message: "session lookup failed",
			})
			return
		}
		if sess == nil {
			respondError(w, reqID, http.StatusUnauthorized, &model.APIError{
				Code:    model.ErrUnauthorized,
				Message: "authentication required",
			})
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeySession, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin re-checks the admin level on every request, not just at login:
// a demoted admin loses the console as soon as the next refresh lands. The
// denial names the observed level so support can see what the gate saw.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := RequestIDFromContext(r.Context())
		sess := SessionFromContext(r.Context())

		if sess == nil {
			respondError(w, reqID, http.StatusUnauthorized, &model.APIError{
				Code:    model.ErrUnauthorized,
				Message: "authentication required",
			})
			return
		}
		if !sess.IsAdmin() {
			respondError(w, reqID, http.StatusForbidden, &model.APIError{
				Code: model.ErrForbidden,
				Message: fmt.Sprintf("admin level %d required, your level is %d",
					model.AdminThreshold, sess.User.AdminLevel),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User      userView `json:"user"`
	IsAdmin   bool     `json:"is_admin"`
	ExpiresAt string   `json:"expires_at"`
}

// userView is the session's public face: the allow-listed stats plus
// identity, never the raw upstream row.
type userView struct {
	ID    int          `json:"id"`
	Name  string       `json:"name"`
	Stats []model.Stat `json:"stats"`
}

func sessionView(sess *model.Session) sessionResponse {
	return sessionResponse{
		User: userView{
			ID:    sess.User.ID,
			Name:  sess.User.Name,
			Stats: sess.User.DisplayStats(),
		},
		IsAdmin:   sess.IsAdmin(),
		ExpiresAt: sess.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// handleLogin runs the full gate: ip-guard check, upstream auth (or the
// break-glass console account), attempt accounting, session issue.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := RequestIDFromContext(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest, model.NewValidationError("invalid JSON body"))
		return
	}
	if req.Login == "" || req.Password == "" {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("login and password are required"))
		return
	}

	ip := clientIP(r)

	// Console account first: it must work even when ip-guard or auth are down.
	if s.config.Console.Enabled() && req.Login == s.config.Console.Username {
		if err := bcrypt.CompareHashAndPassword([]byte(s.config.Console.PasswordHash), []byte(req.Password)); err == nil {
			sess, err := s.sessions.CreateConsole(ctx, req.Login)
			if err != nil {
				s.logger.Error("console session create failed", "error", err)
				respondError(w, reqID, http.StatusInternalServerError, &model.APIError{
					Code:    model.ErrInternal,
					Message: "session create failed",
				})
				return
			}
			session.SetCookie(w, sess, s.config.Session.CookieSecure)
			s.logger.Info("console login", "username", req.Login, "ip", ip)
			respondOK(w, reqID, sessionView(sess))
			return
		}
		// Wrong console password falls through to the normal path so the
		// attempt still counts against the IP.
	}

	// Blocked IPs are cut off before the upstream auth call.
	if guard, err := s.api.CheckBlock(ctx, ip); err != nil {
		s.logger.Warn("ip-guard check failed, allowing attempt", "ip", ip, "error", err)
	} else if guard.Blocked {
		respondError(w, reqID, http.StatusForbidden, &model.APIError{
			Code:    model.ErrForbidden,
			Message: guard.Message,
		})
		return
	}

	user, err := s.api.Login(ctx, req.Login, req.Password)
	if err != nil {
		// Record the failure; the guard's verdict may add block info.
		if guard, gerr := s.api.RecordAttempt(ctx, ip, req.Login, false); gerr == nil && guard.Blocked {
			respondError(w, reqID, http.StatusForbidden, &model.APIError{
				Code:    model.ErrForbidden,
				Message: guard.Message,
			})
			return
		}
		respondUpstreamError(w, reqID, err)
		return
	}

	// Success resets the IP's failure counter. Best effort.
	if _, err := s.api.RecordAttempt(ctx, ip, req.Login, true); err != nil {
		s.logger.Warn("ip-guard reset failed", "ip", ip, "error", err)
	}

	sess, err := s.sessions.Create(ctx, *user)
	if err != nil {
		s.logger.Error("session create failed", "error", err)
		respondError(w, reqID, http.StatusInternalServerError, &model.APIError{
			Code:    model.ErrInternal,
			Message: "session create failed",
		})
		return
	}

	session.SetCookie(w, sess, s.config.Session.CookieSecure)
	s.logger.Info("login", "user_id", user.ID, "username", user.Name, "ip", ip)
	respondOK(w, reqID, sessionView(sess))
}

// handleLogout revokes the session server-side; the opaque token is dead the
// moment this returns.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	if cookie, err := r.Cookie(session.CookieName); err == nil {
		if err := s.sessions.Delete(r.Context(), cookie.Value); err != nil {
			s.logger.Warn("session delete failed", "error", err)
		}
	}
	session.ClearCookie(w)
	respondOK(w, reqID, map[string]any{"logged_out": true})
}

// handleWhoami reports the current session.
func (s *Server) handleWhoami(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := SessionFromContext(r.Context())
	respondOK(w, reqID, sessionView(sess))
}

// clientIP returns the request's remote address without the port. RealIP
// middleware already folded X-Forwarded-For in.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
