package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionFromContext retrieves the session from the request context.
func SessionFromContext(ctx context.Context) *model.Session {
	sess, _ := ctx.Value(sessionContextKey).(*model.Session)
	return sess
}

// AuthMiddleware validates the session and adds it to the request context.
// Unlike the JSON API, HTML pages redirect to the login page.
func (web *Web) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := web.sessions.FromRequest(r)
		if err != nil {
			web.logger.Error("session lookup failed", "error", err)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if sess == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminMiddleware ensures the session clears the admin threshold.
// Must be used after AuthMiddleware.
func (web *Web) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromContext(r.Context())
		if sess == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if !sess.IsAdmin() {
			// Same wording as the JSON gate so the user sees their level
			// regardless of which surface refused them.
			http.Error(w, fmt.Sprintf("Forbidden: admin level %d required, your level is %d",
				model.AdminThreshold, sess.User.AdminLevel), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// OptionalAuthMiddleware adds the session to context if available but does
// not require it. Public pages use it to show login state in the nav.
func (web *Web) OptionalAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := web.sessions.FromRequest(r)
		if sess != nil {
			ctx := context.WithValue(r.Context(), sessionContextKey, sess)
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}
