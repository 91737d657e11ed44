package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "samp_session"
	// DefaultTTL is the default session lifetime.
	DefaultTTL = 24 * time.Hour
)

// Manager handles session creation, validation, and cleanup. The browser only
// ever sees the opaque session ID; credentials are never stored anywhere.
type Manager struct {
	store Store
	ttl   time.Duration
}

// NewManager creates a session manager over the given store. A zero ttl
// falls back to DefaultTTL.
func NewManager(st Store, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{store: st, ttl: ttl}
}

// Create issues a new session for an authenticated user.
func (m *Manager) Create(ctx context.Context, user model.UserRecord) (*model.Session, error) {
	return m.create(ctx, user, false)
}

// CreateConsole issues a break-glass console session. Console sessions pass
// the admin gate regardless of the stored admin level and are never refreshed
// against the game backend.
func (m *Manager) CreateConsole(ctx context.Context, username string) (*model.Session, error) {
	return m.create(ctx, model.UserRecord{Name: username}, true)
}

func (m *Manager) create(ctx context.Context, user model.UserRecord, console bool) (*model.Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	now := time.Now()
	sess := &model.Session{
		ID:          id,
		User:        user,
		Console:     console,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.ttl),
		RefreshedAt: now,
	}

	if err := m.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Get retrieves a session by ID.
// Returns nil if the session doesn't exist or has expired.
func (m *Manager) Get(ctx context.Context, id string) (*model.Session, error) {
	sess, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}

	if sess.IsExpired() {
		_ = m.store.DeleteSession(ctx, id)
		return nil, nil
	}
	return sess, nil
}

// Delete revokes a session. Safe to call for unknown IDs.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.DeleteSession(ctx, id)
}

// CleanupExpired removes all expired sessions from the store.
func (m *Manager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.store.DeleteExpiredSessions(ctx)
}

// FromRequest extracts the session from the request cookie.
func (m *Manager) FromRequest(r *http.Request) (*model.Session, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil // No cookie, no session
	}
	return m.Get(r.Context(), cookie.Value)
}

// SetCookie sets the session cookie on the response.
func SetCookie(w http.ResponseWriter, sess *model.Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  sess.ExpiresAt,
	})
}

// ClearCookie removes the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// generateSessionID generates a cryptographically secure random session ID.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "sess_" + hex.EncodeToString(b), nil
}
