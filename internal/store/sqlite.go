package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Session operations ---

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *model.Session) error {
	s.logger.Debug("sql", "op", "insert", "table", "sessions", "id", sess.ID)

	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	console := 0
	if sess.Console {
		console = 1
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_json, console, created_at, expires_at, refreshed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, string(userJSON), console,
		sess.CreatedAt.Unix(), sess.ExpiresAt.Unix(), sess.RefreshedAt.Unix(),
	)
	return err
}

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	s.logger.Debug("sql", "op", "select", "table", "sessions", "id", id)

	var sess model.Session
	var userJSON string
	var console int
	var createdAt, expiresAt, refreshedAt int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_json, console, created_at, expires_at, refreshed_at
		 FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &userJSON, &console, &createdAt, &expiresAt, &refreshedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(userJSON), &sess.User); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	sess.Console = console != 0
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.ExpiresAt = time.Unix(expiresAt, 0)
	sess.RefreshedAt = time.Unix(refreshedAt, 0)

	return &sess, nil
}

// UpdateSession replaces the stored user record wholesale. The refresher
// relies on this after every successful re-fetch.
func (s *SQLiteStore) UpdateSession(ctx context.Context, sess *model.Session) error {
	s.logger.Debug("sql", "op", "update", "table", "sessions", "id", sess.ID)

	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET user_json=?, expires_at=?, refreshed_at=? WHERE id=?`,
		string(userJSON), sess.ExpiresAt.Unix(), sess.RefreshedAt.Unix(), sess.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("session %s not found", sess.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "sessions", "id", id)

	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	s.logger.Debug("sql", "op", "delete_expired", "table", "sessions")

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]*model.Session, error) {
	s.logger.Debug("sql", "op", "list", "table", "sessions")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_json, console, created_at, expires_at, refreshed_at
		 FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		var sess model.Session
		var userJSON string
		var console int
		var createdAt, expiresAt, refreshedAt int64

		if err := rows.Scan(&sess.ID, &userJSON, &console, &createdAt, &expiresAt, &refreshedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(userJSON), &sess.User); err != nil {
			return nil, fmt.Errorf("unmarshal user: %w", err)
		}
		sess.Console = console != 0
		sess.CreatedAt = time.Unix(createdAt, 0)
		sess.ExpiresAt = time.Unix(expiresAt, 0)
		sess.RefreshedAt = time.Unix(refreshedAt, 0)

		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// --- Rule category operations ---

// normalizeIcon maps stored icon names onto the closed enum. Rows written
// before the enum existed may carry arbitrary names; those read as the default.
func normalizeIcon(s string) model.CategoryIcon {
	ic, err := model.ParseCategoryIcon(s)
	if err != nil {
		return model.IconFolder
	}
	return ic
}

func (s *SQLiteStore) CreateCategory(ctx context.Context, cat *model.RuleCategory) error {
	s.logger.Debug("sql", "op", "insert", "table", "rule_categories", "id", cat.ID)

	existing, err := s.GetCategory(ctx, cat.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrCategoryExists
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO rule_categories (id, label, icon, sort_order) VALUES (?, ?, ?, ?)`,
		cat.ID, cat.Label, string(cat.Icon), cat.SortOrder,
	)
	return err
}

func (s *SQLiteStore) GetCategory(ctx context.Context, id string) (*model.RuleCategory, error) {
	s.logger.Debug("sql", "op", "select", "table", "rule_categories", "id", id)

	var cat model.RuleCategory
	var icon string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, label, icon, sort_order FROM rule_categories WHERE id = ?`, id,
	).Scan(&cat.ID, &cat.Label, &icon, &cat.SortOrder)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cat.Icon = normalizeIcon(icon)
	return &cat, nil
}

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]*model.RuleCategory, error) {
	s.logger.Debug("sql", "op", "list", "table", "rule_categories")

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, icon, sort_order FROM rule_categories ORDER BY sort_order, label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cats []*model.RuleCategory
	for rows.Next() {
		var cat model.RuleCategory
		var icon string
		if err := rows.Scan(&cat.ID, &cat.Label, &icon, &cat.SortOrder); err != nil {
			return nil, err
		}
		cat.Icon = normalizeIcon(icon)
		cats = append(cats, &cat)
	}
	return cats, rows.Err()
}

func (s *SQLiteStore) UpdateCategory(ctx context.Context, cat *model.RuleCategory) error {
	s.logger.Debug("sql", "op", "update", "table", "rule_categories", "id", cat.ID)

	result, err := s.db.ExecContext(ctx,
		`UPDATE rule_categories SET label=?, icon=?, sort_order=? WHERE id=?`,
		cat.Label, string(cat.Icon), cat.SortOrder, cat.ID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("category %s not found", cat.ID)
	}
	return nil
}

func (s *SQLiteStore) DeleteCategory(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "rule_categories", "id", id)

	result, err := s.db.ExecContext(ctx, `DELETE FROM rule_categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("category %s not found", id)
	}
	return nil
}
