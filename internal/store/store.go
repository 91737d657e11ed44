package store

import (
	"context"
	"errors"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

// ErrCategoryExists is returned when creating a category whose id is taken.
var ErrCategoryExists = errors.New("category already exists")

// Store defines the site's local persistence: server-side sessions and the
// rule-category taxonomy. Everything else lives behind the remote game
// endpoints and is never persisted here.
type Store interface {
	// Session CRUD
	CreateSession(ctx context.Context, sess *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	UpdateSession(ctx context.Context, sess *model.Session) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
	ListSessions(ctx context.Context) ([]*model.Session, error)

	// Rule-category taxonomy
	CreateCategory(ctx context.Context, cat *model.RuleCategory) error
	GetCategory(ctx context.Context, id string) (*model.RuleCategory, error)
	ListCategories(ctx context.Context) ([]*model.RuleCategory, error)
	UpdateCategory(ctx context.Context, cat *model.RuleCategory) error
	DeleteCategory(ctx context.Context, id string) error

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
