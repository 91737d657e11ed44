package session

import (
	"context"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

// Store is the persistence the session manager needs. SQLite covers the
// single-instance deployment; Redis is available when the site runs behind
// more than one replica. Both implementations are interchangeable here.
type Store interface {
	CreateSession(ctx context.Context, sess *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	UpdateSession(ctx context.Context, sess *model.Session) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
	ListSessions(ctx context.Context) ([]*model.Session, error)
}
