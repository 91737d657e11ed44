package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pr-poehali-dev/samp-survival-site/pkg/model"
)

const redisKeyPrefix = "session:"

// RedisStore is a Redis-backed session store. Expiry is delegated to Redis
// key TTLs, so DeleteExpiredSessions is a no-op here.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) key(id string) string {
	return redisKeyPrefix + id
}

func (r *RedisStore) CreateSession(ctx context.Context, sess *model.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("session: missing id")
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	return r.client.Set(ctx, r.key(sess.ID), data, ttl).Err()
}

func (r *RedisStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	val, err := r.client.Get(ctx, r.key(id)).Result()
	if err == redis.Nil {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	return &sess, nil
}

func (r *RedisStore) UpdateSession(ctx context.Context, sess *model.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("session: missing id")
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		// If expired, delete the session instead of extending it.
		return r.client.Del(ctx, r.key(sess.ID)).Err()
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	return r.client.Set(ctx, r.key(sess.ID), data, ttl).Err()
}

func (r *RedisStore) DeleteSession(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

// DeleteExpiredSessions is a no-op: Redis evicts expired keys on its own.
func (r *RedisStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return 0, nil
}

func (r *RedisStore) ListSessions(ctx context.Context) ([]*model.Session, error) {
	var sessions []*model.Session

	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		val, err := r.client.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return nil, err
		}

		var sess model.Session
		if err := json.Unmarshal([]byte(val), &sess); err != nil {
			return nil, fmt.Errorf("session: unmarshal %s: %w", iter.Val(), err)
		}
		sessions = append(sessions, &sess)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
