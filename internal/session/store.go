package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oncosaferx/authcore/internal/shared"
)

// Store persists sessions in Redis. Each session is a single key with a
// TTL; a per-user sorted set scored by last activity backs the concurrency
// ceiling. Single-key operations keep per-session mutations linearizable
// without a global lock.
type Store struct {
	client *redis.Client
}

// NewStore constructs a Store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func sessionKey(id string) string {
	return "session:" + id
}

func userIndexKey(userID string) string {
	return "sessions:user:" + userID
}

// Save writes the session and refreshes its position in the user index.
func (s *Store) Save(ctx context.Context, sess *Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(sess.ID), payload, ttl)
	pipe.ZAdd(ctx, userIndexKey(sess.UserID), redis.Z{
		Score:  float64(sess.LastActivity.UnixNano()),
		Member: sess.ID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

// Get fetches a session by id.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrSessionNotFound
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Delete removes the session and its index entry. Deleting an already
// deleted session is a no-op, which makes concurrent evictions safe.
func (s *Store) Delete(ctx context.Context, id, userID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	if userID != "" {
		pipe.ZRem(ctx, userIndexKey(userID), id)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// UserSessionIDs returns the user's session ids ordered least-recently-active
// first. Index entries whose session key has already expired are pruned.
func (s *Store) UserSessionIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.client.ZRange(ctx, userIndexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	live := ids[:0]
	for _, id := range ids {
		exists, err := s.client.Exists(ctx, sessionKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if exists == 0 {
			_ = s.client.ZRem(ctx, userIndexKey(userID), id).Err()
			continue
		}
		live = append(live, id)
	}
	return live, nil
}

// CountUserSessions returns the live session count for a user.
func (s *Store) CountUserSessions(ctx context.Context, userID string) (int, error) {
	ids, err := s.UserSessionIDs(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
