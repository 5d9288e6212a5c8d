// Package session keeps application form snapshots in Redis for the length
// of a user session.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medcert-apply/internal/common/config"
	"medcert-apply/internal/form"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound = errors.New("SESSION_NOT_FOUND")
	ErrStoreFailed     = errors.New("SESSION_STORE_FAILED")
)

// Store persists form snapshots by session id. Writes to the same id are
// last-writer-wins.
type Store interface {
	Create(ctx context.Context, snap form.Snapshot) (string, error)
	Load(ctx context.Context, id string) (form.Snapshot, error)
	Save(ctx context.Context, id string, snap form.Snapshot) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps each snapshot as JSON under prefix+id. Every save
// refreshes the TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	newID  func() string
}

func NewRedisStore(client *redis.Client, cfg config.SessionConfig) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: cfg.KeyPrefix,
		ttl:    config.GetSeconds(cfg.TTL),
		newID:  uuid.NewString,
	}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Create(ctx context.Context, snap form.Snapshot) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("%w: encode snapshot: %v", ErrStoreFailed, err)
	}

	id := s.newID()
	ok, err := s.client.SetNX(ctx, s.key(id), data, s.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: session id %s already in use", ErrStoreFailed, id)
	}
	return id, nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (form.Snapshot, error) {
	var snap form.Snapshot
	if _, err := uuid.Parse(id); err != nil {
		return snap, ErrSessionNotFound
	}

	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return snap, ErrSessionNotFound
		}
		return snap, fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	if err := json.Unmarshal(val, &snap); err != nil {
		return snap, fmt.Errorf("%w: decode snapshot: %v", ErrStoreFailed, err)
	}
	return snap, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, snap form.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%w: encode snapshot: %v", ErrStoreFailed, err)
	}
	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	return nil
}

// Delete discards a session. Deleting a missing session is not an error.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}
	return nil
}
