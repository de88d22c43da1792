package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/flags-survey-backend/pkg/utils"
)

// SessionKeyPrefix is the Redis key prefix for sessions
const SessionKeyPrefix = "session:"

var ErrNotFound = errors.New("session not found")

// Store persists session values by id.
type Store interface {
	Load(ctx context.Context, id string) (map[string]string, error)
	Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// RedisStore keeps sessions in Redis, encrypted with AES-256-GCM so the access
// token never sits in plaintext.
type RedisStore struct {
	client *redis.Client
	key    []byte
}

func NewRedisStore(client *redis.Client, encryptionKey []byte) *RedisStore {
	return &RedisStore{client: client, key: encryptionKey}
}

func (s *RedisStore) Load(ctx context.Context, id string) (map[string]string, error) {
	sealed, err := s.client.Get(ctx, SessionKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	plain, err := utils.Decrypt(s.key, sealed)
	if err != nil {
		// Written under another secret: treat as gone.
		return nil, ErrNotFound
	}

	values := make(map[string]string)
	if err := json.Unmarshal(plain, &values); err != nil {
		return nil, ErrNotFound
	}
	return values, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, values map[string]string, ttl time.Duration) error {
	plain, err := json.Marshal(values)
	if err != nil {
		return err
	}
	sealed, err := utils.Encrypt(s.key, plain)
	if err != nil {
		return fmt.Errorf("seal session: %w", err)
	}
	if err := s.client.Set(ctx, SessionKeyPrefix+id, sealed, ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.client.Del(ctx, SessionKeyPrefix+id).Err()
}
