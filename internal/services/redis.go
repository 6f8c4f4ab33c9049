package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ritz541/iamwheel/internal/config"
)

func NewRedisClient(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// SessionStore tracks live login sessions so logout actually invalidates
// a token before its JWT expiry.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Create(ctx context.Context, userID string) (string, error) {
	sessionID := uuid.New().String()
	key := fmt.Sprintf(KeyUserSession, userID, sessionID)
	if err := s.client.Set(ctx, key, "1", TTLUserSession).Err(); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}
	return sessionID, nil
}

func (s *SessionStore) Exists(ctx context.Context, userID, sessionID string) bool {
	key := fmt.Sprintf(KeyUserSession, userID, sessionID)
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		// Session state is advisory; a Redis outage must not lock
		// everyone out.
		return true
	}
	return n > 0
}

func (s *SessionStore) Delete(ctx context.Context, userID, sessionID string) error {
	key := fmt.Sprintf(KeyUserSession, userID, sessionID)
	return s.client.Del(ctx, key).Err()
}
