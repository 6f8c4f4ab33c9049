package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ritz541/iamwheel/internal/config"
	"github.com/ritz541/iamwheel/internal/services"
)

func TestRedisRateLimiter(t *testing.T) {
	cfg := &config.Config{
		RedisURL:  "localhost:6379",
		RedisPass: "",
		RedisDB:   0,
	}

	client, err := services.NewRedisClient(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	limiter := services.NewRedisRateLimiter(client, 3, time.Minute)
	ctx := context.Background()
	userID := "test_" + uuid.New().String()

	for i := 1; i <= 3; i++ {
		if !limiter.Allow(ctx, userID, services.ActionJoin) {
			t.Fatalf("attempt %d should be allowed", i)
		}
	}

	if limiter.Allow(ctx, userID, services.ActionJoin) {
		t.Error("attempt over the limit should be denied")
	}

	// Counters are per action, so a different action still goes through.
	if !limiter.Allow(ctx, userID, services.ActionDeposit) {
		t.Error("different action should have its own counter")
	}
}

func TestRedisRateLimiterReArmsLostExpiry(t *testing.T) {
	cfg := &config.Config{
		RedisURL:  "localhost:6379",
		RedisPass: "",
		RedisDB:   0,
	}

	client, err := services.NewRedisClient(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	limiter := services.NewRedisRateLimiter(client, 3, time.Minute)
	ctx := context.Background()
	userID := "test_" + uuid.New().String()
	key := fmt.Sprintf(services.KeyRateLimit, userID, services.ActionJoin)

	if !limiter.Allow(ctx, userID, services.ActionJoin) {
		t.Fatal("first attempt should be allowed")
	}

	// Simulate a first hit whose expiry arm was lost.
	if err := client.Persist(ctx, key).Err(); err != nil {
		t.Fatalf("failed to drop expiry: %v", err)
	}

	if !limiter.Allow(ctx, userID, services.ActionJoin) {
		t.Fatal("second attempt should be allowed")
	}

	ttl, err := client.TTL(ctx, key).Result()
	if err != nil {
		t.Fatalf("failed to read TTL: %v", err)
	}
	if ttl <= 0 {
		t.Errorf("expected the counter expiry to be re-armed, TTL = %v", ttl)
	}
}

func TestSessionStoreLifecycle(t *testing.T) {
	cfg := &config.Config{
		RedisURL:  "localhost:6379",
		RedisPass: "",
		RedisDB:   0,
	}

	client, err := services.NewRedisClient(cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	defer client.Close()

	sessions := services.NewSessionStore(client)
	ctx := context.Background()
	userID := "test_" + uuid.New().String()

	sessionID, err := sessions.Create(ctx, userID)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	if !sessions.Exists(ctx, userID, sessionID) {
		t.Error("freshly created session should exist")
	}

	if err := sessions.Delete(ctx, userID, sessionID); err != nil {
		t.Fatalf("failed to delete session: %v", err)
	}

	if sessions.Exists(ctx, userID, sessionID) {
		t.Error("deleted session should not exist")
	}
}
