package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/printpress/internal/database"
	"github.com/hitoshi/printpress/internal/model"
)

// setupRedis はテスト用のRedisSessionRepoを返す。
// TEST_REDIS_ADDRが未設定、または接続できない場合はスキップする。
func setupRedis(t *testing.T) *RedisSessionRepo {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := database.ConnectRedis(ctx, addr, os.Getenv("TEST_REDIS_PASSWORD"), 0)
	if err != nil {
		t.Skipf("テスト用Redisに接続できません（スキップ）: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	return NewRedisSessionRepo(client)
}

func TestRedisSessionRepo_Lifecycle(t *testing.T) {
	repo := setupRedis(t)
	ctx := context.Background()
	now := time.Now()
	s := &model.Session{ID: uuid.NewString(), UserID: "u1", ExpiresAt: now.Add(time.Minute), CreatedAt: now}

	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)

	ttl, err := repo.client.TTL(ctx, sessionKey(s.ID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, repo.DeleteByID(ctx, s.ID))
	got, err = repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSessionRepo_Create_AlreadyExpired_ReturnsError(t *testing.T) {
	repo := setupRedis(t)
	now := time.Now()
	s := &model.Session{ID: uuid.NewString(), UserID: "u1", ExpiresAt: now.Add(-time.Second), CreatedAt: now}

	assert.Error(t, repo.Create(context.Background(), s))
}

func TestRedisSessionRepo_Ping(t *testing.T) {
	repo := setupRedis(t)
	assert.NoError(t, repo.PingContext(context.Background()))
}
