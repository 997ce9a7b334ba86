package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/detailongo/dotg-team/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSessionRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisSessionRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("SaveAndGetSession", func(t *testing.T) {
		state := &models.SessionState{
			SessionID:   "sess-1",
			CurrentStep: 4,
			Snapshot:    json.RawMessage(`{"version":1}`),
			TempData:    map[string]interface{}{"calendar_message_id": float64(42)},
		}

		require.NoError(t, repo.SaveSession(ctx, state))

		got, err := repo.GetSession(ctx, "sess-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, 4, got.CurrentStep)
		assert.JSONEq(t, `{"version":1}`, string(got.Snapshot))
		assert.Equal(t, int64(42), got.GetInt64("calendar_message_id"))
		assert.Equal(t, time.Hour, s.TTL("wizard_session:sess-1"))
	})

	t.Run("GetMissingSession", func(t *testing.T) {
		got, err := repo.GetSession(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("SessionExpires", func(t *testing.T) {
		require.NoError(t, repo.SaveSession(ctx, &models.SessionState{SessionID: "sess-ttl"}))
		s.FastForward(time.Hour + time.Second)

		got, err := repo.GetSession(ctx, "sess-ttl")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("DeleteSession", func(t *testing.T) {
		require.NoError(t, repo.SaveSession(ctx, &models.SessionState{SessionID: "sess-2"}))
		require.NoError(t, repo.DeleteSession(ctx, "sess-2"))

		got, _ := repo.GetSession(ctx, "sess-2")
		assert.Nil(t, got)
	})

	t.Run("CorruptSession", func(t *testing.T) {
		require.NoError(t, s.Set("wizard_session:bad", "{"))
		_, err := repo.GetSession(ctx, "bad")
		assert.Error(t, err)
	})

	t.Run("RateLimit", func(t *testing.T) {
		key := "tg:789"
		limit := 2
		window := time.Second

		allowed, err := repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)

		allowed, err = repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.False(t, allowed)

		s.FastForward(window + time.Millisecond)

		allowed, err = repo.CheckRateLimit(ctx, key, limit, window)
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("NilClient", func(t *testing.T) {
		repo := NewRedisSessionRepository(nil, time.Hour)
		_, err := repo.GetSession(ctx, "sess-1")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis client is nil")
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, Ping(ctx, client))
	})

	t.Run("Close", func(t *testing.T) {
		assert.NoError(t, Close(client))
	})
}
