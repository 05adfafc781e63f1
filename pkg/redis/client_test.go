package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := NewClient("redis://"+mr.Addr(), "test", zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	return mr, client
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "Invalid scheme", url: "invalid://url"},
		{name: "Empty URL", url: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.url, "test", nil)
			assert.Error(t, err)
			assert.Nil(t, client)
		})
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	client, err := NewClient("redis://"+addr, "test", nil)
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestClient_GetSet(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	tests := []struct {
		name          string
		key           string
		setValue      string
		expectedValue string
		expectNil     bool
	}{
		{name: "Existing key", key: "k1", setValue: "v1", expectedValue: "v1"},
		{name: "Missing key", key: "missing", expectNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setValue != "" {
				require.NoError(t, client.Set(ctx, tt.key, tt.setValue, time.Minute))
			}

			val, err := client.Get(ctx, tt.key)
			if tt.expectNil {
				assert.ErrorIs(t, err, Nil)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedValue, val)
		})
	}
}

func TestClient_SetNX(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()

	ok, err := client.SetNX(ctx, "nx", "first", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, "nx", "second", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	val, err := client.Get(ctx, "nx")
	require.NoError(t, err)
	assert.Equal(t, "first", val)
}

func TestClient_Delete(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "a", "1", time.Second))
	mr.FastForward(2 * time.Second)
	_, err := client.Get(ctx, "a")
	assert.ErrorIs(t, err, Nil, "ttl expired")

	require.NoError(t, client.Set(ctx, "b", "1", 0))
	require.NoError(t, client.Delete(ctx, "b"))
	assert.False(t, mr.Exists("b"))
}

func TestClient_Health(t *testing.T) {
	_, client := setupTestRedis(t)
	assert.NoError(t, client.Health(context.Background()))
}

func TestPrefixForLog(t *testing.T) {
	assert.Equal(t, "short", prefixForLog("short"))
	long := "prod:leaguesync:lock:notification:user:match"
	assert.Equal(t, long[:24]+"…", prefixForLog(long))
}
