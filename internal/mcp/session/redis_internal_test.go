package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisStore_ReplaceDoesNotResurrect(t *testing.T) {
	addr := os.Getenv("MCP_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := cl.Ping(pingCtx).Err(); err != nil {
		_ = cl.Close()
		t.Skipf("redis not reachable at %s: %v", addr, err)
	}

	prefix := "gatehouse:test:" + uuid.NewString() + ":"
	st := NewRedisStoreWithClient(cl, prefix, time.Minute)
	t.Cleanup(func() { _ = st.Close() })

	ctx := context.Background()
	s := New("bearer", time.Now())
	require.NoError(t, st.Create(ctx, s))

	// Touch has read the session when a DELETE ends it.
	read, err := st.Get(ctx, s.ID)
	require.NoError(t, err)
	require.NoError(t, st.Delete(ctx, s.ID))

	read.LastSeen = time.Now()
	require.ErrorIs(t, st.replace(ctx, read), ErrNotFound)

	n, err := cl.Exists(ctx, prefix+s.ID).Result()
	require.NoError(t, err)
	require.Zero(t, n)
}
