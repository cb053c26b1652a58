package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectTestRedis(t *testing.T) *Locker {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR_TEST")
	if addr == "" {
		t.Skip("REDIS_ADDR_TEST not set; skipping Redis test")
	}
	rdb, err := ConnectRedis(addr, os.Getenv("REDIS_PASSWORD_TEST"), 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = DisconnectRedis(rdb) })
	return NewLocker(rdb)
}

func TestLocker_ExclusiveUntilReleased(t *testing.T) {
	locker := connectTestRedis(t)
	ctx := context.Background()
	key := "test:" + time.Now().Format(time.RFC3339Nano)

	release, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, key, time.Minute)
	assert.ErrorIs(t, err, ErrLocked)

	release()
	release2, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	release2()
}

func TestLocker_Expires(t *testing.T) {
	locker := connectTestRedis(t)
	ctx := context.Background()
	key := "test-expire:" + time.Now().Format(time.RFC3339Nano)

	_, err := locker.Acquire(ctx, key, 50*time.Millisecond)
	require.NoError(t, err)
	time.Sleep(150 * time.Millisecond)

	release, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	release()
}

func TestDisconnectRedis_Nil(t *testing.T) {
	assert.NoError(t, DisconnectRedis(nil))
}
