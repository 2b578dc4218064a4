package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedisStore struct {
	data map[string]string
}

func newFakeRedisStore() *fakeRedisStore {
	return &fakeRedisStore{data: map[string]string{}}
}

func (f *fakeRedisStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, exists := f.data[key]; exists {
		return false, nil
	}
	f.data[key] = value.(string)
	return true, nil
}

func (f *fakeRedisStore) Get(ctx context.Context, key string) (string, error) {
	value, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeRedisStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func TestRedisLockExclusive(t *testing.T) {
	store := newFakeRedisStore()
	ctx := context.Background()

	first, err := NewRedisLock(store, "cw:lock:reconcile", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "cw:lock:reconcile", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second instance must not acquire a held lock")

	require.NoError(t, first.Release(ctx))

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseOnlyOwn(t *testing.T) {
	store := newFakeRedisStore()
	ctx := context.Background()

	holder, err := NewRedisLock(store, "cw:lock:reconcile", time.Minute)
	require.NoError(t, err)
	bystander, err := NewRedisLock(store, "cw:lock:reconcile", time.Minute)
	require.NoError(t, err)

	ok, err := holder.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// never acquired, so release must not free the holder's lock
	require.NoError(t, bystander.Release(ctx))

	ok, err = bystander.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
