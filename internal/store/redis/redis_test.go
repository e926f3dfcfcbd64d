package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gapscan/internal/config"
	"gapscan/internal/domain"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	client.Close()

	addr := mr.Addr()
	mr.Close()
	_, err = NewClient(context.Background(), config.RedisConfig{Addr: addr})
	assert.Error(t, err)
}

func TestStore_LoadEmpty(t *testing.T) {
	_, client := setupTestRedis(t)
	c, err := NewStore(client, "").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StageRaw, c.Stage)
	assert.Zero(t, c.Len())
}

func TestStore_SaveLoad(t *testing.T) {
	mr, client := setupTestRedis(t)
	s := NewStore(client, "test:corpus")
	ctx := context.Background()

	in := domain.Corpus{Stage: domain.StageClustered, Records: []domain.Record{
		{ID: "1", Title: "a", Abstract: "x", CleanedAbstract: "x", Cluster: 0, Metadata: map[string]string{"year": "2020"}},
		{ID: "2", Title: "b", Abstract: "y", CleanedAbstract: "y", Cluster: -1},
	}}
	require.NoError(t, s.Save(ctx, in))
	assert.True(t, mr.Exists("test:corpus"))

	out, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestStore_CorruptValue(t *testing.T) {
	mr, client := setupTestRedis(t)
	require.NoError(t, mr.Set(DefaultKey, "{not json"))
	_, err := NewStore(client, "").Load(context.Background())
	assert.ErrorContains(t, err, "unmarshal corpus")
}

func TestLock_AcquireRelease(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	l1 := NewLock(client)
	l2 := NewLock(client)
	assert.NotEqual(t, l1.OwnerID(), l2.OwnerID())

	ok, err := l1.Acquire(ctx, "analyze", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l2.Acquire(ctx, "analyze", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// a foreign release leaves the lock in place
	require.NoError(t, l2.Release(ctx, "analyze"))
	ok, err = l2.Acquire(ctx, "analyze", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l1.Release(ctx, "analyze"))
	ok, err = l2.Acquire(ctx, "analyze", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_Expires(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	l1 := NewLock(client)
	l2 := NewLock(client)

	ok, err := l1.Acquire(ctx, "analyze", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	ok, err = l2.Acquire(ctx, "analyze", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l1.Release(ctx, "nothing-held"))
}

func TestLock_Extend(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	l1 := NewLock(client)
	l2 := NewLock(client)

	ok, err := l1.Acquire(ctx, "analyze", 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(time.Second)
	ok, err = l1.Extend(ctx, "analyze", 2*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	// the original ttl has passed but the extension keeps it held
	mr.FastForward(1500 * time.Millisecond)
	ok, err = l2.Acquire(ctx, "analyze", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l2.Extend(ctx, "analyze", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "only the owner can extend")

	mr.FastForward(time.Second)
	ok, err = l1.Extend(ctx, "analyze", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "an expired lock cannot be extended")
}
