package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/garyburd/redigo/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedPlan struct {
	ProcessorID string
	Level       int
}

func newTestRedis(t *testing.T) (*Redis, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	pool := &redis.Pool{
		MaxIdle: 2,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", mr.Addr())
		},
	}
	t.Cleanup(func() { pool.Close() })

	return NewRedis(pool), mr
}

func TestRedisSetGetDelete(t *testing.T) {
	r, mr := newTestRedis(t)

	in := cachedPlan{ProcessorID: "pro", Level: 2}
	require.NoError(t, r.Set("plans/pro", time.Minute, in))
	assert.True(t, mr.Exists(keyPrefix+"plans/pro"))

	var out cachedPlan
	require.NoError(t, r.Get("plans/pro", &out))
	assert.Equal(t, in, out)

	require.NoError(t, r.Delete("plans/pro"))

	var missed *cachedPlan
	require.NoError(t, r.Get("plans/pro", &missed))
	assert.Nil(t, missed)
}

func TestRedisExpiry(t *testing.T) {
	r, mr := newTestRedis(t)

	require.NoError(t, r.Set("short", 2*time.Second, 1))
	mr.FastForward(3 * time.Second)

	var v *int
	require.NoError(t, r.Get("short", &v))
	assert.Nil(t, v)
}
