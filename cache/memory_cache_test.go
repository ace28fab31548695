package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "participant:1", map[string]string{"name": "Ana"}, time.Minute)

	var got map[string]string
	assert.True(t, c.Get(ctx, "participant:1", &got))
	assert.Equal(t, "Ana", got["name"])
	assert.True(t, c.Exists(ctx, "participant:1"))
}

func TestMemoryCacheMissOnUnknownKey(t *testing.T) {
	c := NewMemoryCache()

	var got string
	assert.False(t, c.Get(context.Background(), "participant:missing", &got))
	assert.False(t, c.Exists(context.Background(), "participant:missing"))
}

func TestMemoryCacheLazyExpiry(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }

	c.Set(ctx, "participant:1", "value", 300*time.Second)

	// Just before the deadline the entry is alive.
	c.now = func() time.Time { return now.Add(299 * time.Second) }
	var got string
	assert.True(t, c.Get(ctx, "participant:1", &got))

	// At or past the deadline the entry is a miss and gets dropped.
	c.now = func() time.Time { return now.Add(301 * time.Second) }
	assert.False(t, c.Get(ctx, "participant:1", &got))
	assert.False(t, c.Exists(ctx, "participant:1"))
}

func TestMemoryCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set(ctx, "k", "v", 0)

	c.now = func() time.Time { return now.Add(24 * time.Hour) }
	var got string
	assert.True(t, c.Get(ctx, "k", &got))
}

func TestMemoryCacheDelete(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "a", 1, time.Minute)
	c.Set(ctx, "b", 2, time.Minute)

	c.Delete(ctx, "a", "b")
	assert.False(t, c.Exists(ctx, "a"))
	assert.False(t, c.Exists(ctx, "b"))
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	c := NewMemoryCache()
	ctx := context.Background()

	c.Set(ctx, "participants:1:10", "page1", time.Minute)
	c.Set(ctx, "participants:2:10", "page2", time.Minute)
	c.Set(ctx, "participant:abc", "point", time.Minute)
	c.Set(ctx, "events:1", "other", time.Minute)

	c.DeleteByPattern(ctx, "participants:*")

	assert.False(t, c.Exists(ctx, "participants:1:10"))
	assert.False(t, c.Exists(ctx, "participants:2:10"))
	// Keys outside the literal prefix are untouched.
	assert.True(t, c.Exists(ctx, "participant:abc"))
	assert.True(t, c.Exists(ctx, "events:1"))
}

func TestKeyScheme(t *testing.T) {
	assert.Equal(t, "participant:abc", ParticipantKey("abc"))
	assert.Equal(t, "participants:2:25", ParticipantListKey(2, 25))
	assert.Equal(t, "participants:*", ParticipantListPattern())
}
