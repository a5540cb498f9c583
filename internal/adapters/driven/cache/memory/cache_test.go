package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
)

func answer(text string) domain.Answer {
	return domain.Answer{Kind: domain.AnswerKindGrounded, Text: text, Confidence: 0.8}
}

func TestAnswerCache_PutGet(t *testing.T) {
	cache := NewAnswerCache(4, time.Hour)
	ctx := context.Background()

	cache.Put(ctx, "k1", answer("a1"))

	got, ok := cache.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, "a1", got.Text)
}

func TestAnswerCache_Miss(t *testing.T) {
	cache := NewAnswerCache(4, time.Hour)

	_, ok := cache.Get(context.Background(), "absent")
	assert.False(t, ok)
}

func TestAnswerCache_PutIdempotent(t *testing.T) {
	cache := NewAnswerCache(4, time.Hour)
	ctx := context.Background()

	a := answer("same")
	cache.Put(ctx, "k1", a)
	cache.Put(ctx, "k1", a)

	got, ok := cache.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, a.Text, got.Text)
	assert.Equal(t, 1, cache.Len())
}

func TestAnswerCache_LRUEviction(t *testing.T) {
	cache := NewAnswerCache(3, time.Hour)
	ctx := context.Background()

	cache.Put(ctx, "k1", answer("a1"))
	cache.Put(ctx, "k2", answer("a2"))
	cache.Put(ctx, "k3", answer("a3"))

	// Touch k1 so k2 becomes least recently used.
	_, ok := cache.Get(ctx, "k1")
	require.True(t, ok)

	cache.Put(ctx, "k4", answer("a4"))

	_, ok = cache.Get(ctx, "k2")
	assert.False(t, ok, "expected k2 to be evicted")

	for _, k := range []string{"k1", "k3", "k4"} {
		_, ok := cache.Get(ctx, k)
		assert.True(t, ok, "expected %s to survive", k)
	}
	assert.Equal(t, 3, cache.Len())
}

func TestAnswerCache_TTLExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	cache := NewAnswerCache(4, time.Minute, WithClock(clock))
	ctx := context.Background()

	cache.Put(ctx, "k1", answer("a1"))

	now = now.Add(30 * time.Second)
	_, ok := cache.Get(ctx, "k1")
	assert.True(t, ok)

	now = now.Add(45 * time.Second)
	_, ok = cache.Get(ctx, "k1")
	assert.False(t, ok, "expected entry past TTL to be a miss")
}

func TestAnswerCache_TTLExpiry_RecentAccessDoesNotRevive(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	cache := NewAnswerCache(4, time.Minute, WithClock(clock))
	ctx := context.Background()

	cache.Put(ctx, "k1", answer("a1"))

	// Keep accessing; age still wins.
	for i := 0; i < 5; i++ {
		now = now.Add(20 * time.Second)
		cache.Get(ctx, "k1")
	}

	_, ok := cache.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestAnswerCache_PutOverwritesExpired(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	cache := NewAnswerCache(4, time.Minute, WithClock(clock))
	ctx := context.Background()

	cache.Put(ctx, "k1", answer("old"))
	now = now.Add(2 * time.Minute)
	cache.Put(ctx, "k1", answer("new"))

	got, ok := cache.Get(ctx, "k1")
	require.True(t, ok)
	assert.Equal(t, "new", got.Text)
	assert.Equal(t, 1, cache.Len())
}

func TestAnswerCache_Purge(t *testing.T) {
	cache := NewAnswerCache(4, time.Hour)
	ctx := context.Background()

	cache.Put(ctx, "k1", answer("a1"))
	cache.Put(ctx, "k2", answer("a2"))
	cache.Purge()

	assert.Equal(t, 0, cache.Len())
	_, ok := cache.Get(ctx, "k1")
	assert.False(t, ok)
}

func TestAnswerCache_ConcurrentAccess(t *testing.T) {
	cache := NewAnswerCache(16, time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%20)
				cache.Put(ctx, key, answer(key))
				cache.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), 16)
}
