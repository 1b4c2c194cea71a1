package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(start time.Time) (*MemoryStore, *time.Time) {
	current := start
	store := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		now:     func() time.Time { return current },
	}
	return store, &current
}

func TestLimiterAllowsUpToBudget(t *testing.T) {
	store, _ := newTestStore(time.Now())
	limiter := NewLimiter(store)
	ctx := context.Background()

	// strict bucket: 3/dakika
	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "user:1", BucketStrict)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 3, result.Limit)
		assert.Equal(t, 2-i, result.Remaining)
	}

	// Dördüncü istek reddedilir
	result, err := limiter.Check(ctx, "user:1", BucketStrict)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
}

func TestLimiterWindowResets(t *testing.T) {
	start := time.Now()
	store, clock := newTestStore(start)
	limiter := NewLimiter(store)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		limiter.Check(ctx, "user:2", BucketStrict)
	}
	result, err := limiter.Check(ctx, "user:2", BucketStrict)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	// Pencere geçince sayaç sıfırlanır
	*clock = start.Add(61 * time.Second)
	result, err = limiter.Check(ctx, "user:2", BucketStrict)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 2, result.Remaining)
}

func TestLimiterIdentitiesAreIndependent(t *testing.T) {
	store, _ := newTestStore(time.Now())
	limiter := NewLimiter(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limiter.Check(ctx, "user:3", BucketStrict)
	}
	blocked, _ := limiter.Check(ctx, "user:3", BucketStrict)
	assert.False(t, blocked.Allowed)

	other, err := limiter.Check(ctx, "ip:10.0.0.1", BucketStrict)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestLimiterBucketsAreIndependent(t *testing.T) {
	store, _ := newTestStore(time.Now())
	limiter := NewLimiter(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limiter.Check(ctx, "user:4", BucketStrict)
	}
	blocked, _ := limiter.Check(ctx, "user:4", BucketStrict)
	assert.False(t, blocked.Allowed)

	// Aynı kimlik, farklı bucket
	result, err := limiter.Check(ctx, "user:4", BucketGenerate)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestUnknownBucketFallsBackToAPI(t *testing.T) {
	store, _ := newTestStore(time.Now())
	limiter := NewLimiter(store)

	result, err := limiter.Check(context.Background(), "user:5", Bucket("mystery"))
	require.NoError(t, err)
	assert.Equal(t, 100, result.Limit)
}

func TestRetryAfter(t *testing.T) {
	now := time.Now()
	r := Result{ResetAt: now.Add(30 * time.Second)}
	assert.Equal(t, 31, r.RetryAfter(now))

	// Geçmiş pencere en az 1 döner
	r = Result{ResetAt: now.Add(-5 * time.Second)}
	assert.Equal(t, 1, r.RetryAfter(now))
}
