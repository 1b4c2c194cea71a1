// Package ratelimit sabit pencereli istek sayacı sağlar. Sayaçlar Redis'te
// tutulur; Redis yoksa süreç-içi MemoryStore devreye girer. Süreç-içi mod
// yalnızca instance başına limit uygular, global bir garanti vermez — bu
// bilinen bir yaklaşıklıktır.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

type Bucket string

const (
	BucketAPI      Bucket = "api"
	BucketAuth     Bucket = "auth"
	BucketGenerate Bucket = "generate"
	BucketUpload   Bucket = "upload"
	BucketStrict   Bucket = "strict"
)

type bucketConfig struct {
	Limit  int
	Window time.Duration
}

var bucketConfigs = map[Bucket]bucketConfig{
	BucketAPI:      {Limit: 100, Window: time.Minute},
	BucketAuth:     {Limit: 10, Window: time.Minute},
	BucketGenerate: {Limit: 5, Window: time.Minute},
	BucketUpload:   {Limit: 20, Window: time.Minute},
	BucketStrict:   {Limit: 3, Window: time.Minute},
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter 429 cevabındaki Retry-After değerini saniye olarak verir.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(r.ResetAt.Sub(now).Seconds()) + 1
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Store pencere başına atomik artırma sağlar. Incr, anahtarın pencere içindeki
// yeni sayısını ve pencerenin bitiş zamanını döndürür.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (count int, resetAt time.Time, err error)
}

type Limiter struct {
	store Store
}

func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store}
}

// Check identity+bucket anahtarı için sayacı artırır ve bütçeyle karşılaştırır.
func (l *Limiter) Check(ctx context.Context, identity string, bucket Bucket) (Result, error) {
	cfg, exists := bucketConfigs[bucket]
	if !exists {
		cfg = bucketConfigs[BucketAPI]
	}

	key := fmt.Sprintf("ratelimit:%s:%s", bucket, identity)
	count, resetAt, err := l.store.Incr(ctx, key, cfg.Window)
	if err != nil {
		return Result{}, err
	}

	remaining := cfg.Limit - count
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   count <= cfg.Limit,
		Limit:     cfg.Limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
