// memory.go — in-memory sliding window limiter.
// Хранит журнал временных меток запросов по ключу в expirable LRU:
// неактивные ключи вытесняются по TTL (= длина окна) или по размеру.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryLimiter — sliding window log в памяти процесса.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows *expirable.LRU[string, []time.Time]
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewMemoryLimiter создаёт limiter: не более limit запросов за window.
// maxKeys — максимальное количество отслеживаемых ключей.
func NewMemoryLimiter(limit int, window time.Duration, maxKeys int) *MemoryLimiter {
	return &MemoryLimiter{
		windows: expirable.NewLRU[string, []time.Time](maxKeys, nil, window),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Allow проверяет и учитывает запрос по ключу.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	hits, _ := l.windows.Get(key)
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	hits = hits[i:]

	if len(hits) >= l.limit {
		return Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: hits[0].Add(l.window).Sub(now),
		}, nil
	}

	hits = append(hits, now)
	l.windows.Add(key, hits)

	return Decision{
		Allowed:   true,
		Remaining: l.limit - len(hits),
	}, nil
}
