// Пакет ratelimit — ограничение частоты запросов по скользящему окну.
// Две реализации: in-memory (expirable LRU, per-instance) и Redis
// (общий лимит для всех реплик API).
package ratelimit

import (
	"context"
	"time"
)

// Decision — результат проверки лимита для одного запроса.
type Decision struct {
	// Allowed — запрос допущен и учтён в окне.
	Allowed bool
	// Remaining — сколько ещё запросов допустимо в текущем окне.
	Remaining int
	// RetryAfter — через сколько освободится место в окне (для отказа).
	RetryAfter time.Duration
}

// Limiter — ограничитель частоты запросов по ключу.
// Ключ формируется вызывающей стороной: "user:<sub>" или "ip:<addr>".
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}
