// redis.go — sliding window limiter в Redis.
// Окно хранится в sorted set (score — время запроса в мс),
// проверка и учёт выполняются атомарно Lua-скриптом.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript — атомарная проверка скользящего окна.
// KEYS[1] = ключ окна (например "lms:ratelimit:user:123")
// ARGV[1] = текущее время, мс
// ARGV[2] = длина окна, мс
// ARGV[3] = лимит запросов
// ARGV[4] = уникальный member для нового запроса
// Возвращает {allowed, remaining, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call("ZREMRANGEBYSCORE", key, "-inf", now - window)
local count = redis.call("ZCARD", key)

if count >= limit then
    local oldest = redis.call("ZRANGE", key, 0, 0, "WITHSCORES")
    local retry = window
    if oldest[2] then
        retry = tonumber(oldest[2]) + window - now
    end
    return {0, 0, retry}
end

redis.call("ZADD", key, now, ARGV[4])
redis.call("PEXPIRE", key, window)
return {1, limit - count - 1, 0}
`)

// keyPrefix — префикс ключей rate limiter в Redis.
const keyPrefix = "lms:ratelimit:"

// RedisLimiter — sliding window limiter, общий для всех реплик.
type RedisLimiter struct {
	client redis.UniversalClient
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRedisClient создаёт клиент Redis из параметров конфигурации.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisLimiter создаёт limiter поверх существующего клиента.
func NewRedisLimiter(client redis.UniversalClient, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Allow проверяет и учитывает запрос по ключу.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	nowMs := l.now().UnixMilli()

	res, err := slidingWindowScript.Run(ctx, l.client, []string{keyPrefix + key},
		nowMs, l.window.Milliseconds(), l.limit, uuid.NewString(),
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("redis rate limiter: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 3 {
		return Decision{}, fmt.Errorf("redis rate limiter: неожиданный ответ скрипта %v", res)
	}

	allowed, _ := values[0].(int64)
	remaining, _ := values[1].(int64)
	retryMs, _ := values[2].(int64)

	return Decision{
		Allowed:    allowed == 1,
		Remaining:  int(remaining),
		RetryAfter: time.Duration(retryMs) * time.Millisecond,
	}, nil
}

// CheckReady проверяет доступность Redis (для /health/ready).
func (l *RedisLimiter) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := l.client.Ping(ctx).Err(); err != nil {
		return "fail", fmt.Sprintf("Redis недоступен: %v", err)
	}
	return "ok", "Redis доступен"
}
