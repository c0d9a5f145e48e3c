// ratelimit.go — middleware ограничения частоты запросов.
// Ключ: "user:<sub>" для аутентифицированных, иначе "ip:<адрес клиента>".
// Должен стоять ПОСЛЕ JWTAuth.Middleware (чтобы видеть claims),
// но ДО RequireRole (анонимные запросы тоже учитываются).
package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	apierrors "github.com/bigkaa/lms/internal/api/errors"
	"github.com/bigkaa/lms/internal/ratelimit"
)

// RateLimit возвращает middleware, ограничивающий запросы через limiter.
// route — значение лейбла метрики lms_rate_limit_rejections_total.
// Ошибка бэкенда limiter не блокирует запрос (fail-open), только логируется.
func RateLimit(limiter ratelimit.Limiter, route string, logger *slog.Logger) func(http.Handler) http.Handler {
	log := logger.With(slog.String("component", "rate_limit"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := RateLimitKey(r)

			decision, err := limiter.Allow(r.Context(), key)
			if err != nil {
				log.Error("Ошибка rate limiter, запрос пропущен",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			if !decision.Allowed {
				rateLimitRejections.WithLabelValues(route).Inc()
				log.Warn("Превышен лимит запросов",
					slog.String("key", key),
					slog.String("route", route),
					slog.Duration("retry_after", decision.RetryAfter),
				)
				apierrors.RateLimited(w, "Превышен лимит запросов, повторите позже", decision.RetryAfter)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitKey вычисляет ключ rate limiter для запроса.
// RemoteAddr уже переписан chi RealIP, если сервер доверяет proxy-заголовкам.
func RateLimitKey(r *http.Request) string {
	if sub := SubjectFromContext(r.Context()); sub != "" {
		return "user:" + sub
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
