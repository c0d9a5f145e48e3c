// metrics.go — Prometheus HTTP метрики LMS API.
// Регистрирует метрики: lms_http_requests_total, lms_http_request_duration_seconds,
// lms_rate_limit_rejections_total.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP метрики
var (
	// httpRequestsTotal — общее количество HTTP-запросов.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_http_requests_total",
			Help: "Общее количество HTTP-запросов к LMS API",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration — гистограмма длительности HTTP-запросов.
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lms_http_request_duration_seconds",
			Help:    "Длительность HTTP-запросов к LMS API в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// rateLimitRejections — запросы, отклонённые rate limiter.
	rateLimitRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_rate_limit_rejections_total",
			Help: "Количество запросов, отклонённых rate limiter",
		},
		[]string{"route"},
	)
)

// MetricsMiddleware возвращает HTTP middleware для сбора Prometheus метрик.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Нормализуем путь для лейблов метрик
			// (заменяем UUID на {id} для предотвращения кардинальности)
			normalizedPath := normalizePath(r.URL.Path)

			wrapped := newStatusRecorder(w)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.status)

			httpRequestsTotal.WithLabelValues(r.Method, normalizedPath, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, normalizedPath).Observe(duration)
		})
	}
}

// normalizePath заменяет идентификаторы в пути на {id}.
// /api/v1/courses/a1b2c3d4-... → /api/v1/courses/{id}
// Неизвестные пути сворачиваются в "other".
func normalizePath(path string) string {
	switch path {
	case "/health/live", "/health/ready", "/metrics",
		"/api/v1/s3/upload",
		"/api/v1/s3/delete",
		"/api/v1/courses",
		"/admin/partials/uploader":
		return path
	}

	const coursesPrefix = "/api/v1/courses/"
	if rest, ok := strings.CutPrefix(path, coursesPrefix); ok && rest != "" && !strings.Contains(rest, "/") {
		return coursesPrefix + "{id}"
	}

	return "other"
}
