// Пакет server — HTTP-сервер LMS API с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bigkaa/lms/internal/api/handlers"
	"github.com/bigkaa/lms/internal/api/middleware"
	"github.com/bigkaa/lms/internal/config"
	"github.com/bigkaa/lms/internal/domain/rbac"
	"github.com/bigkaa/lms/internal/ratelimit"
)

// Deps — обработчики и middleware, собираемые в main.
type Deps struct {
	API    *handlers.APIHandler
	Health *handlers.HealthHandler
	// Authenticate — JWT middleware без обязательного токена
	// (JWTAuth.Middleware). nil — все запросы анонимные.
	Authenticate func(http.Handler) http.Handler
	// Limiter — ограничитель для upload/delete. nil — без ограничения.
	Limiter ratelimit.Limiter
	// Validator — проверка запросов по OpenAPI-контракту. nil — без проверки.
	Validator func(http.Handler) http.Handler
}

// Server — HTTP-сервер LMS API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с маршрутами и middleware.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(cfg, logger, deps),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты.
//
// Порядок для защищённых маршрутов: JWT (необязательный) → rate limit →
// роль admin → контракт → обработчик. Rate limit стоит до проверки роли,
// поэтому анонимные запросы учитываются по IP.
func NewRouter(cfg *config.Config, logger *slog.Logger, deps Deps) chi.Router {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	if cfg.TrustProxyHeaders {
		router.Use(chimw.RealIP)
	}
	router.Use(chimw.RequestID)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(chimw.Recoverer)

	// Health и metrics проверяются Kubernetes напрямую, без API Gateway.
	router.Get("/health/live", deps.Health.HealthLive)
	router.Get("/health/ready", deps.Health.HealthReady)
	router.Get("/metrics", deps.Health.GetMetrics)

	requireAdmin := middleware.RequireRole(rbac.RoleAdmin)
	limit := func(route string) func(http.Handler) http.Handler {
		if deps.Limiter == nil {
			return passthrough
		}
		return middleware.RateLimit(deps.Limiter, route, logger)
	}
	validate := deps.Validator
	if validate == nil {
		validate = passthrough
	}
	authenticate := deps.Authenticate
	if authenticate == nil {
		authenticate = passthrough
	}

	router.Group(func(r chi.Router) {
		r.Use(authenticate)

		r.With(limit("upload"), requireAdmin, validate).Post("/api/v1/s3/upload", deps.API.IssueUpload)
		r.With(limit("delete"), requireAdmin, validate).Delete("/api/v1/s3/delete", deps.API.DeleteObject)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin, validate)
			r.Get("/api/v1/courses", deps.API.ListCourses)
			r.Post("/api/v1/courses", deps.API.CreateCourse)
			r.Get("/api/v1/courses/{course_id}", deps.API.GetCourse)
			r.Put("/api/v1/courses/{course_id}", deps.API.UpdateCourse)
			r.Delete("/api/v1/courses/{course_id}", deps.API.DeleteCourse)
			r.Get("/admin/partials/uploader", deps.API.UploaderPartial)
		})
	})

	return router
}

func passthrough(next http.Handler) http.Handler { return next }

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext запускает сервер до отмены ctx.
func (s *Server) RunContext(ctx context.Context) error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Получен сигнал завершения")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
		return nil
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
