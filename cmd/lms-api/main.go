// Точка входа LMS API — выдача pre-signed URL для загрузки изображений,
// удаление объектов и каталог курсов.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL
// и объектному хранилищу, собирает сервисный слой и HTTP-сервер
// с JWT middleware, rate limiting и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/lms/internal/api/handlers"
	"github.com/bigkaa/lms/internal/api/middleware"
	"github.com/bigkaa/lms/internal/api/openapi"
	"github.com/bigkaa/lms/internal/config"
	"github.com/bigkaa/lms/internal/database"
	"github.com/bigkaa/lms/internal/objectstore"
	"github.com/bigkaa/lms/internal/ratelimit"
	"github.com/bigkaa/lms/internal/repository"
	"github.com/bigkaa/lms/internal/server"
	"github.com/bigkaa/lms/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("LMS API запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("s3_driver", cfg.S3Driver),
		slog.String("rate_limit_backend", cfg.RateLimitBackend),
	)

	if os.Getenv("LMS_DEPHEALTH_GROUP") == "" {
		logger.Warn("LMS_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Объектное хранилище
	store, err := objectstore.New(ctx, cfg.S3Driver, objectstore.Config{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
		Bucket:          cfg.S3BucketImages,
		UseSSL:          cfg.S3UseSSL,
	})
	if err != nil {
		logger.Error("Ошибка инициализации объектного хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Объектное хранилище подключено",
		slog.String("driver", cfg.S3Driver),
		slog.String("bucket", store.Bucket()),
	)

	// 6. Readiness checkers и rate limiter
	readiness := []handlers.NamedChecker{
		{Name: "postgresql", Checker: database.NewReadinessChecker(pool)},
		{Name: "storage", Checker: objectstore.NewReadinessChecker(store, 3*time.Second)},
	}

	var limiter ratelimit.Limiter
	switch cfg.RateLimitBackend {
	case config.RateLimitRedis:
		redisClient := ratelimit.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisClient.Close()
		redisLimiter := ratelimit.NewRedisLimiter(redisClient, cfg.UploadRateLimit, cfg.UploadRateWindow)
		readiness = append(readiness, handlers.NamedChecker{Name: "redis", Checker: redisLimiter})
		limiter = redisLimiter
	default:
		limiter = ratelimit.NewMemoryLimiter(cfg.UploadRateLimit, cfg.UploadRateWindow, cfg.RateLimitMaxKeys)
	}

	// 7. Repositories и services
	courseRepo := repository.NewCourseRepository(pool)
	uploadSvc := service.NewUploadService(store, cfg.UploadURLTTL, cfg.UploadMaxSize, logger)
	courseSvc := service.NewCourseService(courseRepo, store, logger)

	// 8. JWT middleware
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWKSURL,
		cfg.JWKSCACert,
		cfg.JWTIssuer,
		cfg.RoleAdminGroups,
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("JWT middleware инициализирован",
		slog.String("jwks_url", cfg.JWKSURL),
		slog.String("issuer", cfg.JWTIssuer),
	)

	jwksChecker, err := middleware.NewJWKSReadinessChecker(cfg.JWKSURL, cfg.JWKSCACert, cfg.JWKSClientTimeout)
	if err != nil {
		logger.Error("Ошибка создания JWKS readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	readiness = append(readiness, handlers.NamedChecker{Name: "jwks", Checker: jwksChecker})

	// 9. Проверка запросов по OpenAPI-контракту
	validator, err := openapi.NewValidator(ctx, logger)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI-контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 10. topologymetrics — мониторинг зависимостей (PostgreSQL, JWKS, хранилище)
	var dephealthSvc *service.DephealthService
	storageURL, err := service.StorageURL(cfg.S3Endpoint, cfg.S3Region, cfg.S3UseSSL)
	if err != nil {
		logger.Warn("topologymetrics: адрес хранилища не определён, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	} else {
		var dephealthErr error
		dephealthSvc, dephealthErr = service.NewDephealthService(service.DephealthParams{
			ServiceID:         "lms-api",
			Group:             cfg.DephealthGroup,
			DB:                pgDB,
			PgConnURL:         cfg.DatabaseURL(),
			JWKSURL:           cfg.JWKSURL,
			StorageURL:        storageURL,
			StorageHealthPath: cfg.S3HealthPath,
			CheckInterval:     cfg.DephealthCheckInterval,
		}, logger)
		if dephealthErr != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", dephealthErr.Error()),
			)
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 11. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, server.Deps{
		API:          handlers.NewAPIHandler(uploadSvc, courseSvc, logger),
		Health:       handlers.NewHealthHandler(readiness...),
		Authenticate: jwtAuth.Middleware(),
		Limiter:      limiter,
		Validator:    validator.Middleware(),
	})
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. Graceful shutdown фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("LMS API остановлен")
}
