// Пакет config — загрузка и валидация конфигурации LMS API
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Драйверы объектного хранилища.
const (
	S3DriverAWS   = "s3"
	S3DriverMinio = "minio"
)

// Бэкенды rate limiter.
const (
	RateLimitMemory = "memory"
	RateLimitRedis  = "redis"
)

// Config содержит все параметры конфигурации LMS API.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Доверять X-Forwarded-For / X-Real-IP (за reverse proxy)
	TrustProxyHeaders bool

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- JWT ---

	// URL JWKS endpoint провайдера идентификации
	JWKSURL string
	// Ожидаемый issuer JWT (пусто — не проверяется)
	JWTIssuer string
	// Путь к CA-сертификату для JWKS endpoint (опционально)
	JWKSCACert string
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение часов при проверке exp/nbf
	JWTLeeway time.Duration
	// Группы, дающие роль admin
	RoleAdminGroups []string

	// --- Объектное хранилище ---

	// Драйвер: s3 (aws-sdk-go-v2) или minio (minio-go)
	S3Driver string
	// Endpoint S3-совместимого хранилища (пусто — AWS по умолчанию)
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	// Bucket для изображений курсов
	S3BucketImages string
	// TLS к endpoint (только для minio)
	S3UseSSL bool
	// Путь health check хранилища для topologymetrics
	S3HealthPath string

	// --- Загрузка файлов ---

	// Время жизни pre-signed URL
	UploadURLTTL time.Duration
	// Максимальный размер загружаемого файла в байтах
	UploadMaxSize int64

	// --- Rate limiting ---

	// Бэкенд: memory или redis
	RateLimitBackend string
	// Максимум запросов в окне
	UploadRateLimit int
	// Длина скользящего окна
	UploadRateWindow time.Duration
	// Максимум отслеживаемых ключей (memory)
	RateLimitMaxKeys int
	RedisAddr        string
	RedisPassword    string
	RedisDB          int

	// --- topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
//
//nolint:gocyclo,cyclop // линейный разбор переменных окружения
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// LMS_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("LMS_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("LMS_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("LMS_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("LMS_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("LMS_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("LMS_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("LMS_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	cfg.TrustProxyHeaders, err = getEnvBool("LMS_TRUST_PROXY_HEADERS", false)
	if err != nil {
		return nil, fmt.Errorf("LMS_TRUST_PROXY_HEADERS: %w", err)
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = getEnvRequired("LMS_DB_HOST"); err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("LMS_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("LMS_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("LMS_DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = getEnvRequired("LMS_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired("LMS_DB_PASSWORD"); err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("LMS_DB_SSL_MODE", "disable")
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[cfg.DBSSLMode] {
		return nil, fmt.Errorf("LMS_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- JWT ---

	if cfg.JWKSURL, err = getEnvRequired("LMS_JWKS_URL"); err != nil {
		return nil, err
	}
	cfg.JWTIssuer = getEnvDefault("LMS_JWT_ISSUER", "")
	cfg.JWKSCACert = getEnvDefault("LMS_JWKS_CA_CERT", "")
	cfg.JWKSClientTimeout, err = getEnvDuration("LMS_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("LMS_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("LMS_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("LMS_JWKS_REFRESH_INTERVAL: %w", err)
	}
	cfg.JWTLeeway, err = getEnvDuration("LMS_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("LMS_JWT_LEEWAY: %w", err)
	}
	cfg.RoleAdminGroups = parseCSV(getEnvDefault("LMS_ROLE_ADMIN_GROUPS", "lms-admins"))

	// --- Объектное хранилище ---

	cfg.S3Driver = getEnvDefault("LMS_S3_DRIVER", S3DriverAWS)
	if cfg.S3Driver != S3DriverAWS && cfg.S3Driver != S3DriverMinio {
		return nil, fmt.Errorf("LMS_S3_DRIVER: недопустимое значение %q, допустимые: s3, minio", cfg.S3Driver)
	}
	cfg.S3Endpoint = getEnvDefault("LMS_S3_ENDPOINT", "")
	if cfg.S3Driver == S3DriverMinio && cfg.S3Endpoint == "" {
		return nil, fmt.Errorf("LMS_S3_ENDPOINT: обязателен для драйвера minio")
	}
	cfg.S3Region = getEnvDefault("LMS_S3_REGION", "us-east-1")
	if cfg.S3AccessKeyID, err = getEnvRequired("LMS_S3_ACCESS_KEY_ID"); err != nil {
		return nil, err
	}
	if cfg.S3SecretAccessKey, err = getEnvRequired("LMS_S3_SECRET_ACCESS_KEY"); err != nil {
		return nil, err
	}
	if cfg.S3BucketImages, err = getEnvRequired("LMS_S3_BUCKET_IMAGES"); err != nil {
		return nil, err
	}
	cfg.S3UseSSL, err = getEnvBool("LMS_S3_USE_SSL", true)
	if err != nil {
		return nil, fmt.Errorf("LMS_S3_USE_SSL: %w", err)
	}
	cfg.S3HealthPath = getEnvDefault("LMS_S3_HEALTH_PATH", "/minio/health/live")

	// --- Загрузка файлов ---

	// LMS_UPLOAD_URL_TTL — время жизни pre-signed URL (по умолчанию 360s)
	cfg.UploadURLTTL, err = getEnvDuration("LMS_UPLOAD_URL_TTL", 360*time.Second)
	if err != nil {
		return nil, fmt.Errorf("LMS_UPLOAD_URL_TTL: %w", err)
	}
	// S3 SigV4 не допускает срок действия больше 7 дней
	if cfg.UploadURLTTL <= 0 || cfg.UploadURLTTL > 7*24*time.Hour {
		return nil, fmt.Errorf("LMS_UPLOAD_URL_TTL: значение %s вне диапазона (0, 168h]", cfg.UploadURLTTL)
	}

	// LMS_UPLOAD_MAX_SIZE — максимальный размер файла (по умолчанию 5 MiB)
	cfg.UploadMaxSize, err = getEnvInt64("LMS_UPLOAD_MAX_SIZE", 5*1024*1024)
	if err != nil {
		return nil, fmt.Errorf("LMS_UPLOAD_MAX_SIZE: %w", err)
	}
	if cfg.UploadMaxSize <= 0 {
		return nil, fmt.Errorf("LMS_UPLOAD_MAX_SIZE: значение должно быть положительным")
	}

	// --- Rate limiting ---

	cfg.RateLimitBackend = getEnvDefault("LMS_RATE_LIMIT_BACKEND", RateLimitMemory)
	if cfg.RateLimitBackend != RateLimitMemory && cfg.RateLimitBackend != RateLimitRedis {
		return nil, fmt.Errorf("LMS_RATE_LIMIT_BACKEND: недопустимое значение %q, допустимые: memory, redis", cfg.RateLimitBackend)
	}
	cfg.UploadRateLimit, err = getEnvInt("LMS_UPLOAD_RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("LMS_UPLOAD_RATE_LIMIT: %w", err)
	}
	if cfg.UploadRateLimit < 1 {
		return nil, fmt.Errorf("LMS_UPLOAD_RATE_LIMIT: значение должно быть >= 1")
	}
	cfg.UploadRateWindow, err = getEnvDuration("LMS_UPLOAD_RATE_WINDOW", time.Minute)
	if err != nil {
		return nil, fmt.Errorf("LMS_UPLOAD_RATE_WINDOW: %w", err)
	}
	if cfg.UploadRateWindow <= 0 {
		return nil, fmt.Errorf("LMS_UPLOAD_RATE_WINDOW: значение должно быть положительным")
	}
	cfg.RateLimitMaxKeys, err = getEnvInt("LMS_RATE_LIMIT_MAX_KEYS", 10000)
	if err != nil {
		return nil, fmt.Errorf("LMS_RATE_LIMIT_MAX_KEYS: %w", err)
	}
	cfg.RedisAddr = getEnvDefault("LMS_REDIS_ADDR", "")
	if cfg.RateLimitBackend == RateLimitRedis && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("LMS_REDIS_ADDR: обязателен для бэкенда redis")
	}
	cfg.RedisPassword = getEnvDefault("LMS_REDIS_PASSWORD", "")
	cfg.RedisDB, err = getEnvInt("LMS_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("LMS_REDIS_DB: %w", err)
	}

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("LMS_DEPHEALTH_GROUP", "lms")
	cfg.DephealthCheckInterval, err = getEnvDuration("LMS_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("LMS_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	cfg.ShutdownTimeout, err = getEnvDuration("LMS_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("LMS_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL для лейблов topologymetrics (без пароля).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1m, 6m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}

// parseCSV разбирает строку, разделённую запятыми, на срез строк.
// Пробелы вокруг элементов убираются, пустые элементы игнорируются.
func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
