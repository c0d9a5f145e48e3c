package config

import (
	"log/slog"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"LMS_DB_HOST":              "localhost",
		"LMS_DB_NAME":              "lms",
		"LMS_DB_USER":              "lms",
		"LMS_DB_PASSWORD":          "secret",
		"LMS_JWKS_URL":             "https://idp.example.com/.well-known/jwks.json",
		"LMS_S3_ACCESS_KEY_ID":     "AKIA",
		"LMS_S3_SECRET_ACCESS_KEY": "s3-secret",
		"LMS_S3_BUCKET_IMAGES":     "course-images",
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, ожидается 8080", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.DBPort != 5432 {
		t.Errorf("DBPort = %d, ожидается 5432", cfg.DBPort)
	}
	if cfg.S3Driver != S3DriverAWS {
		t.Errorf("S3Driver = %q, ожидается s3", cfg.S3Driver)
	}
	if cfg.S3Region != "us-east-1" {
		t.Errorf("S3Region = %q, ожидается us-east-1", cfg.S3Region)
	}
	if cfg.UploadURLTTL != 360*time.Second {
		t.Errorf("UploadURLTTL = %s, ожидается 6m0s", cfg.UploadURLTTL)
	}
	if cfg.UploadMaxSize != 5*1024*1024 {
		t.Errorf("UploadMaxSize = %d, ожидается 5 MiB", cfg.UploadMaxSize)
	}
	if cfg.RateLimitBackend != RateLimitMemory {
		t.Errorf("RateLimitBackend = %q, ожидается memory", cfg.RateLimitBackend)
	}
	if cfg.UploadRateLimit != 10 || cfg.UploadRateWindow != time.Minute {
		t.Errorf("rate limit = %d/%s, ожидается 10/1m", cfg.UploadRateLimit, cfg.UploadRateWindow)
	}
	if len(cfg.RoleAdminGroups) != 1 || cfg.RoleAdminGroups[0] != "lms-admins" {
		t.Errorf("RoleAdminGroups = %v, ожидается [lms-admins]", cfg.RoleAdminGroups)
	}
	if !cfg.S3UseSSL {
		t.Error("S3UseSSL по умолчанию должен быть true")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	required := []string{
		"LMS_DB_HOST", "LMS_DB_NAME", "LMS_DB_USER", "LMS_DB_PASSWORD",
		"LMS_JWKS_URL", "LMS_S3_ACCESS_KEY_ID", "LMS_S3_SECRET_ACCESS_KEY", "LMS_S3_BUCKET_IMAGES",
	}

	for _, key := range required {
		t.Run(key, func(t *testing.T) {
			envs := minimalEnvs()
			envs[key] = ""
			setEnvs(t, envs)

			if _, err := Load(); err == nil {
				t.Errorf("Load() без %s должен вернуть ошибку", key)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"неизвестный драйвер", "LMS_S3_DRIVER", "gcs"},
		{"minio без endpoint", "LMS_S3_DRIVER", "minio"},
		{"redis без адреса", "LMS_RATE_LIMIT_BACKEND", "redis"},
		{"неизвестный бэкенд", "LMS_RATE_LIMIT_BACKEND", "memcached"},
		{"нулевой лимит", "LMS_UPLOAD_RATE_LIMIT", "0"},
		{"отрицательный размер", "LMS_UPLOAD_MAX_SIZE", "-1"},
		{"TTL больше недели", "LMS_UPLOAD_URL_TTL", "200h"},
		{"TTL не длительность", "LMS_UPLOAD_URL_TTL", "6 minutes"},
		{"формат логов", "LMS_LOG_FORMAT", "xml"},
		{"уровень логов", "LMS_LOG_LEVEL", "trace"},
		{"ssl mode", "LMS_DB_SSL_MODE", "prefer"},
		{"порт", "LMS_PORT", "70000"},
		{"bool", "LMS_S3_USE_SSL", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envs := minimalEnvs()
			envs[tt.key] = tt.val
			setEnvs(t, envs)

			if _, err := Load(); err == nil {
				t.Errorf("Load() с %s=%q должен вернуть ошибку", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_MinioDriver(t *testing.T) {
	envs := minimalEnvs()
	envs["LMS_S3_DRIVER"] = "minio"
	envs["LMS_S3_ENDPOINT"] = "minio.local:9000"
	envs["LMS_S3_USE_SSL"] = "false"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.S3Driver != S3DriverMinio {
		t.Errorf("S3Driver = %q, ожидается minio", cfg.S3Driver)
	}
	if cfg.S3UseSSL {
		t.Error("S3UseSSL должен быть false")
	}
}

func TestParseCSV(t *testing.T) {
	got := parseCSV(" lms-admins , ,teachers,")
	if len(got) != 2 || got[0] != "lms-admins" || got[1] != "teachers" {
		t.Errorf("parseCSV = %v, ожидается [lms-admins teachers]", got)
	}
	if parseCSV("") != nil {
		t.Error("parseCSV(\"\") должен вернуть nil")
	}
}
