package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestRedis запускает Redis контейнер и возвращает limiter поверх него.
func setupTestRedis(t *testing.T, limit int, window time.Duration) *RedisLimiter {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "docker.io/redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Не удалось запустить Redis контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	endpoint, err := container.PortEndpoint(ctx, "6379/tcp", "")
	if err != nil {
		t.Fatalf("Не удалось получить endpoint контейнера: %v", err)
	}

	client := NewRedisClient(endpoint, "", 0)
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisLimiter(client, limit, window)
}

func TestRedisLimiter_Window(t *testing.T) {
	l := setupTestRedis(t, 2, time.Minute)
	ctx := context.Background()

	base := time.Now()
	l.now = func() time.Time { return base }

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "user:redis")
		if err != nil {
			t.Fatalf("Allow вернул ошибку: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("запрос %d должен быть допущен", i+1)
		}
	}

	d, err := l.Allow(ctx, "user:redis")
	if err != nil {
		t.Fatalf("Allow вернул ошибку: %v", err)
	}
	if d.Allowed {
		t.Fatal("третий запрос должен быть отклонён")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %s, ожидается (0, 1m]", d.RetryAfter)
	}

	// Другой ключ не затронут.
	if d, _ := l.Allow(ctx, "ip:127.0.0.1"); !d.Allowed {
		t.Error("ip:127.0.0.1 должен быть допущен")
	}

	// Сдвигаем часы за пределы окна.
	l.now = func() time.Time { return base.Add(time.Minute + time.Second) }
	if d, _ := l.Allow(ctx, "user:redis"); !d.Allowed {
		t.Error("после окна запрос должен быть допущен")
	}

	if status, _ := l.CheckReady(); status != "ok" {
		t.Errorf("CheckReady = %q, ожидается ok", status)
	}
}
