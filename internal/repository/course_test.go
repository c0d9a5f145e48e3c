package repository

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/lms/internal/config"
	"github.com/bigkaa/lms/internal/database"
	"github.com/bigkaa/lms/internal/domain/model"
)

// setupTestDB запускает PostgreSQL контейнер, применяет миграции.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("lms_test"),
		postgres.WithUsername("lms"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Не удалось получить host контейнера: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	t.Setenv("LMS_DB_HOST", host)
	t.Setenv("LMS_DB_PORT", port.Port())
	t.Setenv("LMS_DB_NAME", "lms_test")
	t.Setenv("LMS_DB_USER", "lms")
	t.Setenv("LMS_DB_PASSWORD", "test-password")
	t.Setenv("LMS_JWKS_URL", "http://localhost:8081/jwks")
	t.Setenv("LMS_S3_ACCESS_KEY_ID", "test")
	t.Setenv("LMS_S3_SECRET_ACCESS_KEY", "test")
	t.Setenv("LMS_S3_BUCKET_IMAGES", "test")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	return pool
}

func newTestCourse(slug string) *model.Course {
	return &model.Course{
		ID:               uuid.New().String(),
		Title:            "Основы Go",
		Description:      "Полный курс по Go",
		SmallDescription: "Go с нуля",
		FileKey:          uuid.NewString() + "-cover.png",
		Price:            49,
		Duration:         12,
		Level:            model.LevelBeginner,
		Category:         "Development",
		Slug:             slug,
		Status:           model.StatusDraft,
		UserID:           "user-1",
	}
}

func TestCourseCRUD(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	repo := NewCourseRepository(pool)

	c := newTestCourse("go-basics")

	// Create
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if c.CreatedAt.IsZero() {
		t.Error("CreatedAt не установлен")
	}

	// Дубликат slug
	dup := newTestCourse("go-basics")
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Errorf("Create() с дубликатом slug: ожидали ErrConflict, получили %v", err)
	}

	// GetByID
	got, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Title != c.Title || got.Level != model.LevelBeginner || got.FileKey != c.FileKey {
		t.Errorf("GetByID() = %+v, не совпадает с созданным", got)
	}

	// List + Count
	second := newTestCourse("go-advanced")
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("Create() второго курса ошибка: %v", err)
	}
	list, err := repo.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("List() вернул %d записей, хотели 2", len(list))
	}
	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() ошибка: %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, хотели 2", count)
	}

	// Update
	c.Title = "Go для профессионалов"
	c.Status = model.StatusPublished
	if err := repo.Update(ctx, c); err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	got2, _ := repo.GetByID(ctx, c.ID)
	if got2.Title != "Go для профессионалов" || got2.Status != model.StatusPublished {
		t.Errorf("После Update: Title=%q, Status=%q", got2.Title, got2.Status)
	}

	// Update со slug другого курса
	c.Slug = "go-advanced"
	if err := repo.Update(ctx, c); !errors.Is(err, ErrConflict) {
		t.Errorf("Update() с занятым slug: ожидали ErrConflict, получили %v", err)
	}

	// Delete
	if err := repo.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if _, err := repo.GetByID(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("После Delete ожидали ErrNotFound, получили: %v", err)
	}
	if err := repo.Delete(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Повторный Delete: ожидали ErrNotFound, получили: %v", err)
	}
}
