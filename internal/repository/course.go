package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/lms/internal/domain/model"
)

// CourseRepository — интерфейс CRUD для таблицы courses.
type CourseRepository interface {
	// Create создаёт курс. Дубликат slug — ErrConflict.
	Create(ctx context.Context, c *model.Course) error
	// GetByID возвращает курс по UUID.
	GetByID(ctx context.Context, id string) (*model.Course, error)
	// List возвращает курсы, новые первыми.
	List(ctx context.Context, limit, offset int) ([]*model.Course, error)
	// Count возвращает общее количество курсов.
	Count(ctx context.Context) (int, error)
	// Update обновляет изменяемые поля курса.
	Update(ctx context.Context, c *model.Course) error
	// Delete удаляет курс.
	Delete(ctx context.Context, id string) error
}

// courseRepo — реализация CourseRepository.
type courseRepo struct {
	db DBTX
}

// NewCourseRepository создаёт репозиторий курсов.
func NewCourseRepository(db DBTX) CourseRepository {
	return &courseRepo{db: db}
}

const courseColumns = `id, title, description, small_description, file_key,
	price, duration, level, category, slug, status, user_id, created_at, updated_at`

// scanCourse читает строку в model.Course.
func scanCourse(row pgx.Row) (*model.Course, error) {
	c := &model.Course{}
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.SmallDescription, &c.FileKey,
		&c.Price, &c.Duration, &c.Level, &c.Category, &c.Slug, &c.Status,
		&c.UserID, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func (r *courseRepo) Create(ctx context.Context, c *model.Course) error {
	query := `
		INSERT INTO courses (id, title, description, small_description, file_key,
			price, duration, level, category, slug, status, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		c.ID, c.Title, c.Description, c.SmallDescription, c.FileKey,
		c.Price, c.Duration, c.Level, c.Category, c.Slug, c.Status, c.UserID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return classify(err, "создание курса")
	}
	return nil
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`

	c, err := scanCourse(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, classify(err, "получение курса")
	}
	return c, nil
}

func (r *courseRepo) List(ctx context.Context, limit, offset int) ([]*model.Course, error) {
	query := `SELECT ` + courseColumns + `
		FROM courses
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, classify(err, "список курсов")
	}
	defer rows.Close()

	result := make([]*model.Course, 0, limit)
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("сканирование курса: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *courseRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM courses`).Scan(&n); err != nil {
		return 0, classify(err, "подсчёт курсов")
	}
	return n, nil
}

func (r *courseRepo) Update(ctx context.Context, c *model.Course) error {
	query := `
		UPDATE courses
		SET title = $2, description = $3, small_description = $4, file_key = $5,
			price = $6, duration = $7, level = $8, category = $9, slug = $10,
			status = $11, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		c.ID, c.Title, c.Description, c.SmallDescription, c.FileKey,
		c.Price, c.Duration, c.Level, c.Category, c.Slug, c.Status,
	).Scan(&c.UpdatedAt)
	if err != nil {
		return classify(err, "обновление курса")
	}
	return nil
}

func (r *courseRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return classify(err, "удаление курса")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
