// courses.go — каталог курсов: CRUD с валидацией и очисткой обложки
// в объектном хранилище при удалении курса.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bigkaa/lms/internal/domain/model"
	"github.com/bigkaa/lms/internal/objectstore"
	"github.com/bigkaa/lms/internal/repository"
)

// Ограничения пагинации списка курсов.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// CourseInput — изменяемые поля курса (создание и обновление).
type CourseInput struct {
	Title            string `json:"title" validate:"required,notblank,min=3,max=100"`
	Description      string `json:"description" validate:"required,notblank,min=3"`
	SmallDescription string `json:"smallDescription" validate:"required,notblank,min=3,max=200"`
	FileKey          string `json:"fileKey" validate:"required,notblank"`
	Price            *int   `json:"price" validate:"required,min=0"`
	Duration         int    `json:"duration" validate:"required,min=1,max=500"`
	Level            string `json:"level" validate:"required,oneof=BEGINNER INTERMEDIATE ADVANCED"`
	Category         string `json:"category" validate:"required,course_category"`
	Slug             string `json:"slug" validate:"required,min=3,max=128,slug"`
	Status           string `json:"status" validate:"required,oneof=DRAFT PUBLISHED ARCHIVED"`
}

// apply переносит поля ввода в модель.
func (in CourseInput) apply(c *model.Course) {
	c.Title = in.Title
	c.Description = in.Description
	c.SmallDescription = in.SmallDescription
	c.FileKey = in.FileKey
	c.Price = *in.Price
	c.Duration = in.Duration
	c.Level = model.CourseLevel(in.Level)
	c.Category = in.Category
	c.Slug = in.Slug
	c.Status = model.CourseStatus(in.Status)
}

// CourseService — бизнес-логика каталога курсов.
type CourseService struct {
	repo     repository.CourseRepository
	store    objectstore.Store
	validate *validator.Validate
	logger   *slog.Logger
}

// NewCourseService создаёт сервис курсов.
func NewCourseService(repo repository.CourseRepository, store objectstore.Store, logger *slog.Logger) *CourseService {
	return &CourseService{
		repo:     repo,
		store:    store,
		validate: newValidator(),
		logger:   logger.With(slog.String("component", "course_service")),
	}
}

// Create создаёт курс от имени пользователя userID.
func (s *CourseService) Create(ctx context.Context, userID string, in CourseInput) (*model.Course, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	c := &model.Course{
		ID:     uuid.NewString(),
		UserID: userID,
	}
	in.apply(c)

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Курс создан",
		slog.String("course_id", c.ID),
		slog.String("slug", c.Slug),
		slog.String("user_id", userID),
	)
	return c, nil
}

// Get возвращает курс по ID.
func (s *CourseService) Get(ctx context.Context, id string) (*model.Course, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return c, nil
}

// ClampPage приводит параметры пагинации к допустимым значениям:
// limit вне (0, MaxPageLimit] заменяется на DefaultPageLimit / MaxPageLimit.
func ClampPage(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = DefaultPageLimit
	case limit > MaxPageLimit:
		limit = MaxPageLimit
	}
	return limit, max(offset, 0)
}

// List возвращает страницу курсов и общее количество.
func (s *CourseService) List(ctx context.Context, limit, offset int) ([]*model.Course, int, error) {
	limit, offset = ClampPage(limit, offset)

	items, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update обновляет курс целиком. Если обложка заменена, прежний объект
// удаляется из хранилища (best-effort) после успешного обновления.
func (s *CourseService) Update(ctx context.Context, id string, in CourseInput) (*model.Course, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}
	prevKey := c.FileKey
	in.apply(c)

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, mapRepoError(err)
	}

	s.logger.Info("Курс обновлён", slog.String("course_id", id))

	if prevKey != c.FileKey {
		s.removeCover(ctx, id, prevKey)
	}
	return c, nil
}

// Delete удаляет курс, затем (best-effort) его обложку из хранилища.
// Ошибка удаления объекта логируется и не возвращается.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err)
	}

	s.logger.Info("Курс удалён", slog.String("course_id", id))

	s.removeCover(ctx, id, c.FileKey)
	return nil
}

// removeCover удаляет обложку курса. Ошибка логируется и не возвращается.
func (s *CourseService) removeCover(ctx context.Context, courseID, key string) {
	if key == "" {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil && !errors.Is(err, objectstore.ErrObjectNotFound) {
		s.logger.Warn("Не удалось удалить обложку курса",
			slog.String("course_id", courseID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// mapRepoError переводит ошибки репозитория в ошибки сервиса.
func mapRepoError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: курс не найден", ErrNotFound)
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: slug уже используется", ErrConflict)
	case errors.Is(err, repository.ErrConstraint):
		return fmt.Errorf("%w: %v", ErrValidation, err)
	default:
		return err
	}
}
