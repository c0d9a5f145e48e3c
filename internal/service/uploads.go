// uploads.go — выдача учётных данных для прямой загрузки в хранилище
// и удаление объектов по ключу.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/lms/internal/domain/model"
	"github.com/bigkaa/lms/internal/objectstore"
)

// Prometheus-метрики операций с объектами.
var (
	credentialsIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lms_upload_credentials_issued_total",
		Help: "Количество выданных pre-signed URL на загрузку.",
	})
	objectsDeletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lms_objects_deleted_total",
		Help: "Удаления объектов по результату (deleted, absent, error).",
	}, []string{"result"})
)

// IssueUploadInput — метаданные файла для выдачи учётных данных.
type IssueUploadInput struct {
	FileName string `json:"fileName" validate:"required,notblank,max=255,safe_filename"`
	FileType string `json:"fileType" validate:"required,notblank,max=255"`
	FileSize int64  `json:"fileSize" validate:"required,min=1"`
	IsImage  *bool  `json:"isImage" validate:"required"`
}

// DeleteObjectInput — запрос на удаление объекта.
type DeleteObjectInput struct {
	Key string `json:"key" validate:"required,notblank,max=1024"`
}

// UploadService — Upload-Request Issuer и Object Deletion Handler.
type UploadService struct {
	store    objectstore.Store
	validate *validator.Validate
	ttl      time.Duration
	maxSize  int64
	logger   *slog.Logger
	now      func() time.Time
}

// NewUploadService создаёт сервис загрузок.
// ttl — срок действия pre-signed URL, maxSize — потолок размера файла.
func NewUploadService(store objectstore.Store, ttl time.Duration, maxSize int64, logger *slog.Logger) *UploadService {
	return &UploadService{
		store:    store,
		validate: newValidator(),
		ttl:      ttl,
		maxSize:  maxSize,
		logger:   logger.With(slog.String("component", "upload_service")),
		now:      time.Now,
	}
}

// IssueUpload валидирует метаданные и выдаёт pre-signed URL
// на запись ровно одного объекта с новым ключом "<uuid>-<fileName>".
func (s *UploadService) IssueUpload(ctx context.Context, in IssueUploadInput) (*model.UploadGrant, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	if in.FileSize > s.maxSize {
		return nil, fmt.Errorf("%w: fileSize: размер %d превышает максимум %d байт", ErrValidation, in.FileSize, s.maxSize)
	}
	if *in.IsImage && !strings.HasPrefix(strings.ToLower(in.FileType), "image/") {
		return nil, fmt.Errorf("%w: fileType: ожидается изображение, получен %q", ErrValidation, in.FileType)
	}

	key := uuid.NewString() + "-" + in.FileName

	url, err := s.store.PresignPut(ctx, objectstore.PutRequest{
		Key:         key,
		ContentType: in.FileType,
		Size:        in.FileSize,
		TTL:         s.ttl,
	})
	if err != nil {
		s.logger.Error("Ошибка подписи URL загрузки",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: не удалось сформировать URL загрузки", ErrStorage)
	}

	credentialsIssuedTotal.Inc()
	s.logger.Info("Выдан URL загрузки",
		slog.String("key", key),
		slog.String("content_type", in.FileType),
		slog.Int64("size", in.FileSize),
	)

	return &model.UploadGrant{
		PresignedURL: url,
		Key:          key,
		ExpiresAt:    s.now().Add(s.ttl),
	}, nil
}

// DeleteObject удаляет объект по ключу. Отсутствующий объект — успех.
func (s *UploadService) DeleteObject(ctx context.Context, in DeleteObjectInput) error {
	if err := s.validate.Struct(in); err != nil {
		return validationError(err)
	}

	err := s.store.Delete(ctx, in.Key)
	switch {
	case err == nil:
		objectsDeletedTotal.WithLabelValues("deleted").Inc()
		s.logger.Info("Объект удалён", slog.String("key", in.Key))
		return nil
	case errors.Is(err, objectstore.ErrObjectNotFound):
		objectsDeletedTotal.WithLabelValues("absent").Inc()
		s.logger.Info("Объект уже отсутствует", slog.String("key", in.Key))
		return nil
	default:
		objectsDeletedTotal.WithLabelValues("error").Inc()
		s.logger.Error("Ошибка удаления объекта",
			slog.String("key", in.Key),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: не удалось удалить объект", ErrStorage)
	}
}
