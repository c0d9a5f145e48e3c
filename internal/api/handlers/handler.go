// handler.go — основной обработчик API LMS.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/lms/internal/api/errors"
	"github.com/bigkaa/lms/internal/service"
)

// maxBodyBytes — предел размера JSON-тела запроса.
const maxBodyBytes = 1 << 20

// APIHandler — основной обработчик API LMS.
type APIHandler struct {
	uploads *service.UploadService
	courses *service.CourseService
	logger  *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(uploads *service.UploadService, courses *service.CourseService, logger *slog.Logger) *APIHandler {
	return &APIHandler{
		uploads: uploads,
		courses: courses,
		logger:  logger.With(slog.String("component", "api_handler")),
	}
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON читает JSON-тело запроса в dst.
// Ошибка разбора сразу отвечает 400 и возвращает false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			apierrors.ValidationError(w, "Пустое тело запроса")
			return false
		}
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// handleServiceError переводит ошибку сервисного слоя в HTTP-ответ.
func (h *APIHandler) handleServiceError(w http.ResponseWriter, err error) {
	msg := errorMessage(err)
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, msg)
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, msg)
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, msg)
	case errors.Is(err, service.ErrStorage):
		apierrors.StorageError(w, msg)
	default:
		h.logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// errorMessage убирает префикс sentinel-ошибки: "некорректные данные: fileName: ..." → "fileName: ...".
func errorMessage(err error) string {
	s := err.Error()
	if _, rest, ok := strings.Cut(s, ": "); ok && rest != "" {
		return rest
	}
	return s
}
