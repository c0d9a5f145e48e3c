// courses.go — обработчики каталога курсов (только admin).
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/lms/internal/api/errors"
	"github.com/bigkaa/lms/internal/api/middleware"
	"github.com/bigkaa/lms/internal/domain/model"
	"github.com/bigkaa/lms/internal/service"
)

// courseResponse — JSON-представление курса.
type courseResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	SmallDescription string    `json:"smallDescription"`
	FileKey          string    `json:"fileKey"`
	Price            int       `json:"price"`
	Duration         int       `json:"duration"`
	Level            string    `json:"level"`
	Category         string    `json:"category"`
	Slug             string    `json:"slug"`
	Status           string    `json:"status"`
	UserID           string    `json:"userId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// courseListResponse — страница курсов.
type courseListResponse struct {
	Items  []courseResponse `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

func courseToResponse(c *model.Course) courseResponse {
	return courseResponse{
		ID:               c.ID,
		Title:            c.Title,
		Description:      c.Description,
		SmallDescription: c.SmallDescription,
		FileKey:          c.FileKey,
		Price:            c.Price,
		Duration:         c.Duration,
		Level:            string(c.Level),
		Category:         c.Category,
		Slug:             c.Slug,
		Status:           string(c.Status),
		UserID:           c.UserID,
		CreatedAt:        c.CreatedAt.UTC(),
		UpdatedAt:        c.UpdatedAt.UTC(),
	}
}

// bindCourseID извлекает и проверяет path-параметр course_id.
func bindCourseID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var raw string
	err := runtime.BindStyledParameterWithOptions("simple", "course_id", chi.URLParam(r, "course_id"), &raw,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр course_id: "+err.Error())
		return "", false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		apierrors.ValidationError(w, "course_id должен быть UUID")
		return "", false
	}
	return id.String(), true
}

// ListCourses — GET /api/v1/courses?limit&offset.
func (h *APIHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	var limit, offset *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		apierrors.ValidationError(w, "Некорректный параметр limit: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "offset", r.URL.Query(), &offset); err != nil {
		apierrors.ValidationError(w, "Некорректный параметр offset: "+err.Error())
		return
	}

	l, o := service.DefaultPageLimit, 0
	if limit != nil {
		l = *limit
	}
	if offset != nil {
		o = *offset
	}
	l, o = service.ClampPage(l, o)

	items, total, err := h.courses.List(r.Context(), l, o)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	resp := courseListResponse{
		Items:  make([]courseResponse, 0, len(items)),
		Total:  total,
		Limit:  l,
		Offset: o,
	}
	for _, c := range items {
		resp.Items = append(resp.Items, courseToResponse(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateCourse — POST /api/v1/courses.
func (h *APIHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var in service.CourseInput
	if !decodeJSON(w, r, &in) {
		return
	}

	c, err := h.courses.Create(r.Context(), middleware.SubjectFromContext(r.Context()), in)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, courseToResponse(c))
}

// GetCourse — GET /api/v1/courses/{course_id}.
func (h *APIHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := bindCourseID(w, r)
	if !ok {
		return
	}

	c, err := h.courses.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courseToResponse(c))
}

// UpdateCourse — PUT /api/v1/courses/{course_id}.
func (h *APIHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := bindCourseID(w, r)
	if !ok {
		return
	}
	var in service.CourseInput
	if !decodeJSON(w, r, &in) {
		return
	}

	c, err := h.courses.Update(r.Context(), id, in)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courseToResponse(c))
}

// DeleteCourse — DELETE /api/v1/courses/{course_id}.
func (h *APIHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	id, ok := bindCourseID(w, r)
	if !ok {
		return
	}

	if err := h.courses.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
