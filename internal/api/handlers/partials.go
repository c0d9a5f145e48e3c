// partials.go — HTML-фрагменты загрузчика для страниц администратора.
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	apierrors "github.com/bigkaa/lms/internal/api/errors"
	"github.com/bigkaa/lms/internal/render"
	"github.com/bigkaa/lms/internal/uploader"
)

// UploaderPartial обрабатывает GET /admin/partials/uploader — фрагмент
// загрузчика для указанного состояния.
// Параметры: phase, progress, preview, key, file, error, drag.
func (h *APIHandler) UploaderPartial(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	phase := uploader.PhaseEmpty
	if s := q.Get("phase"); s != "" {
		p, err := uploader.ParsePhase(s)
		if err != nil {
			apierrors.ValidationError(w, "phase: допустимые значения empty, uploading, success, error, deleting")
			return
		}
		phase = p
	}

	progress := 0
	if s := q.Get("progress"); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil || p < 0 || p > 100 {
			apierrors.ValidationError(w, "progress: целое число от 0 до 100")
			return
		}
		progress = p
	}

	view := render.View{
		Phase:        phase,
		Progress:     progress,
		PreviewURL:   q.Get("preview"),
		Key:          q.Get("key"),
		FileName:     q.Get("file"),
		DragActive:   q.Get("drag") == "true",
		ErrorMessage: q.Get("error"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.HTML(view).Render(r.Context(), w); err != nil {
		h.logger.Error("Ошибка рендеринга фрагмента загрузчика",
			slog.String("error", err.Error()),
		)
	}
}
