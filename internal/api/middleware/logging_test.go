package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/api/v1/courses/{course_id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"не найдено","code":"NOT_FOUND"}`))
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if buf.Len() != 0 {
		t.Fatalf("успешная проба записана на уровне INFO: %s", buf.String())
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/courses/42", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("запись журнала не JSON: %v: %s", err, buf.String())
	}
	checks := map[string]any{
		"level":  "WARN",
		"path":   "/api/v1/courses/42",
		"route":  "/api/v1/courses/{course_id}",
		"status": float64(http.StatusNotFound),
	}
	for k, want := range checks {
		if entry[k] != want {
			t.Errorf("%s = %v, ожидается %v", k, entry[k], want)
		}
	}
	if entry["bytes"].(float64) == 0 {
		t.Error("bytes = 0, ожидается размер тела ответа")
	}
}
