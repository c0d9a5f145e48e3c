// uploads.go — Upload-Request Issuer и Object Deletion Handler.
// Маршруты защищены цепочкой: JWT → rate limit → роль admin → контракт.
package handlers

import (
	"net/http"
	"time"

	"github.com/bigkaa/lms/internal/service"
)

// uploadResponse — ответ на выдачу учётных данных.
type uploadResponse struct {
	PreSignedURL string    `json:"preSignedUrl"`
	Key          string    `json:"key"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// messageResponse — ответ с сообщением.
type messageResponse struct {
	Message string `json:"message"`
}

// IssueUpload — POST /api/v1/s3/upload.
func (h *APIHandler) IssueUpload(w http.ResponseWriter, r *http.Request) {
	var in service.IssueUploadInput
	if !decodeJSON(w, r, &in) {
		return
	}

	grant, err := h.uploads.IssueUpload(r.Context(), in)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		PreSignedURL: grant.PresignedURL,
		Key:          grant.Key,
		ExpiresAt:    grant.ExpiresAt.UTC(),
	})
}

// DeleteObject — DELETE /api/v1/s3/delete.
func (h *APIHandler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	var in service.DeleteObjectInput
	if !decodeJSON(w, r, &in) {
		return
	}

	if err := h.uploads.DeleteObject(r.Context(), in); err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Файл удалён"})
}
