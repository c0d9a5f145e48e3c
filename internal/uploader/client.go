// client.go — HTTP-клиент LMS API для выдачи учётных данных и удаления объектов.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// FileMeta — метаданные файла в запросе учётных данных.
type FileMeta struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
	IsImage  bool   `json:"isImage"`
}

// Credential — выданный pre-signed URL и ключ объекта.
type Credential struct {
	URL       string    `json:"preSignedUrl"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Issuer выдаёт учётные данные на запись одного объекта.
type Issuer interface {
	RequestUpload(ctx context.Context, meta FileMeta) (Credential, error)
}

// Deleter удаляет объект по ключу.
type Deleter interface {
	DeleteObject(ctx context.Context, key string) error
}

// TokenProvider возвращает Bearer-токен для запросов к API.
type TokenProvider func(ctx context.Context) (string, error)

// StaticToken — TokenProvider с фиксированным токеном.
func StaticToken(token string) TokenProvider {
	return func(context.Context) (string, error) { return token, nil }
}

// APIClient — клиент эндпоинтов /api/v1/s3/*.
type APIClient struct {
	baseURL       string
	httpClient    *http.Client
	tokenProvider TokenProvider
	logger        *slog.Logger
}

// NewAPIClient создаёт клиент.
// baseURL — адрес LMS API (например, https://lms.example.com).
// tokenProvider == nil — запросы без Authorization.
func NewAPIClient(baseURL string, timeout time.Duration, tokenProvider TokenProvider, logger *slog.Logger) *APIClient {
	return &APIClient{
		baseURL: normalizeURL(baseURL),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
			},
		},
		tokenProvider: tokenProvider,
		logger:        logger.With(slog.String("component", "lms_api_client")),
	}
}

// RequestUpload запрашивает pre-signed URL.
// POST {baseURL}/api/v1/s3/upload
func (c *APIClient) RequestUpload(ctx context.Context, meta FileMeta) (Credential, error) {
	var cred Credential
	if err := c.do(ctx, http.MethodPost, "/api/v1/s3/upload", meta, &cred); err != nil {
		return Credential{}, err
	}
	if cred.URL == "" || cred.Key == "" {
		return Credential{}, fmt.Errorf("%w: ответ без preSignedUrl или key", ErrTransfer)
	}
	return cred, nil
}

// DeleteObject удаляет объект.
// DELETE {baseURL}/api/v1/s3/delete
func (c *APIClient) DeleteObject(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/s3/delete", map[string]string{"key": key}, nil)
}

// do выполняет JSON-запрос и разбирает ответ. out == nil — тело успешного ответа игнорируется.
func (c *APIClient) do(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("сериализация запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("создание запроса %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.tokenProvider != nil {
		token, err := c.tokenProvider(ctx)
		if err != nil {
			return fmt.Errorf("%w: получение токена: %v", ErrUnauthorized, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req) //nolint:gosec // baseURL из конфигурации
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransfer, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp)
		c.logger.Debug("API вернул ошибку",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("code", apiErr.Code),
		)
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: разбор ответа %s: %v", ErrTransfer, path, err)
	}
	return nil
}

// decodeError разбирает тело {"error": "...", "code": "..."}.
func decodeError(resp *http.Response) *StatusError {
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&body)

	e := &StatusError{
		Status:  resp.StatusCode,
		Code:    body.Code,
		Message: body.Error,
		kind:    kindForStatus(resp.StatusCode),
	}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			e.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return e
}

// normalizeURL убирает завершающий "/".
func normalizeURL(u string) string {
	return strings.TrimRight(u, "/")
}
