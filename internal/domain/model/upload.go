package model

import "time"

// UploadRequest — запрос на выдачу учётных данных для прямой загрузки.
type UploadRequest struct {
	FileName    string
	ContentType string
	Size        int64
	IsImage     bool
}

// UploadGrant — выданные учётные данные: pre-signed URL для PUT
// и ключ, под которым объект окажется в хранилище.
type UploadGrant struct {
	PresignedURL string
	Key          string
	ExpiresAt    time.Time
}
