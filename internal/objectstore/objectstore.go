// Пакет objectstore — доступ к S3-совместимому объектному хранилищу:
// выдача pre-signed URL на запись одного объекта и удаление объекта.
// Драйверы: aws-sdk-go-v2 (S3Store) и minio-go (MinioStore).
package objectstore

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound — объект отсутствует в хранилище.
var ErrObjectNotFound = errors.New("объект не найден")

// PutRequest — параметры pre-signed URL на запись.
type PutRequest struct {
	Key         string
	ContentType string
	Size        int64
	TTL         time.Duration
}

// Store — объектное хранилище изображений курсов.
type Store interface {
	// PresignPut возвращает URL для прямой загрузки объекта методом PUT.
	PresignPut(ctx context.Context, req PutRequest) (string, error)
	// Delete удаляет объект. Отсутствующий объект — ErrObjectNotFound,
	// если бэкенд умеет это сообщать.
	Delete(ctx context.Context, key string) error
	// Bucket возвращает имя bucket.
	Bucket() string
	// Ping проверяет доступность bucket.
	Ping(ctx context.Context) error
}

// Config — параметры подключения к хранилищу.
type Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
}
