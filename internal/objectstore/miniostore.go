// miniostore.go — драйвер хранилища на minio-go.
package objectstore

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore — Store поверх minio-go.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore создаёт драйвер для MinIO endpoint (host:port без схемы).
func NewMinioStore(cfg Config) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("создание minio клиента: %w", err)
	}
	return &MinioStore{client: client, bucket: cfg.Bucket}, nil
}

// Bucket возвращает имя bucket.
func (s *MinioStore) Bucket() string { return s.bucket }

// Ping проверяет, что bucket существует и доступен.
func (s *MinioStore) Ping(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("minio bucket exists %s: %w", s.bucket, err)
	}
	if !ok {
		return fmt.Errorf("bucket %s не существует", s.bucket)
	}
	return nil
}

// PresignPut подписывает PUT на ключ. Content-Type и Content-Length входят
// в подпись: загрузка с другим типом или размером отклоняется хранилищем.
func (s *MinioStore) PresignPut(ctx context.Context, req PutRequest) (string, error) {
	headers := http.Header{}
	headers.Set("Content-Type", req.ContentType)
	if req.Size > 0 {
		headers.Set("Content-Length", strconv.FormatInt(req.Size, 10))
	}

	u, err := s.client.PresignHeader(ctx, http.MethodPut, s.bucket, req.Key, req.TTL, nil, headers)
	if err != nil {
		return "", fmt.Errorf("minio presign put %s: %w", req.Key, err)
	}
	return u.String(), nil
}

// Delete удаляет объект из bucket.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return fmt.Errorf("minio delete %s: %w", key, err)
	}
	return nil
}
