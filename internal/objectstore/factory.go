package objectstore

import (
	"context"
	"fmt"
)

// Драйверы хранилища.
const (
	DriverS3    = "s3"
	DriverMinio = "minio"
)

// New создаёт Store для указанного драйвера.
func New(ctx context.Context, driver string, cfg Config) (Store, error) {
	switch driver {
	case DriverS3:
		return NewS3Store(ctx, cfg)
	case DriverMinio:
		return NewMinioStore(cfg)
	default:
		return nil, fmt.Errorf("неизвестный драйвер хранилища %q", driver)
	}
}
