package objectstore

import (
	"context"
	"fmt"
	"time"
)

// ReadinessChecker — проверка доступности хранилища для /health/ready.
type ReadinessChecker struct {
	store   Store
	timeout time.Duration
}

// NewReadinessChecker создаёт checker с таймаутом одной проверки.
func NewReadinessChecker(store Store, timeout time.Duration) *ReadinessChecker {
	return &ReadinessChecker{store: store, timeout: timeout}
}

// CheckReady проверяет bucket.
func (c *ReadinessChecker) CheckReady() (status, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("хранилище недоступно: %v", err)
	}
	return "ok", fmt.Sprintf("bucket %s доступен", c.store.Bucket())
}
