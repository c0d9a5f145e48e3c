package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"github.com/bigkaa/lms/internal/domain/model"
	"github.com/bigkaa/lms/internal/objectstore"
	"github.com/bigkaa/lms/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func boolPtr(b bool) *bool { return &b }

func intPtr(n int) *int { return &n }

// fakeStore — in-memory objectstore.Store.
type fakeStore struct {
	mu         sync.Mutex
	presigned  []objectstore.PutRequest
	deleted    []string
	presignErr error
	deleteErr  error
}

func (f *fakeStore) PresignPut(_ context.Context, req objectstore.PutRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.presignErr != nil {
		return "", f.presignErr
	}
	f.presigned = append(f.presigned, req)
	return "https://storage.test/course-images/" + req.Key + "?X-Amz-Signature=sig", nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return f.deleteErr
}

func (f *fakeStore) Bucket() string { return "course-images" }

func (f *fakeStore) Ping(context.Context) error { return nil }

// fakeCourseRepo — in-memory repository.CourseRepository.
type fakeCourseRepo struct {
	mu      sync.Mutex
	courses map[string]*model.Course
	order   []string
}

func newFakeCourseRepo() *fakeCourseRepo {
	return &fakeCourseRepo{courses: make(map[string]*model.Course)}
}

func (r *fakeCourseRepo) slugTaken(slug, exceptID string) bool {
	for id, c := range r.courses {
		if c.Slug == slug && id != exceptID {
			return true
		}
	}
	return false
}

func (r *fakeCourseRepo) Create(_ context.Context, c *model.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slugTaken(c.Slug, "") {
		return repository.ErrConflict
	}
	cp := *c
	r.courses[c.ID] = &cp
	r.order = append([]string{c.ID}, r.order...)
	return nil
}

func (r *fakeCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCourseRepo) List(_ context.Context, limit, offset int) ([]*model.Course, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Course
	for i := offset; i < len(r.order) && len(out) < limit; i++ {
		cp := *r.courses[r.order[i]]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeCourseRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.courses), nil
}

func (r *fakeCourseRepo) Update(_ context.Context, c *model.Course) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[c.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.slugTaken(c.Slug, c.ID) {
		return repository.ErrConflict
	}
	cp := *c
	r.courses[c.ID] = &cp
	return nil
}

func (r *fakeCourseRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.courses[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.courses, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

var errBoom = errors.New("boom")
