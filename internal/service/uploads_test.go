package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/lms/internal/objectstore"
)

const testMaxSize = 5 * 1024 * 1024

func newTestUploadService(store *fakeStore) *UploadService {
	return NewUploadService(store, 360*time.Second, testMaxSize, testLogger())
}

func validUploadInput() IssueUploadInput {
	return IssueUploadInput{
		FileName: "cover.jpg",
		FileType: "image/jpeg",
		FileSize: 2 * 1000 * 1000,
		IsImage:  boolPtr(true),
	}
}

func TestIssueUpload_Success(t *testing.T) {
	store := &fakeStore{}
	svc := newTestUploadService(store)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	grant, err := svc.IssueUpload(context.Background(), validUploadInput())
	if err != nil {
		t.Fatalf("IssueUpload() ошибка: %v", err)
	}

	if !strings.HasSuffix(grant.Key, "-cover.jpg") || len(grant.Key) != 36+len("-cover.jpg") {
		t.Errorf("Key = %q, ожидается <uuid>-cover.jpg", grant.Key)
	}
	if !strings.Contains(grant.PresignedURL, grant.Key) {
		t.Errorf("PresignedURL %q не содержит ключ", grant.PresignedURL)
	}
	if !grant.ExpiresAt.Equal(fixed.Add(360 * time.Second)) {
		t.Errorf("ExpiresAt = %s", grant.ExpiresAt)
	}

	if len(store.presigned) != 1 {
		t.Fatalf("ожидался 1 вызов PresignPut, получено %d", len(store.presigned))
	}
	req := store.presigned[0]
	if req.ContentType != "image/jpeg" || req.Size != 2*1000*1000 || req.TTL != 360*time.Second || req.Key != grant.Key {
		t.Errorf("PutRequest = %+v", req)
	}
}

func TestIssueUpload_UniqueKeys(t *testing.T) {
	svc := newTestUploadService(&fakeStore{})
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		g, err := svc.IssueUpload(context.Background(), validUploadInput())
		if err != nil {
			t.Fatal(err)
		}
		if seen[g.Key] {
			t.Fatalf("повторный ключ %q", g.Key)
		}
		seen[g.Key] = true
	}
}

func TestIssueUpload_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *IssueUploadInput)
	}{
		{"нет имени", func(in *IssueUploadInput) { in.FileName = "" }},
		{"имя из пробелов", func(in *IssueUploadInput) { in.FileName = "   " }},
		{"путь в имени", func(in *IssueUploadInput) { in.FileName = "../etc/passwd" }},
		{"нет типа", func(in *IssueUploadInput) { in.FileType = "" }},
		{"нулевой размер", func(in *IssueUploadInput) { in.FileSize = 0 }},
		{"отрицательный размер", func(in *IssueUploadInput) { in.FileSize = -5 }},
		{"нет isImage", func(in *IssueUploadInput) { in.IsImage = nil }},
		{"слишком большой", func(in *IssueUploadInput) { in.FileSize = testMaxSize + 1 }},
		{"не изображение", func(in *IssueUploadInput) { in.FileType = "application/pdf" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			svc := newTestUploadService(store)
			in := validUploadInput()
			tt.mutate(&in)

			_, err := svc.IssueUpload(context.Background(), in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("ожидалась ErrValidation, получено %v", err)
			}
			if len(store.presigned) != 0 {
				t.Error("при ошибке валидации URL не должен подписываться")
			}
		})
	}
}

func TestIssueUpload_NonImageAllowedWhenNotImage(t *testing.T) {
	svc := newTestUploadService(&fakeStore{})
	in := validUploadInput()
	in.FileType = "application/pdf"
	in.IsImage = boolPtr(false)

	if _, err := svc.IssueUpload(context.Background(), in); err != nil {
		t.Errorf("PDF с isImage=false должен приниматься, ошибка: %v", err)
	}
}

func TestIssueUpload_ValidationMessageUsesJSONNames(t *testing.T) {
	svc := newTestUploadService(&fakeStore{})
	_, err := svc.IssueUpload(context.Background(), IssueUploadInput{})
	if err == nil {
		t.Fatal("ожидалась ошибка")
	}
	for _, field := range []string{"fileName", "fileType", "fileSize", "isImage"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("сообщение %q не упоминает %s", err.Error(), field)
		}
	}
}

func TestIssueUpload_StorageError(t *testing.T) {
	svc := newTestUploadService(&fakeStore{presignErr: errBoom})
	_, err := svc.IssueUpload(context.Background(), validUploadInput())
	if !errors.Is(err, ErrStorage) {
		t.Errorf("ожидалась ErrStorage, получено %v", err)
	}
}

func TestDeleteObject(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		storeErr  error
		wantErr   error
		wantCalls int
	}{
		{"успех", "abc-cover.jpg", nil, nil, 1},
		{"уже удалён", "abc-cover.jpg", fmt.Errorf("%w: abc-cover.jpg", objectstore.ErrObjectNotFound), nil, 1},
		{"сбой хранилища", "abc-cover.jpg", errBoom, ErrStorage, 1},
		{"пустой ключ", "", nil, ErrValidation, 0},
		{"ключ из пробелов", "  ", nil, ErrValidation, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{deleteErr: tt.storeErr}
			svc := newTestUploadService(store)

			err := svc.DeleteObject(context.Background(), DeleteObjectInput{Key: tt.key})
			if tt.wantErr == nil && err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("ожидалась %v, получено %v", tt.wantErr, err)
			}
			if len(store.deleted) != tt.wantCalls {
				t.Errorf("вызовов Delete = %d, ожидалось %d", len(store.deleted), tt.wantCalls)
			}
		})
	}
}
