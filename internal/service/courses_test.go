package service

import (
	"context"
	"errors"
	"testing"
)

func validCourseInput(slug string) CourseInput {
	return CourseInput{
		Title:            "Основы Go",
		Description:      "Курс для начинающих",
		SmallDescription: "Go с нуля",
		FileKey:          "0b6f-cover.png",
		Price:            intPtr(0),
		Duration:         10,
		Level:            "BEGINNER",
		Category:         "Development",
		Slug:             slug,
		Status:           "DRAFT",
	}
}

func TestCourseService_CreateAndGet(t *testing.T) {
	repo := newFakeCourseRepo()
	svc := NewCourseService(repo, &fakeStore{}, testLogger())
	ctx := context.Background()

	c, err := svc.Create(ctx, "user-1", validCourseInput("go-basics"))
	if err != nil {
		t.Fatalf("Create() ошибка: %v", err)
	}
	if c.ID == "" || c.UserID != "user-1" || c.Price != 0 {
		t.Errorf("Create() = %+v", c)
	}

	got, err := svc.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get() ошибка: %v", err)
	}
	if got.Slug != "go-basics" {
		t.Errorf("Slug = %q", got.Slug)
	}

	if _, err := svc.Create(ctx, "user-2", validCourseInput("go-basics")); !errors.Is(err, ErrConflict) {
		t.Errorf("дубликат slug: ожидалась ErrConflict, получено %v", err)
	}
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing): ожидалась ErrNotFound, получено %v", err)
	}
}

func TestCourseService_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *CourseInput)
	}{
		{"короткий title", func(in *CourseInput) { in.Title = "Go" }},
		{"нет цены", func(in *CourseInput) { in.Price = nil }},
		{"отрицательная цена", func(in *CourseInput) { in.Price = intPtr(-1) }},
		{"нулевая длительность", func(in *CourseInput) { in.Duration = 0 }},
		{"неизвестный уровень", func(in *CourseInput) { in.Level = "EXPERT" }},
		{"неизвестная категория", func(in *CourseInput) { in.Category = "Cooking" }},
		{"slug с заглавными", func(in *CourseInput) { in.Slug = "Go-Basics" }},
		{"slug с двойным дефисом", func(in *CourseInput) { in.Slug = "go--basics" }},
		{"нет обложки", func(in *CourseInput) { in.FileKey = "" }},
		{"неизвестный статус", func(in *CourseInput) { in.Status = "HIDDEN" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewCourseService(newFakeCourseRepo(), &fakeStore{}, testLogger())
			in := validCourseInput("go-basics")
			tt.mutate(&in)
			if _, err := svc.Create(context.Background(), "u", in); !errors.Is(err, ErrValidation) {
				t.Errorf("ожидалась ErrValidation, получено %v", err)
			}
		})
	}
}

func TestCourseService_ListPagination(t *testing.T) {
	repo := newFakeCourseRepo()
	svc := NewCourseService(repo, &fakeStore{}, testLogger())
	ctx := context.Background()

	for _, slug := range []string{"first", "second", "third"} {
		if _, err := svc.Create(ctx, "u", validCourseInput(slug)); err != nil {
			t.Fatal(err)
		}
	}

	items, total, err := svc.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if total != 3 || len(items) != 2 {
		t.Fatalf("List(2,0): total=%d, len=%d", total, len(items))
	}
	if items[0].Slug != "third" {
		t.Errorf("первым должен быть новейший курс, получен %q", items[0].Slug)
	}

	items, _, _ = svc.List(ctx, 0, -10)
	if len(items) != 3 {
		t.Errorf("List(0,-10) с limit по умолчанию вернул %d", len(items))
	}
}

func TestCourseService_Update(t *testing.T) {
	repo := newFakeCourseRepo()
	svc := NewCourseService(repo, &fakeStore{}, testLogger())
	ctx := context.Background()

	c, _ := svc.Create(ctx, "u", validCourseInput("go-basics"))
	_, _ = svc.Create(ctx, "u", validCourseInput("go-advanced"))

	in := validCourseInput("go-basics")
	in.Title = "Основы Go, второе издание"
	in.Status = "PUBLISHED"
	updated, err := svc.Update(ctx, c.ID, in)
	if err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	if updated.Title != in.Title || updated.Status != "PUBLISHED" || updated.UserID != "u" {
		t.Errorf("Update() = %+v", updated)
	}

	in.Slug = "go-advanced"
	if _, err := svc.Update(ctx, c.ID, in); !errors.Is(err, ErrConflict) {
		t.Errorf("занятый slug: ожидалась ErrConflict, получено %v", err)
	}
	if _, err := svc.Update(ctx, "missing", validCourseInput("zzz")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing): ожидалась ErrNotFound, получено %v", err)
	}
}

func TestCourseService_UpdateReplacesCover(t *testing.T) {
	repo := newFakeCourseRepo()
	store := &fakeStore{}
	svc := NewCourseService(repo, store, testLogger())
	ctx := context.Background()

	c, _ := svc.Create(ctx, "u", validCourseInput("go-basics"))

	// Та же обложка — хранилище не трогается.
	if _, err := svc.Update(ctx, c.ID, validCourseInput("go-basics")); err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	if len(store.deleted) != 0 {
		t.Fatalf("обложка не менялась, удалены %v", store.deleted)
	}

	in := validCourseInput("go-basics")
	in.FileKey = "7c1d-new-cover.png"
	updated, err := svc.Update(ctx, c.ID, in)
	if err != nil {
		t.Fatalf("Update() ошибка: %v", err)
	}
	if updated.FileKey != "7c1d-new-cover.png" {
		t.Errorf("FileKey = %q", updated.FileKey)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "0b6f-cover.png" {
		t.Errorf("удалённые объекты = %v, ожидался [0b6f-cover.png]", store.deleted)
	}
}

func TestCourseService_UpdateConflictKeepsCover(t *testing.T) {
	repo := newFakeCourseRepo()
	store := &fakeStore{}
	svc := NewCourseService(repo, store, testLogger())
	ctx := context.Background()

	c, _ := svc.Create(ctx, "u", validCourseInput("go-basics"))
	_, _ = svc.Create(ctx, "u", validCourseInput("go-advanced"))

	in := validCourseInput("go-advanced")
	in.FileKey = "7c1d-new-cover.png"
	if _, err := svc.Update(ctx, c.ID, in); !errors.Is(err, ErrConflict) {
		t.Fatalf("ожидалась ErrConflict, получено %v", err)
	}
	if len(store.deleted) != 0 {
		t.Errorf("при неудачном обновлении обложка не удаляется, удалены %v", store.deleted)
	}
}

func TestCourseService_DeleteRemovesCover(t *testing.T) {
	repo := newFakeCourseRepo()
	store := &fakeStore{}
	svc := NewCourseService(repo, store, testLogger())
	ctx := context.Background()

	c, _ := svc.Create(ctx, "u", validCourseInput("go-basics"))

	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete() ошибка: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "0b6f-cover.png" {
		t.Errorf("удалённые объекты = %v, ожидался [0b6f-cover.png]", store.deleted)
	}
	if err := svc.Delete(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторный Delete: ожидалась ErrNotFound, получено %v", err)
	}
}

func TestCourseService_DeleteIgnoresStorageFailure(t *testing.T) {
	store := &fakeStore{deleteErr: errBoom}
	svc := NewCourseService(newFakeCourseRepo(), store, testLogger())
	ctx := context.Background()

	c, _ := svc.Create(ctx, "u", validCourseInput("go-basics"))
	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Errorf("сбой удаления обложки не должен возвращаться, получено %v", err)
	}
}
