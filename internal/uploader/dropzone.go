// dropzone.go — ограничения drop-зоны и классификация отказов.
package uploader

import (
	"fmt"
	"path"
	"strings"
)

// Коды отказов drop-зоны.
const (
	CodeFileTooLarge    = "file-too-large"
	CodeFileTooSmall    = "file-too-small"
	CodeTooManyFiles    = "too-many-files"
	CodeFileInvalidType = "file-invalid-type"
)

// DefaultMaxSize — максимальный размер файла (5 MiB).
const DefaultMaxSize int64 = 5 * 1024 * 1024

// Constraints — ограничения, применяемые к файлам до запроса учётных данных.
type Constraints struct {
	MaxFiles int
	MaxSize  int64
	MinSize  int64
	// Accept — список MIME-шаблонов ("image/*", "image/png").
	Accept []string
}

// DefaultConstraints — один файл изображения от 1 байта до 5 MiB.
func DefaultConstraints() Constraints {
	return Constraints{
		MaxFiles: 1,
		MaxSize:  DefaultMaxSize,
		MinSize:  1,
		Accept:   []string{"image/*"},
	}
}

// RejectionError — одна причина отказа.
type RejectionError struct {
	Code    string
	Message string
}

// FileRejection — отклонённый файл со всеми причинами.
type FileRejection struct {
	File   File
	Errors []RejectionError
}

// Evaluate делит файлы на принятые и отклонённые.
// Если файлов больше MaxFiles, отклоняются все: каждый получает
// too-many-files в дополнение к собственным причинам.
func (c Constraints) Evaluate(files []File) ([]File, []FileRejection) {
	tooMany := c.MaxFiles > 0 && len(files) > c.MaxFiles

	var accepted []File
	var rejected []FileRejection
	for _, f := range files {
		errs := c.check(f)
		if tooMany {
			errs = append(errs, RejectionError{
				Code:    CodeTooManyFiles,
				Message: "Слишком много файлов",
			})
		}
		if len(errs) > 0 {
			rejected = append(rejected, FileRejection{File: f, Errors: errs})
			continue
		}
		accepted = append(accepted, f)
	}
	return accepted, rejected
}

// check проверяет тип и размер одного файла.
func (c Constraints) check(f File) []RejectionError {
	var errs []RejectionError
	if !c.accepts(f.ContentType) {
		errs = append(errs, RejectionError{
			Code:    CodeFileInvalidType,
			Message: fmt.Sprintf("Тип файла должен быть одним из: %s", strings.Join(c.Accept, ", ")),
		})
	}
	if c.MaxSize > 0 && f.Size > c.MaxSize {
		errs = append(errs, RejectionError{
			Code:    CodeFileTooLarge,
			Message: fmt.Sprintf("Файл больше %d байт", c.MaxSize),
		})
	}
	if c.MinSize > 0 && f.Size < c.MinSize {
		errs = append(errs, RejectionError{
			Code:    CodeFileTooSmall,
			Message: fmt.Sprintf("Файл меньше %d байт", c.MinSize),
		})
	}
	return errs
}

// accepts сопоставляет MIME-тип с шаблонами Accept. Пустой Accept пропускает всё.
func (c Constraints) accepts(contentType string) bool {
	if len(c.Accept) == 0 {
		return true
	}
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	if ct == "" {
		return false
	}
	for _, pattern := range c.Accept {
		if ok, _ := path.Match(strings.ToLower(pattern), ct); ok {
			return true
		}
	}
	return false
}

// Category — категория отказа для пользовательского уведомления.
type Category int

const (
	CategoryUnclassified Category = iota
	CategoryTooLarge
	CategoryTooManyFiles
)

func (c Category) String() string {
	switch c {
	case CategoryTooLarge:
		return "too_large"
	case CategoryTooManyFiles:
		return "too_many_files"
	default:
		return "unclassified"
	}
}

// Classify сводит отказы к одной категории.
// Размер проверяется раньше количества: при наличии обоих кодов — TooLarge.
func Classify(rejections []FileRejection) Category {
	var tooLarge, tooMany bool
	for _, r := range rejections {
		for _, e := range r.Errors {
			switch e.Code {
			case CodeFileTooLarge:
				tooLarge = true
			case CodeTooManyFiles:
				tooMany = true
			}
		}
	}
	switch {
	case tooLarge:
		return CategoryTooLarge
	case tooMany:
		return CategoryTooManyFiles
	default:
		return CategoryUnclassified
	}
}
