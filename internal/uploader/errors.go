package uploader

import (
	"errors"
	"fmt"
	"time"
)

// Виды ошибок. Вызывающий код различает причину через errors.Is.
var (
	// ErrValidation — API отклонил метаданные файла (400).
	ErrValidation = errors.New("некорректные данные файла")
	// ErrUnauthorized — нет аутентификации (401).
	ErrUnauthorized = errors.New("требуется аутентификация")
	// ErrForbidden — нет прав или доступ запрещён (403).
	ErrForbidden = errors.New("доступ запрещён")
	// ErrRateLimited — превышен лимит запросов (429).
	ErrRateLimited = errors.New("превышен лимит запросов")
	// ErrTransfer — сетевой сбой или не-2xx ответ хранилища.
	ErrTransfer = errors.New("ошибка передачи")
	// ErrStorage — сбой на стороне API при работе с хранилищем (5xx).
	ErrStorage = errors.New("ошибка хранилища")

	// ErrDisposed — машина уже освобождена.
	ErrDisposed = errors.New("загрузчик освобождён")
	// ErrDropDisabled — в текущей фазе приём файлов отключён.
	ErrDropDisabled = errors.New("приём файлов отключён")
	// ErrNotRemovable — удаление возможно только в фазе success.
	ErrNotRemovable = errors.New("удаление недоступно в текущей фазе")
	// ErrInvalidPhase — операция не применима к текущей фазе.
	ErrInvalidPhase = errors.New("операция недоступна в текущей фазе")
	// ErrRejected — файл не прошёл ограничения drop-зоны.
	ErrRejected = errors.New("файл отклонён")
)

// StatusError — ответ API или хранилища с HTTP-статусом.
// Unwrap возвращает вид ошибки (ErrValidation, ErrForbidden, ...).
type StatusError struct {
	Status     int
	Code       string
	Message    string
	RetryAfter time.Duration
	kind       error
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v (HTTP %d): %s", e.kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%v (HTTP %d)", e.kind, e.Status)
}

func (e *StatusError) Unwrap() error { return e.kind }

// kindForStatus сопоставляет HTTP-статус виду ошибки.
func kindForStatus(status int) error {
	switch {
	case status == 400:
		return ErrValidation
	case status == 401:
		return ErrUnauthorized
	case status == 403:
		return ErrForbidden
	case status == 429:
		return ErrRateLimited
	case status >= 500:
		return ErrStorage
	default:
		return ErrTransfer
	}
}

// isDenial — отказ до выдачи учётных данных: вложение откатывается в Empty.
func isDenial(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrValidation)
}
