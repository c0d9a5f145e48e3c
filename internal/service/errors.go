// errors.go — классы ошибок сервисного слоя. Обработчики HTTP выбирают
// статус по errors.Is: ErrValidation → 400, ErrNotFound → 404,
// ErrConflict → 409, ErrStorage → 500 STORAGE_ERROR.
package service

import "errors"

var (
	ErrValidation = errors.New("некорректные данные")
	ErrNotFound   = errors.New("не найдено")
	ErrConflict   = errors.New("конфликт")
	ErrStorage    = errors.New("сбой объектного хранилища")
)
