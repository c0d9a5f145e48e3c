// validation.go — валидация входных данных через go-playground/validator.
// Ошибки формируются с JSON-именами полей.
package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/bigkaa/lms/internal/domain/model"
)

// Пользовательские теги валидации.
const (
	notBlankTag     = "notblank"
	safeFileNameTag = "safe_filename"
	categoryTag     = "course_category"
	slugTag         = "slug"
)

// newValidator создаёт validator с JSON-именами полей и пользовательскими тегами.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(notBlankTag, notBlankValidation)
	_ = v.RegisterValidation(safeFileNameTag, safeFileNameValidation)
	_ = v.RegisterValidation(categoryTag, categoryValidation)
	_ = v.RegisterValidation(slugTag, slugValidation)

	return v
}

func notBlankValidation(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// safeFileNameValidation — имя файла без разделителей пути и управляющих символов.
func safeFileNameValidation(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "." || name == ".." {
		return false
	}
	for _, r := range name {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return false
		}
	}
	return true
}

func categoryValidation(fl validator.FieldLevel) bool {
	return model.IsValidCategory(fl.Field().String())
}

// slugValidation — строчные латинские буквы, цифры и одиночные дефисы.
func slugValidation(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || s[0] == '-' || s[len(s)-1] == '-' || strings.Contains(s, "--") {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '-' {
			return false
		}
	}
	return true
}

// validationError превращает ошибку validator в ErrValidation с читаемым сообщением.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", notBlankTag:
		return field + ": обязательное поле"
	case "min", "gte":
		return fmt.Sprintf("%s: значение должно быть не меньше %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s: значение должно быть не больше %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: допустимые значения — %s", field, fe.Param())
	case safeFileNameTag:
		return field + ": недопустимые символы в имени файла"
	case categoryTag:
		return field + ": неизвестная категория"
	case slugTag:
		return field + ": slug может содержать только a-z, 0-9 и дефисы"
	default:
		return fmt.Sprintf("%s: не прошло проверку %s", field, fe.Tag())
	}
}
