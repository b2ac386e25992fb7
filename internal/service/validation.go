// validation.go — проверка полей фильма через go-playground/validator.
package service

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/bigkaa/moviecatalog/internal/domain/model"
)

// fieldMessages — текст ошибки для пары «поле, правило».
var fieldMessages = map[string]map[string]string{
	"title": {
		"notblank": "Название обязательно и не может быть пустым.",
		"max":      "Название не должно превышать 100 символов.",
	},
	"rating": {
		"gte": "Оценка должна быть от 1 до 5.",
		"lte": "Оценка должна быть от 1 до 5.",
	},
	"description": {
		"notblank": "Описание обязательно и не может быть пустым.",
		"max":      "Описание не должно превышать 500 символов.",
	},
	"category": {
		"notblank": "Категория обязательна и не может быть пустой.",
	},
}

// MovieValidator проверяет фильмы по правилам, заданным тегами validate.
type MovieValidator struct {
	v *validator.Validate
}

// NewMovieValidator создаёт валидатор с правилом notblank и именами полей из json-тегов.
func NewMovieValidator() *MovieValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Ошибка возможна только при пустом имени тега.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &MovieValidator{v: v}
}

// Validate возвращает nil для корректного фильма, иначе ValidationErrors.
// На каждое поле приходится не более одного сообщения.
func (mv *MovieValidator) Validate(m *model.Movie) error {
	err := mv.v.Struct(m)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	result := make(ValidationErrors, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		if _, seen := result[field]; seen {
			continue
		}
		msg, ok := fieldMessages[field][fe.Tag()]
		if !ok {
			msg = "Некорректное значение."
		}
		result[field] = msg
	}
	return result
}
