// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound — фильм не найден.
	ErrNotFound = errors.New("фильм не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
)

// ValidationErrors — ошибки валидации в виде «поле → сообщение».
// errors.Is(err, ErrValidation) истинно для любого значения этого типа.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is связывает ValidationErrors с ErrValidation.
func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}
