// Package request разбирает входящие HTTP-запросы: JSON-тело с валидацией
// по тегам validate и числовые параметры пути.
package request

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
)

const maxBodyBytes = 1 << 20

// NewValidator создаёт валидатор, который называет поля по их JSON-именам.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeJSON читает тело запроса в dst и проверяет его валидатором.
// Возвращает apperr-ошибку валидации для некорректного JSON и
// validator.ValidationErrors для нарушенных тегов.
func DecodeJSON(w http.ResponseWriter, r *http.Request, validate *validator.Validate, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

// ID возвращает положительный целочисленный параметр пути name.
func ID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.Validation(name + " must be a positive integer")
	}
	return id, nil
}
