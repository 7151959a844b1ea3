// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Все ответы имеют вид
// {success, data, error, code, message}, ошибки приложения переводятся
// в HTTP-статус по их виду (apperr.Kind).
package response

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/harvest-tracker/internal/lib/apperr"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse: структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Success bool   `json:"success" example:"false"`
	Error   string `json:"error" example:"request not found"`
	Code    string `json:"code" example:"REQUEST_NOT_FOUND"`
	Message string `json:"message,omitempty"`
}

const internalMessage = "internal server error"

// OK возвращает успешный Response с переданными данными.
func OK(data any) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// OKWithMessage возвращает успешный Response с данными и сообщением.
func OKWithMessage(data any, msg string) Response {
	return Response{
		Success: true,
		Data:    data,
		Message: msg,
	}
}

// Error возвращает Response с ошибкой и её кодом.
func Error(msg, code string) Response {
	return Response{
		Error: msg,
		Code:  code,
	}
}

// ValidationError формирует Response на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters", err.Field(), err.Param()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters", err.Field(), err.Param()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), strings.ReplaceAll(err.Param(), " ", ", ")))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return Response{
		Error: strings.Join(errsMsgs, ", "),
		Code:  apperr.CodeValidation,
	}
}

type detailKey struct{}

// WithDetail возвращает middleware, который разрешает или запрещает отдавать
// клиенту текст внутренних ошибок.
func WithDetail(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), detailKey{}, enabled)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detailEnabled(ctx context.Context) bool {
	v, _ := ctx.Value(detailKey{}).(bool)
	return v
}

// Fail пишет ответ с ошибкой. Статус выбирается по виду ошибки, ошибки
// валидатора превращаются в 400, неизвестные ошибки в 500. Текст внутренних
// ошибок скрыт, если он не разрешён через WithDetail.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := failure(err, detailEnabled(r.Context()))
	render.Status(r, status)
	render.JSON(w, r, body)
}

func failure(err error, detail bool) (int, Response) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return http.StatusBadRequest, ValidationError(verrs)
	}

	e, ok := apperr.As(err)
	if !ok {
		body := Error(internalMessage, apperr.CodeInternal)
		if detail {
			body.Message = err.Error()
		}
		return http.StatusInternalServerError, body
	}

	if e.Kind == apperr.KindUpstream || e.Kind == apperr.KindConfiguration {
		body := Error(e.Message, e.Code)
		if detail {
			body.Message = err.Error()
		}
		return e.Kind.HTTPStatus(), body
	}
	return e.Kind.HTTPStatus(), Error(e.Message, e.Code)
}
