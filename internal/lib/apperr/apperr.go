// Package apperr описывает таксономию ошибок приложения.
//
// Каждая ошибка имеет вид (Kind), по которому HTTP-слой выбирает код ответа,
// и стабильный машиночитаемый код (Code), который клиент может использовать
// для ветвления логики. Сервисы оборачивают ошибки через fmt.Errorf("%s: %w", op, err),
// а обработчики восстанавливают вид через errors.As.
package apperr

import (
	"errors"
	"net/http"
)

// Kind определяет категорию ошибки.
type Kind int

const (
	// KindValidation: некорректные или отсутствующие входные данные.
	KindValidation Kind = iota + 1
	// KindAuthentication: отсутствующий, невалидный или просроченный токен.
	KindAuthentication
	// KindAuthorization: недостаточно прав или чужая запись.
	KindAuthorization
	// KindNotFound: запись не найдена.
	KindNotFound
	// KindConflict: дубликат или конфликт состояния.
	KindConflict
	// KindUpstream: сбой базы данных или внешней платформы.
	KindUpstream
	// KindConfiguration: отсутствует обязательная настройка.
	KindConfiguration
)

// String возвращает имя вида ошибки.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUpstream:
		return "upstream"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// HTTPStatus возвращает HTTP-статус для вида ошибки.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Error: типизированная ошибка приложения.
type Error struct {
	Kind    Kind   // Категория ошибки
	Code    string // Машиночитаемый код, например DUPLICATE_REQUEST
	Message string // Человекочитаемое описание
}

func (e *Error) Error() string {
	return e.Message
}

// Is сравнивает ошибки по коду, поэтому New(KindValidation, CodeValidation, "...")
// совпадает с ErrValidation через errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New создаёт ошибку с заданным видом, кодом и сообщением.
func New(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

// Validation создаёт ошибку валидации с кодом VALIDATION_ERROR.
func Validation(msg string) *Error {
	return New(KindValidation, CodeValidation, msg)
}

// As извлекает *Error из цепочки ошибок.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf возвращает вид ошибки или KindUpstream для неизвестных ошибок.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUpstream
}

// Коды ошибок.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeAuthRequired       = "AUTH_REQUIRED"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenMalformed     = "INVALID_TOKEN"
	CodeTokenNotYetValid   = "TOKEN_NOT_ACTIVE"
	CodeUserInactive       = "USER_INACTIVE"
	CodeAdminRequired      = "ADMIN_ACCESS_DENIED"
	CodeAccessDenied       = "ACCESS_DENIED"
	CodeNotFound           = "NOT_FOUND"
	CodeRequestNotFound    = "REQUEST_NOT_FOUND"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeVegetableNotFound  = "VEGETABLE_NOT_FOUND"
	CodeInvalidVegetable   = "INVALID_VEGETABLE"
	CodeDuplicateRequest   = "DUPLICATE_REQUEST"
	CodeDuplicateVegetable = "DUPLICATE_VEGETABLE"
	CodeDuplicateUser      = "USER_EXISTS"
	CodeVegetableInUse     = "VEGETABLE_IN_USE"
	CodeImmutableState     = "STATUS_MODIFICATION_DENIED"
	CodeInvalidTransition  = "INVALID_STATUS_TRANSITION"
	CodeUnsupportedFormat  = "UNSUPPORTED_FORMAT"
	CodeInvalidSignature   = "INVALID_SIGNATURE"
	CodeInvalidState       = "INVALID_STATE"
	CodeDelivery           = "DELIVERY_FAILED"
	CodeDatabase           = "DATABASE_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
	CodeConfiguration      = "CONFIGURATION_ERROR"
	CodeTooManyRequests    = "RATE_LIMITED"
	CodeNoRecipients       = "NO_RECIPIENTS"
)

// Сентинельные ошибки.
var (
	ErrValidation         = Validation("validation failed")
	ErrMissingCredentials = New(KindAuthentication, CodeAuthRequired, "authentication required")
	ErrExpiredToken       = New(KindAuthentication, CodeTokenExpired, "token has expired")
	ErrMalformedToken     = New(KindAuthentication, CodeTokenMalformed, "invalid token")
	ErrNotYetValid        = New(KindAuthentication, CodeTokenNotYetValid, "token not active")
	ErrInvalidState       = New(KindAuthentication, CodeInvalidState, "invalid or expired oauth state")
	ErrInactiveAccount    = New(KindAuthorization, CodeUserInactive, "user account is not active")
	ErrInsufficientRole   = New(KindAuthorization, CodeAdminRequired, "admin access required")
	ErrForbidden          = New(KindAuthorization, CodeAccessDenied, "access denied, you can only modify your own requests")
	ErrNotFound           = New(KindNotFound, CodeNotFound, "not found")
	ErrRequestNotFound    = New(KindNotFound, CodeRequestNotFound, "request not found")
	ErrUserNotFound       = New(KindNotFound, CodeUserNotFound, "user not found")
	ErrVegetableNotFound  = New(KindNotFound, CodeVegetableNotFound, "vegetable not found")
	ErrNoRecipients       = New(KindNotFound, CodeNoRecipients, "no recipients for reminder")
	ErrUnknownVegetable   = New(KindValidation, CodeInvalidVegetable, "invalid vegetable item, please select from registered vegetables")
	ErrImmutableState     = New(KindValidation, CodeImmutableState, "only pending requests can be modified")
	ErrInvalidTransition  = New(KindValidation, CodeInvalidTransition, "invalid status transition")
	ErrUnsupportedFormat  = New(KindValidation, CodeUnsupportedFormat, "unsupported report format, supported formats: csv")
	ErrDuplicateRequest   = New(KindConflict, CodeDuplicateRequest, "a request with the same fields already exists")
	ErrDuplicateVegetable = New(KindConflict, CodeDuplicateVegetable, "a vegetable with this name already exists")
	ErrDuplicateUser      = New(KindConflict, CodeDuplicateUser, "a user with this LINE ID already exists")
	ErrVegetableInUse     = New(KindConflict, CodeVegetableInUse, "cannot delete vegetable: it is being used in harvest requests")
	ErrDelivery           = New(KindUpstream, CodeDelivery, "failed to deliver message")
	ErrDatabase           = New(KindUpstream, CodeDatabase, "database error")
	ErrConfiguration      = New(KindConfiguration, CodeConfiguration, "missing required configuration")
)
