// Package apperror определяет типизированные ошибки бизнес-уровня.
//
// Каждая ошибка несет вид (Kind) и сообщение, пригодное для показа клиенту.
// Сервисы возвращают такие ошибки наверх, а слой HTTP переводит их
// в статус-код и стандартный конверт ответа.
package apperror

import (
	"errors"
	"net/http"
)

// Kind вид ошибки бизнес-уровня.
type Kind string

const (
	// KindNotFound запрошенная запись отсутствует.
	KindNotFound Kind = "NOT_FOUND"
	// KindBadRequest запрос противоречит текущему состоянию или содержит некорректные данные.
	KindBadRequest Kind = "BAD_REQUEST"
	// KindUnauthorized отказ в аутентификации, в том числе неверный или просроченный код.
	KindUnauthorized Kind = "UNAUTHORIZED"
	// KindForbidden действие запрещено для данного пользователя.
	KindForbidden Kind = "FORBIDDEN"
	// KindInternal внутренняя ошибка сервиса.
	KindInternal Kind = "INTERNAL_SERVER_ERROR"
)

// Error типизированная ошибка с видом и стабильным сообщением для клиента.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New создает ошибку заданного вида.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap создает ошибку заданного вида, сохраняя исходную причину.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf возвращает вид ошибки. Нетипизированные ошибки считаются внутренними.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// HTTPStatus переводит вид ошибки в HTTP статус-код.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
