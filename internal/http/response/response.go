// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Каждый ответ сервера, в
// том числе ошибка, заворачивается в единый конверт.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/apperror"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status — текстовый статус запроса ("success" или код ошибки).
// Поле Result — данные ответа, null при ошибке.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
	Result     any    `json:"result"`
}

// StatusSuccess значение статуса для успешного ответа.
const StatusSuccess = "success"

// ErrorResponse структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode" example:"400"`
	Status     string `json:"status" example:"BAD_REQUEST"`
	Message    string `json:"message" example:"invalid request body"`
	Timestamp  string `json:"timestamp" example:"2025-01-01T00:00:00Z"`
	Result     any    `json:"result"`
}

// Success формирует успешный конверт с данными и сообщением.
func Success(statusCode int, message string, result any) Response {
	return Response{
		StatusCode: statusCode,
		Status:     StatusSuccess,
		Message:    message,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Result:     result,
	}
}

// OK возвращает успешный конверт со статусом 200.
func OK(message string, result any) Response {
	return Success(http.StatusOK, message, result)
}

// Created возвращает успешный конверт со статусом 201.
func Created(message string, result any) Response {
	return Success(http.StatusCreated, message, result)
}

// Fail формирует конверт ошибки с произвольным статусом.
func Fail(statusCode int, status, message string) Response {
	return Response{
		StatusCode: statusCode,
		Status:     status,
		Message:    message,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Result:     nil,
	}
}

// Error формирует конверт ошибки для произвольного вида и сообщения.
func Error(kind apperror.Kind, message string) Response {
	return Fail(apperror.HTTPStatus(kind), string(kind), message)
}

// ValidationErrors формирует конверт ошибки на основе списка нарушений
// валидации. Каждое нарушение формируется в человеко‑читаемый текст,
// объединённый через запятую.
func ValidationErrors(msgs []string) Response {
	return Response{
		StatusCode: http.StatusUnprocessableEntity,
		Status:     "VALIDATION_ERROR",
		Message:    strings.Join(msgs, ", "),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Result:     nil,
	}
}

// ValidationError формирует конверт ошибки на основе ошибок валидации
// структуры запроса. Каждое нарушение переводится в человеко‑читаемый текст.
func ValidationError(errs validator.ValidationErrors) Response {
	var msgs []string
	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid email address", err.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("field %s must be at least %s characters long", err.Field(), err.Param()))
		case "len":
			msgs = append(msgs, fmt.Sprintf("field %s must be exactly %s characters long", err.Field(), err.Param()))
		case "numeric":
			msgs = append(msgs, fmt.Sprintf("field %s can contain only numbers", err.Field()))
		case "uuid":
			msgs = append(msgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return ValidationErrors(msgs)
}

// Err переводит ошибку сервиса в конверт и пишет его вместе с HTTP статусом.
func Err(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperror.KindOf(err)
	msg := "internal server error"
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	render.Status(r, apperror.HTTPStatus(kind))
	render.JSON(w, r, Error(kind, msg))
}

// Write пишет успешный конверт вместе с HTTP статусом из него.
func Write(w http.ResponseWriter, r *http.Request, resp Response) {
	render.Status(r, resp.StatusCode)
	render.JSON(w, r, resp)
}
