// Package resetpassword реализует HTTP-обработчик установки нового пароля
// после подтверждения кода сброса. В ответ возвращается свежий JWT.
package resetpassword

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

// Request входные данные для установки нового пароля.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Service описывает интерфейс бизнес-логики установки нового пароля.
type Service interface {
	ResetPassword(ctx context.Context, email, password string) (string, error)
}

// Handler управляет HTTP-запросами на установку нового пароля.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Установить новый пароль
// @Description Завершает сброс пароля после подтверждения кода. Старые токены перестают действовать.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Почта и новый пароль"
// @Success 200 {object} response.Response "Пароль обновлен, выдан новый токен"
// @Failure 401 {object} response.ErrorResponse "Код сброса не подтвержден"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /auth/reset-password [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.resetpassword"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Fail(http.StatusBadRequest, "BAD_REQUEST", "invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	token, err := h.service.ResetPassword(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Error("password reset failed", sl.Err(err))
		response.Err(w, r, err)
		return
	}
	log.Info("password reset completed", slog.String("email", req.Email))

	response.Write(w, r, response.OK("password reset successfully", map[string]any{
		"token": token,
	}))
}
