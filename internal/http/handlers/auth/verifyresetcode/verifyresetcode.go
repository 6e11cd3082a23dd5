// Package verifyresetcode реализует HTTP-обработчик проверки кода сброса
// пароля. Успешная проверка открывает шаг установки нового пароля.
package verifyresetcode

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

// Request входные данные для проверки кода сброса.
type Request struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// Service описывает интерфейс бизнес-логики проверки кода сброса.
type Service interface {
	VerifyResetCode(ctx context.Context, email, code string) error
}

// Handler управляет HTTP-запросами на проверку кода сброса.
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
// @Summary Проверить код сброса пароля
// @Description Проверяет одноразовый код и разрешает установку нового пароля. Код принимается один раз.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Почта и код из письма"
// @Success 200 {object} response.Response "Код подтвержден"
// @Failure 401 {object} response.ErrorResponse "Неверный или просроченный код"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /auth/verify-reset-code [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.verifyresetcode"

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

	if err := h.service.VerifyResetCode(r.Context(), req.Email, req.Code); err != nil {
		log.Error("reset code verification failed", sl.Err(err))
		response.Err(w, r, err)
		return
	}
	log.Info("reset code verified", slog.String("email", req.Email))

	response.Write(w, r, response.OK("reset code verified, you can set a new password now", nil))
}
