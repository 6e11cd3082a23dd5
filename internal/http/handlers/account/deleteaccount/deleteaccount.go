// Package deleteaccount реализует HTTP-обработчик удаления аккаунта.
// Подтверждение кода и само удаление совмещены в одном запросе: клиент
// передает почту, пароль и код из письма.
package deleteaccount

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/apperror"
	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

// Request входные данные для удаления аккаунта.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
}

// Service описывает интерфейс бизнес-логики удаления аккаунта.
type Service interface {
	DeleteAccount(ctx context.Context, userID, email, password, code string) error
}

// Handler управляет HTTP-запросами на удаление аккаунта.
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
// @Summary Удалить аккаунт
// @Description Удаляет аккаунт после проверки почты, пароля и кода подтверждения из письма.
// @Tags Account
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Почта, пароль и код из письма"
// @Success 200 {object} response.Response "Аккаунт удален"
// @Failure 400 {object} response.ErrorResponse "Код отсутствует, просрочен или неверен"
// @Failure 401 {object} response.ErrorResponse "Почта или пароль не совпадают"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /users/me [delete]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.deleteaccount"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userID, ok := middlewarectx.UserIDFromContext(r.Context())
	if !ok {
		log.Error("missing user id in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error(apperror.KindUnauthorized, "unauthorized"))
		return
	}

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

	if err := h.service.DeleteAccount(r.Context(), userID, req.Email, req.Password, req.Code); err != nil {
		log.Error("failed to delete account", sl.Err(err))
		response.Err(w, r, err)
		return
	}
	log.Info("account deleted", slog.String("user_id", userID))

	response.Write(w, r, response.OK("account deleted successfully", nil))
}
