// Package senddeletecode реализует HTTP-обработчик выпуска кода
// подтверждения удаления аккаунта.
package senddeletecode

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/account-service/internal/apperror"
	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
)

// Service описывает интерфейс бизнес-логики выпуска кода удаления.
type Service interface {
	SendDeleteAccountCode(ctx context.Context, userID string) error
}

// Handler управляет HTTP-запросами на выпуск кода удаления.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Запросить код удаления аккаунта
// @Description Отправляет одноразовый код подтверждения удаления на почту. Код действует 10 минут.
// @Tags Account
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Код отправлен"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Не удалось отправить письмо"
// @Router /users/me/send-delete-code [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.account.senddeletecode"

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

	if err := h.service.SendDeleteAccountCode(r.Context(), userID); err != nil {
		log.Error("failed to send delete-account code", sl.Err(err))
		response.Err(w, r, err)
		return
	}
	log.Info("delete-account code sent", slog.String("user_id", userID))

	response.Write(w, r, response.OK("verification code sent to your email", nil))
}
