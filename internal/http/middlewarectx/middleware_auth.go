// Package middlewarectx содержит HTTP middleware для обработки и проверки JWT токенов.
//
// JWTMiddleware проверяет наличие и валидность JWT токена в заголовке Authorization,
// загружает пользователя из хранилища и в случае успеха добавляет в контекст
// идентификатор пользователя и роль для дальнейшего использования в обработчиках.
//
// В случае ошибки проверки возвращает HTTP 401 Unauthorized с сообщением об ошибке.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/account-service/internal/apperror"
	"github.com/magabrotheeeer/account-service/internal/http/response"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserID ключ для идентификатора пользователя в контексте.
	UserID Key = "user_id"
	// Role ключ для роли пользователя в контексте.
	Role Key = "role"
)

// UserProvider описывает интерфейс загрузки пользователя по идентификатору.
type UserProvider interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// JWTMiddleware возвращает HTTP middleware, который проверяет JWT в заголовке Authorization.
//
// Токен разбирается локально, после чего пользователь загружается из
// хранилища: токены, выданные до последней смены пароля, отклоняются.
// Если указан список ролей, роль пользователя должна входить в него.
func JWTMiddleware(maker jwt.Maker, users UserProvider, log *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(apperror.KindUnauthorized, "missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := maker.ParseToken(tokenStr)
			if err != nil {
				log.Error("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(apperror.KindUnauthorized, "invalid or expired token"))
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.UserID)
			if err != nil {
				log.Error("token user not found", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(apperror.KindUnauthorized, "user belonging to this token no longer exists"))
				return
			}

			if user.PasswordChangedAt != nil && claims.IssuedAt != nil &&
				user.PasswordChangedAt.After(claims.IssuedAt.Time) {
				log.Error("token issued before password change")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error(apperror.KindUnauthorized, "password was changed recently, please login again"))
				return
			}

			if !user.EmailVerified {
				log.Error("email is not verified")
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error(apperror.KindForbidden, "please verify your email address"))
				return
			}

			if len(roles) > 0 && !containsRole(roles, user.Role) {
				log.Error("insufficient role", slog.String("role", user.Role))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error(apperror.KindForbidden, "you do not have permission to perform this action"))
				return
			}

			ctx := context.WithValue(r.Context(), UserID, user.ID)
			ctx = context.WithValue(ctx, Role, user.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func containsRole(roles []string, role string) bool {
	for _, allowed := range roles {
		if allowed == role {
			return true
		}
	}
	return false
}
