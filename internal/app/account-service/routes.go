// Package accountservice предоставляет маршруты для основного приложения.
package accountservice

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/account-service/internal/apperror"
	"github.com/magabrotheeeer/account-service/internal/cache"
	"github.com/magabrotheeeer/account-service/internal/entity"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/account/changepassword"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/account/deleteaccount"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/account/profile"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/account/senddeletecode"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/account/updatename"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/forgotpassword"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/resendresetcode"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/resendverification"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/resetpassword"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/verifyemail"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/auth/verifyresetcode"
	"github.com/magabrotheeeer/account-service/internal/http/handlers/crudfactory"
	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/http/validation"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/password"
	"github.com/magabrotheeeer/account-service/internal/models"
	accountservices "github.com/magabrotheeeer/account-service/internal/services/account"
	authservices "github.com/magabrotheeeer/account-service/internal/services/auth"
	crudservices "github.com/magabrotheeeer/account-service/internal/services/crud"
	"github.com/magabrotheeeer/account-service/internal/storage/repository"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, db *repository.Storage, cacheRedis *cache.Cache, jwtMaker jwt.Maker, authService *authservices.AuthService, accountService *accountservices.AccountService) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	usersFactory := crudfactory.New(
		crudservices.NewCrudService(models.UserDescriptor, db, cacheRedis, logger),
		crudfactory.Options{
			ExcludedData: crudfactory.ExcludedData{
				Create: []string{"wishlist"},
				Update: []string{"password", "email", "wishlist"},
			},
			ExcludeValidation: []string{"email", "phone", "wishlist"},
			CreateValidators: []validation.Rule{
				{Field: "email", Tag: "required,email"},
				{Field: "email", Custom: uniqueEmail(db), Optional: true},
			},
			TransformCreate: hashPassword,
		},
		logger)

	productsFactory := crudfactory.New(
		crudservices.NewCrudService(models.ProductDescriptor, db, cacheRedis, logger),
		crudfactory.Options{},
		logger)

	// Жесткий лимит на вход и выпуск кодов затрудняет перебор.
	bruteForceLimit := middlewarectx.RateLimitMiddleware(rate.Limit(1), 5, logger)
	generalLimit := middlewarectx.RateLimitMiddleware(rate.Limit(10), 20, logger)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(bruteForceLimit)
			r.Post("/auth/register", register.New(logger, authService).ServeHTTP)
			r.Post("/auth/login", login.New(logger, authService).ServeHTTP)
			r.Post("/auth/verify-email", verifyemail.New(logger, authService).ServeHTTP)
			r.Post("/auth/resend-verification-code", resendverification.New(logger, authService).ServeHTTP)
			r.Post("/auth/forgot-password", forgotpassword.New(logger, authService).ServeHTTP)
			r.Post("/auth/resend-reset-code", resendresetcode.New(logger, authService).ServeHTTP)
			r.Post("/auth/verify-reset-code", verifyresetcode.New(logger, authService).ServeHTTP)
			r.Post("/auth/reset-password", resetpassword.New(logger, authService).ServeHTTP)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, db, logger))
			r.Use(generalLimit)
			r.Get("/users/me", profile.New(logger, accountService).ServeHTTP)
			r.Patch("/users/me", updatename.New(logger, accountService).ServeHTTP)
			r.Patch("/users/me/change-password", changepassword.New(logger, accountService).ServeHTTP)
			r.Post("/users/me/send-delete-code", senddeletecode.New(logger, accountService).ServeHTTP)
			r.Delete("/users/me", deleteaccount.New(logger, accountService).ServeHTTP)
		})

		// Административный доступ к коллекциям
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(jwtMaker, db, logger, "admin"))
			usersFactory.Routes(r, "/users")
			productsFactory.Routes(r, "/products")
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}

// uniqueEmail кастомное правило: почта не должна быть занята.
func uniqueEmail(db *repository.Storage) validation.CustomFunc {
	return func(ctx context.Context, _ entity.Record, value any) error {
		email, ok := value.(string)
		if !ok {
			return apperror.New(apperror.KindBadRequest, "field email is not a valid")
		}
		count, err := db.CountUsersByEmail(ctx, email)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperror.New(apperror.KindBadRequest, "email is already in use")
		}
		return nil
	}
}

// hashPassword заменяет пароль в теле запроса на его хэш перед сохранением.
func hashPassword(_ context.Context, body entity.Record) error {
	raw, ok := body["password"].(string)
	if !ok || raw == "" {
		return nil
	}
	hash, err := password.GetHash(raw)
	if err != nil {
		return err
	}
	body["password"] = hash
	return nil
}
