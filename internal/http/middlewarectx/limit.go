package middlewarectx

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/account-service/internal/http/response"
)

// RateLimitMiddleware возвращает middleware, ограничивающее частоту запросов.
// Для маршрутов входа и выпуска кодов используется жесткий лимит, который
// затрудняет перебор паролей и кодов подтверждения.
func RateLimitMiddleware(limit rate.Limit, burst int, log *slog.Logger) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(limit, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				log.Error("too many requests", slog.String("path", r.URL.Path))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.Fail(http.StatusTooManyRequests, "TOO_MANY_REQUESTS", "too many requests, please try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
