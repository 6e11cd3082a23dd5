package middlewarectx

import "context"

// UserIDFromContext возвращает идентификатор аутентифицированного
// пользователя, положенный в контекст JWTMiddleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(UserID).(string)
	return id, ok
}

// RoleFromContext возвращает роль аутентифицированного пользователя.
func RoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(Role).(string)
	return role, ok
}
