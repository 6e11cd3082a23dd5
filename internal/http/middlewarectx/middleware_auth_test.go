package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// MockUserProvider реализует интерфейс UserProvider
type MockUserProvider struct {
	mock.Mock
}

func (m *MockUserProvider) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestJWTMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	maker := jwt.NewJWTMaker("test-secret", time.Hour)

	validToken, err := maker.GenerateToken("u1", "user")
	assert.NoError(t, err)

	passwordChangedLater := time.Now().UTC().Add(time.Hour)

	tests := []struct {
		name           string
		authHeader     string
		roles          []string
		setupMock      func(*MockUserProvider)
		expectedStatus int
		expectNext     bool
	}{
		{
			name:       "валидный токен пропускается",
			authHeader: "Bearer " + validToken,
			setupMock: func(users *MockUserProvider) {
				users.On("GetUserByID", mock.Anything, "u1").Return(&models.User{
					ID:            "u1",
					Role:          "user",
					EmailVerified: true,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectNext:     true,
		},
		{
			name:           "нет заголовка Authorization",
			authHeader:     "",
			setupMock:      func(_ *MockUserProvider) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "мусор вместо токена",
			authHeader:     "Bearer not.a.token",
			setupMock:      func(_ *MockUserProvider) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:       "пользователь токена удален",
			authHeader: "Bearer " + validToken,
			setupMock: func(users *MockUserProvider) {
				users.On("GetUserByID", mock.Anything, "u1").Return(nil, context.DeadlineExceeded)
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:       "пароль сменен после выдачи токена",
			authHeader: "Bearer " + validToken,
			setupMock: func(users *MockUserProvider) {
				users.On("GetUserByID", mock.Anything, "u1").Return(&models.User{
					ID:                "u1",
					Role:              "user",
					EmailVerified:     true,
					PasswordChangedAt: &passwordChangedLater,
				}, nil)
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:       "почта не подтверждена",
			authHeader: "Bearer " + validToken,
			setupMock: func(users *MockUserProvider) {
				users.On("GetUserByID", mock.Anything, "u1").Return(&models.User{
					ID:   "u1",
					Role: "user",
				}, nil)
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:       "недостаточная роль",
			authHeader: "Bearer " + validToken,
			roles:      []string{"admin"},
			setupMock: func(users *MockUserProvider) {
				users.On("GetUserByID", mock.Anything, "u1").Return(&models.User{
					ID:            "u1",
					Role:          "user",
					EmailVerified: true,
				}, nil)
			},
			expectedStatus: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserProvider)
			tt.setupMock(users)

			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				userID, ok := UserIDFromContext(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "u1", userID)
				w.WriteHeader(http.StatusOK)
			})

			handler := JWTMiddleware(maker, users, logger, tt.roles...)(next)

			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectNext, nextCalled)
		})
	}
}
