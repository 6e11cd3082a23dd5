package services_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/account-service/internal/apperror"
	"github.com/magabrotheeeer/account-service/internal/lib/password"
	"github.com/magabrotheeeer/account-service/internal/lib/verifycode"
	"github.com/magabrotheeeer/account-service/internal/models"
	services "github.com/magabrotheeeer/account-service/internal/services/account"
)

// MockUserRepository реализует интерфейс services.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	args := m.Called(ctx, id, passwordHash, changedAt)
	return args.Error(0)
}

func (m *MockUserRepository) SetDeleteAccountCode(ctx context.Context, id, codeHash string, expires time.Time) error {
	args := m.Called(ctx, id, codeHash, expires)
	return args.Error(0)
}

func (m *MockUserRepository) ClearDeleteAccountCode(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserRepository) DeleteUser(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) UpdateName(ctx context.Context, id, name, slug string) (*models.User, error) {
	args := m.Called(ctx, id, name, slug)
	if res := args.Get(0); res != nil {
		return res.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockSender реализует интерфейс services.Sender
type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, to, subject, html string) error {
	args := m.Called(ctx, to, subject, html)
	return args.Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestDeleteAccount(t *testing.T) {
	hash, err := password.GetHash("secret123")
	assert.NoError(t, err)

	codeHash := verifycode.Hash("123456")
	valid := time.Now().UTC().Add(5 * time.Minute)
	expired := time.Now().UTC().Add(-time.Minute)

	baseUser := func() *models.User {
		return &models.User{
			ID:                       "u1",
			Email:                    "user@example.com",
			PasswordHash:             hash,
			EmailVerified:            true,
			DeleteAccountCode:        &codeHash,
			DeleteAccountCodeExpires: &valid,
		}
	}

	tests := []struct {
		name         string
		email        string
		pass         string
		code         string
		setupMock    func(*MockUserRepository)
		expectedKind apperror.Kind
	}{
		{
			name:  "успешное удаление аккаунта",
			email: "user@example.com",
			pass:  "secret123",
			code:  "123456",
			setupMock: func(users *MockUserRepository) {
				users.On("GetUserByID", mock.Anything, "u1").Return(baseUser(), nil)
				users.On("DeleteUser", mock.Anything, "u1").Return(int64(1), nil)
			},
		},
		{
			name:  "почта не совпадает с аккаунтом",
			email: "other@example.com",
			pass:  "secret123",
			code:  "123456",
			setupMock: func(users *MockUserRepository) {
				users.On("GetUserByID", mock.Anything, "u1").Return(baseUser(), nil)
			},
			expectedKind: apperror.KindUnauthorized,
		},
		{
			name:  "неверный пароль",
			email: "user@example.com",
			pass:  "wrongpass",
			code:  "123456",
			setupMock: func(users *MockUserRepository) {
				users.On("GetUserByID", mock.Anything, "u1").Return(baseUser(), nil)
			},
			expectedKind: apperror.KindUnauthorized,
		},
		{
			name:  "код не выпускался",
			email: "user@example.com",
			pass:  "secret123",
			code:  "123456",
			setupMock: func(users *MockUserRepository) {
				u := baseUser()
				u.DeleteAccountCode = nil
				u.DeleteAccountCodeExpires = nil
				users.On("GetUserByID", mock.Anything, "u1").Return(u, nil)
			},
			expectedKind: apperror.KindBadRequest,
		},
		{
			name:  "код просрочен",
			email: "user@example.com",
			pass:  "secret123",
			code:  "123456",
			setupMock: func(users *MockUserRepository) {
				u := baseUser()
				u.DeleteAccountCodeExpires = &expired
				users.On("GetUserByID", mock.Anything, "u1").Return(u, nil)
			},
			expectedKind: apperror.KindBadRequest,
		},
		{
			name:  "неверный код",
			email: "user@example.com",
			pass:  "secret123",
			code:  "654321",
			setupMock: func(users *MockUserRepository) {
				users.On("GetUserByID", mock.Anything, "u1").Return(baseUser(), nil)
			},
			expectedKind: apperror.KindBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			tt.setupMock(users)

			svc := services.NewAccountService(users, new(MockSender), newTestLogger())
			err := svc.DeleteAccount(context.Background(), "u1", tt.email, tt.pass, tt.code)

			if tt.expectedKind != "" {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedKind, apperror.KindOf(err))
				users.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
				return
			}
			assert.NoError(t, err)
			users.AssertCalled(t, "DeleteUser", mock.Anything, "u1")
		})
	}
}

func TestSendDeleteAccountCode(t *testing.T) {
	tests := []struct {
		name         string
		setupMock    func(*MockUserRepository, *MockSender)
		expectedKind apperror.Kind
	}{
		{
			name: "успешный выпуск кода",
			setupMock: func(users *MockUserRepository, sender *MockSender) {
				users.On("GetUserByID", mock.Anything, "u1").Return(&models.User{
					ID:            "u1",
					Email:         "user@example.com",
					EmailVerified: true,
				}, nil)
				users.On("SetDeleteAccountCode", mock.Anything, "u1", mock.Anything, mock.Anything).Return(nil)
				sender.On("Send", mock.Anything, "user@example.com", "Delete Account Verification Code", mock.Anything).
					Return(nil)
			},
		},
		{
			name: "почта не подтверждена",
			setupMock: func(users *MockUserRepository, _ *MockSender) {
				users.On("GetUserByID", mock.Anything, "u1").Return(&models.User{ID: "u1"}, nil)
			},
			expectedKind: apperror.KindUnauthorized,
		},
		{
			name: "откат кода при неудачной доставке",
			setupMock: func(users *MockUserRepository, sender *MockSender) {
				users.On("GetUserByID", mock.Anything, "u1").Return(&models.User{
					ID:            "u1",
					Email:         "user@example.com",
					EmailVerified: true,
				}, nil)
				users.On("SetDeleteAccountCode", mock.Anything, "u1", mock.Anything, mock.Anything).Return(nil)
				sender.On("Send", mock.Anything, "user@example.com", "Delete Account Verification Code", mock.Anything).
					Return(errors.New("smtp unreachable"))
				users.On("ClearDeleteAccountCode", mock.Anything, "u1").Return(nil)
			},
			expectedKind: apperror.KindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			sender := new(MockSender)
			tt.setupMock(users, sender)

			svc := services.NewAccountService(users, sender, newTestLogger())
			err := svc.SendDeleteAccountCode(context.Background(), "u1")

			if tt.expectedKind != "" {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedKind, apperror.KindOf(err))
				return
			}
			assert.NoError(t, err)
			users.AssertExpectations(t)
		})
	}
}

func TestUpdateName(t *testing.T) {
	users := new(MockUserRepository)
	updated := &models.User{ID: "u1", Name: "New Name", Slug: "new-name"}
	users.On("UpdateName", mock.Anything, "u1", "New Name", "new-name").Return(updated, nil)

	svc := services.NewAccountService(users, new(MockSender), newTestLogger())
	user, err := svc.UpdateName(context.Background(), "u1", "New Name")

	assert.NoError(t, err)
	assert.Equal(t, "new-name", user.Slug)
}

func TestChangePassword_SetsFreshHash(t *testing.T) {
	users := new(MockUserRepository)
	users.On("UpdatePassword", mock.Anything, "u1", mock.MatchedBy(func(hash string) bool {
		return password.CompareHash(hash, "newsecret") == nil
	}), mock.Anything).Return(nil)
	users.On("GetUserByID", mock.Anything, "u1").Return(&models.User{ID: "u1"}, nil)

	svc := services.NewAccountService(users, new(MockSender), newTestLogger())
	_, err := svc.ChangePassword(context.Background(), "u1", "newsecret")

	assert.NoError(t, err)
	users.AssertExpectations(t)
}
