// Package services содержит бизнес-логику операций аутентифицированного
// пользователя: смена пароля, обновление профиля и двухшаговое удаление
// аккаунта с кодом подтверждения.
package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/account-service/internal/apperror"
	"github.com/magabrotheeeer/account-service/internal/lib/emailtpl"
	"github.com/magabrotheeeer/account-service/internal/lib/password"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/lib/verifycode"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// CodeTTL окно действия кода удаления аккаунта.
const CodeTTL = 10 * time.Minute

// UserRepository описывает контракт хранилища для операций над своим аккаунтом.
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	SetDeleteAccountCode(ctx context.Context, id, codeHash string, expires time.Time) error
	ClearDeleteAccountCode(ctx context.Context, id string) error
	DeleteUser(ctx context.Context, id string) (int64, error)
	UpdateName(ctx context.Context, id, name, slug string) (*models.User, error)
}

// Sender описывает интерфейс доставки писем.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// AccountService операции аутентифицированного пользователя над своим аккаунтом.
type AccountService struct {
	users  UserRepository
	sender Sender
	log    *slog.Logger
}

// NewAccountService создает новый экземпляр AccountService.
func NewAccountService(users UserRepository, sender Sender, log *slog.Logger) *AccountService {
	return &AccountService{
		users:  users,
		sender: sender,
		log:    log,
	}
}

// Profile возвращает пользователя по идентификатору из токена.
func (s *AccountService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.KindNotFound, "user not found")
		}
		return nil, err
	}
	return user, nil
}

// CheckCurrentPassword проверяет текущий пароль пользователя.
// Используется кастомным правилом валидации смены пароля.
func (s *AccountService) CheckCurrentPassword(ctx context.Context, userID, current string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.New(apperror.KindNotFound, "user not found")
		}
		return err
	}
	if err := password.CompareHash(user.PasswordHash, current); err != nil {
		return apperror.New(apperror.KindBadRequest, "current password is incorrect")
	}
	return nil
}

// ChangePassword устанавливает новый пароль и ставит отметку о смене:
// все ранее выданные токены перестают действовать.
func (s *AccountService) ChangePassword(ctx context.Context, userID, newPassword string) (*models.User, error) {
	passwordHash, err := password.GetHash(newPassword)
	if err != nil {
		return nil, err
	}
	if err := s.users.UpdatePassword(ctx, userID, passwordHash, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.KindNotFound, "user not found")
		}
		return nil, err
	}
	s.log.Info("password changed", slog.String("user_id", userID))

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SendDeleteAccountCode выпускает код подтверждения удаления аккаунта
// и отправляет его на подтвержденную почту пользователя.
func (s *AccountService) SendDeleteAccountCode(ctx context.Context, userID string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.New(apperror.KindUnauthorized, "unauthorized")
		}
		return err
	}
	if !user.EmailVerified {
		return apperror.New(apperror.KindUnauthorized, "unauthorized")
	}

	code, err := verifycode.Generate(verifycode.DefaultLength)
	if err != nil {
		return err
	}
	if err := s.users.SetDeleteAccountCode(ctx, userID, verifycode.Hash(code), time.Now().UTC().Add(CodeTTL)); err != nil {
		return err
	}

	if err := s.sender.Send(ctx, user.Email, "Delete Account Verification Code", emailtpl.DeleteAccount(code)); err != nil {
		if clearErr := s.users.ClearDeleteAccountCode(ctx, userID); clearErr != nil {
			s.log.Error("failed to roll back delete-account code", sl.Err(clearErr))
		}
		return apperror.Wrap(apperror.KindInternal, "failed to send email", err)
	}
	return nil
}

// DeleteAccount удаляет аккаунт после проверки почты, пароля и кода
// подтверждения. Отдельного шага подтверждения кода нет: проверка и
// действие совмещены.
func (s *AccountService) DeleteAccount(ctx context.Context, userID, email, rawPassword, code string) error {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.New(apperror.KindUnauthorized, "user not found")
		}
		return err
	}
	if user.Email != email {
		return apperror.New(apperror.KindUnauthorized, "email does not match authenticated user")
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return apperror.New(apperror.KindUnauthorized, "incorrect password")
	}
	if user.DeleteAccountCode == nil || user.DeleteAccountCodeExpires == nil {
		return apperror.New(apperror.KindBadRequest, "no verification code found")
	}
	if user.DeleteAccountCodeExpires.Before(time.Now().UTC()) {
		return apperror.New(apperror.KindBadRequest, "verification code expired")
	}
	if !verifycode.Match(code, *user.DeleteAccountCode) {
		return apperror.New(apperror.KindBadRequest, "invalid verification code")
	}

	count, err := s.users.DeleteUser(ctx, userID)
	if err != nil {
		return err
	}
	if count == 0 {
		return apperror.New(apperror.KindNotFound, "user not found")
	}
	s.log.Info("account deleted", slog.String("user_id", userID))
	return nil
}

// UpdateName меняет отображаемое имя пользователя и пересчитывает слаг.
func (s *AccountService) UpdateName(ctx context.Context, userID, name string) (*models.User, error) {
	user, err := s.users.UpdateName(ctx, userID, name, models.Slugify(name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.New(apperror.KindNotFound, "user not found")
		}
		return nil, err
	}
	return user, nil
}
