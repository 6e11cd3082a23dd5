// Package services содержит бизнес-логику регистрации, входа и потоков
// одноразовых кодов: подтверждение почты и сброс пароля.
//
// Каждый поток устроен одинаково: выпустить код (хэш и срок действия
// сохраняются на записи пользователя, открытый код уходит письмом),
// подтвердить код одним условным обновлением, завершить действие.
// При неудачной доставке письма только что записанные поля откатываются,
// код повторно не отправляется — вызывающий выпускает новый.
package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/account-service/internal/apperror"
	"github.com/magabrotheeeer/account-service/internal/lib/emailtpl"
	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/password"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/lib/verifycode"
	"github.com/magabrotheeeer/account-service/internal/models"
)

// CodeTTL окно действия одноразового кода, единое для всех потоков.
const CodeTTL = 10 * time.Minute

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	// CreateUser сохраняет нового пользователя и возвращает запись с идентификатором.
	CreateUser(ctx context.Context, user models.User) (*models.User, error)
	// GetUserByEmail возвращает пользователя по почте, включая скрытые поля.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// DeleteUser удаляет пользователя, возвращает число удаленных записей.
	DeleteUser(ctx context.Context, id string) (int64, error)
	// SetEmailVerificationCodeIfPending перевыпускает код подтверждения почты.
	SetEmailVerificationCodeIfPending(ctx context.Context, email, codeHash string, expires time.Time) (int64, error)
	// ClearEmailVerificationCode откатывает поля кода подтверждения почты.
	ClearEmailVerificationCode(ctx context.Context, id string) error
	// ConsumeEmailVerificationCode гасит код и подтверждает почту одним обновлением.
	ConsumeEmailVerificationCode(ctx context.Context, email, codeHash string, now time.Time) (int64, error)
	// SetPasswordResetCode выпускает код сброса пароля.
	SetPasswordResetCode(ctx context.Context, id, codeHash string, expires time.Time) error
	// SetPasswordResetCodeIfPending перевыпускает код сброса при активном потоке.
	SetPasswordResetCodeIfPending(ctx context.Context, email, codeHash string, expires time.Time) (int64, error)
	// ClearPasswordResetCode откатывает поля потока сброса.
	ClearPasswordResetCode(ctx context.Context, id string) error
	// MarkPasswordResetVerified отмечает код сброса подтвержденным.
	MarkPasswordResetVerified(ctx context.Context, email, codeHash string, now time.Time) (int64, error)
	// CompletePasswordReset устанавливает новый пароль при подтвержденном коде.
	CompletePasswordReset(ctx context.Context, email, passwordHash string, changedAt time.Time) (int64, error)
}

// Sender описывает интерфейс доставки писем.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// AuthService отвечает за регистрацию, вход и потоки кодов подтверждения.
type AuthService struct {
	users    UserRepository
	sender   Sender
	jwtMaker jwt.Maker
	log      *slog.Logger
}

// NewAuthService создает новый экземпляр AuthService.
func NewAuthService(users UserRepository, sender Sender, jwtMaker jwt.Maker, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sender:   sender,
		jwtMaker: jwtMaker,
		log:      log,
	}
}

// Register создает нового пользователя с кодом подтверждения почты и
// отправляет код письмом. При неудачной доставке пользователь удаляется,
// регистрацию нужно повторить.
func (s *AuthService) Register(ctx context.Context, name, email, rawPassword, phone string) (string, error) {
	code, err := verifycode.Generate(verifycode.DefaultLength)
	if err != nil {
		return "", err
	}
	codeHash := verifycode.Hash(code)

	passwordHash, err := password.GetHash(rawPassword)
	if err != nil {
		return "", err
	}

	expires := time.Now().UTC().Add(CodeTTL)
	user := models.User{
		Name:                         name,
		Slug:                         models.Slugify(name),
		Email:                        email,
		Phone:                        phone,
		PasswordHash:                 passwordHash,
		EmailVerificationCode:        &codeHash,
		EmailVerificationCodeExpires: &expires,
		EmailVerified:                false,
		Role:                         "user", // дефолтная роль при регистрации
		Wishlist:                     []string{},
		Addresses:                    []models.Address{},
	}

	created, err := s.users.CreateUser(ctx, user)
	if err != nil {
		return "", err
	}
	s.log.Info("registered new user", slog.String("id", created.ID))

	if err := s.sender.Send(ctx, created.Email, "Verify Your Email", emailtpl.EmailVerification(code)); err != nil {
		// Доставка не удалась: неподтвержденная запись не должна остаться.
		if _, delErr := s.users.DeleteUser(ctx, created.ID); delErr != nil {
			s.log.Error("failed to roll back user after delivery failure", sl.Err(delErr))
		}
		return "", apperror.Wrap(apperror.KindInternal, "failed to send verification email", err)
	}

	return "Verification code sent to your email. Please verify to activate your account.", nil
}

// Login проверяет пароль и подтвержденность почты, возвращает пользователя и JWT.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (*models.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", apperror.New(apperror.KindNotFound, "user not found")
		}
		return nil, "", err
	}
	if err := password.CompareHash(user.PasswordHash, rawPassword); err != nil {
		return nil, "", apperror.New(apperror.KindUnauthorized, "invalid credentials")
	}
	if !user.EmailVerified {
		return nil, "", apperror.New(apperror.KindForbidden, "email must be verified before login - go check your mailbox")
	}

	token, err := s.jwtMaker.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// VerifyEmail гасит код подтверждения почты. Совпадение хэша и срока
// проверяются одним условным обновлением: просроченный и неверный коды
// неразличимы для вызывающего.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) error {
	count, err := s.users.ConsumeEmailVerificationCode(ctx, email, verifycode.Hash(code), time.Now().UTC())
	if err != nil {
		return err
	}
	if count == 0 {
		return apperror.New(apperror.KindUnauthorized, "invalid or expired verification code")
	}
	s.log.Info("email verified", slog.String("email", email))
	return nil
}

// ResendEmailVerificationCode перевыпускает код подтверждения почты.
// Допустим только при активном потоке подтверждения.
func (s *AuthService) ResendEmailVerificationCode(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.New(apperror.KindNotFound, "user not found")
		}
		return err
	}
	if user.EmailVerified {
		return apperror.New(apperror.KindBadRequest, "email already verified")
	}
	if user.EmailVerificationCode == nil || user.EmailVerificationCodeExpires == nil {
		return apperror.New(apperror.KindBadRequest, "no verification in progress, please register again")
	}

	code, err := verifycode.Generate(verifycode.DefaultLength)
	if err != nil {
		return err
	}
	count, err := s.users.SetEmailVerificationCodeIfPending(ctx, email, verifycode.Hash(code), time.Now().UTC().Add(CodeTTL))
	if err != nil {
		return err
	}
	if count == 0 {
		return apperror.New(apperror.KindBadRequest, "no verification in progress, please register again")
	}

	if err := s.sender.Send(ctx, user.Email, "Verify Your Email", emailtpl.EmailVerification(code)); err != nil {
		if clearErr := s.users.ClearEmailVerificationCode(ctx, user.ID); clearErr != nil {
			s.log.Error("failed to roll back verification code", sl.Err(clearErr))
		}
		return apperror.Wrap(apperror.KindInternal, "failed to send verification email", err)
	}
	return nil
}

// ForgotPassword выпускает код сброса пароля и отправляет его письмом.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.New(apperror.KindNotFound, "user not found")
		}
		return err
	}

	code, err := verifycode.Generate(verifycode.DefaultLength)
	if err != nil {
		return err
	}
	if err := s.users.SetPasswordResetCode(ctx, user.ID, verifycode.Hash(code), time.Now().UTC().Add(CodeTTL)); err != nil {
		return err
	}

	if err := s.sender.Send(ctx, user.Email, "Reset Password Code", emailtpl.PasswordReset(code)); err != nil {
		if clearErr := s.users.ClearPasswordResetCode(ctx, user.ID); clearErr != nil {
			s.log.Error("failed to roll back reset code", sl.Err(clearErr))
		}
		return apperror.Wrap(apperror.KindInternal, "failed to send email", err)
	}
	return nil
}

// ResendPasswordResetCode перевыпускает код сброса при активном потоке.
func (s *AuthService) ResendPasswordResetCode(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperror.New(apperror.KindNotFound, "user not found")
		}
		return err
	}
	if user.PasswordResetCode == nil || user.PasswordResetCodeExpires == nil {
		return apperror.New(apperror.KindBadRequest, "no password reset in progress, please request a reset first")
	}

	code, err := verifycode.Generate(verifycode.DefaultLength)
	if err != nil {
		return err
	}
	count, err := s.users.SetPasswordResetCodeIfPending(ctx, email, verifycode.Hash(code), time.Now().UTC().Add(CodeTTL))
	if err != nil {
		return err
	}
	if count == 0 {
		return apperror.New(apperror.KindBadRequest, "no password reset in progress, please request a reset first")
	}

	if err := s.sender.Send(ctx, user.Email, "Reset Password Code", emailtpl.PasswordReset(code)); err != nil {
		if clearErr := s.users.ClearPasswordResetCode(ctx, user.ID); clearErr != nil {
			s.log.Error("failed to roll back reset code", sl.Err(clearErr))
		}
		return apperror.Wrap(apperror.KindInternal, "failed to send email", err)
	}
	return nil
}

// VerifyResetCode отмечает код сброса подтвержденным; хэш и срок
// сохраняются до завершающего шага ResetPassword.
func (s *AuthService) VerifyResetCode(ctx context.Context, email, code string) error {
	count, err := s.users.MarkPasswordResetVerified(ctx, email, verifycode.Hash(code), time.Now().UTC())
	if err != nil {
		return err
	}
	if count == 0 {
		return apperror.New(apperror.KindUnauthorized, "invalid reset code or expired")
	}
	return nil
}

// ResetPassword завершает поток сброса: требует подтвержденного кода,
// устанавливает новый пароль и очищает поля потока. Возвращает свежий JWT.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperror.New(apperror.KindNotFound, "user not found")
		}
		return "", err
	}
	if user.PasswordResetVerified == nil || !*user.PasswordResetVerified {
		return "", apperror.New(apperror.KindUnauthorized, "reset code not verified")
	}

	passwordHash, err := password.GetHash(newPassword)
	if err != nil {
		return "", err
	}
	count, err := s.users.CompletePasswordReset(ctx, email, passwordHash, time.Now().UTC())
	if err != nil {
		return "", err
	}
	if count == 0 {
		return "", apperror.New(apperror.KindUnauthorized, "reset code not verified")
	}
	s.log.Info("password reset completed", slog.String("email", email))

	return s.jwtMaker.GenerateToken(user.ID, user.Role)
}
