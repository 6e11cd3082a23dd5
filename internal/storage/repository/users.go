package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/magabrotheeeer/account-service/internal/models"
)

// userColumns полный перечень колонок пользователя, включая скрытые поля
// кодов подтверждения. Выбирается только типизированными методами этого
// файла; универсальные пути чтения работают в проекции по умолчанию.
const userColumns = `id, name, slug, email, phone, password, password_changed_at,
		password_reset_code, password_reset_code_expires, password_reset_verified,
		email_verification_code, email_verification_code_expires, email_verified,
		delete_account_code, delete_account_code_expires,
		role, wishlist, addresses, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var (
		slug, phone                     sql.NullString
		passwordChangedAt               sql.NullTime
		resetCode, emailCode, delCode   sql.NullString
		resetExpires, emailExpires      sql.NullTime
		delExpires                      sql.NullTime
		resetVerified                   sql.NullBool
		wishlistRaw, addressesRaw       []byte
	)
	if err := row.Scan(&u.ID, &u.Name, &slug, &u.Email, &phone, &u.PasswordHash,
		&passwordChangedAt,
		&resetCode, &resetExpires, &resetVerified,
		&emailCode, &emailExpires, &u.EmailVerified,
		&delCode, &delExpires,
		&u.Role, &wishlistRaw, &addressesRaw, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}

	u.Slug = slug.String
	u.Phone = phone.String
	if passwordChangedAt.Valid {
		u.PasswordChangedAt = &passwordChangedAt.Time
	}
	if resetCode.Valid {
		u.PasswordResetCode = &resetCode.String
	}
	if resetExpires.Valid {
		u.PasswordResetCodeExpires = &resetExpires.Time
	}
	if resetVerified.Valid {
		u.PasswordResetVerified = &resetVerified.Bool
	}
	if emailCode.Valid {
		u.EmailVerificationCode = &emailCode.String
	}
	if emailExpires.Valid {
		u.EmailVerificationCodeExpires = &emailExpires.Time
	}
	if delCode.Valid {
		u.DeleteAccountCode = &delCode.String
	}
	if delExpires.Valid {
		u.DeleteAccountCodeExpires = &delExpires.Time
	}
	if len(wishlistRaw) > 0 {
		if err := json.Unmarshal(wishlistRaw, &u.Wishlist); err != nil {
			return nil, err
		}
	}
	if len(addressesRaw) > 0 {
		if err := json.Unmarshal(addressesRaw, &u.Addresses); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// CreateUser сохраняет нового пользователя и возвращает запись с
// идентификатором и метками времени из базы.
func (s *Storage) CreateUser(ctx context.Context, u models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	wishlist, err := json.Marshal(u.Wishlist)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	addresses, err := json.Marshal(u.Addresses)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q := `INSERT INTO users (name, slug, email, phone, password,
			  email_verification_code, email_verification_code_expires, email_verified,
			  role, wishlist, addresses)
		  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		  RETURNING ` + userColumns
	row := s.DB.QueryRowContext(ctx, q,
		u.Name, u.Slug, u.Email, nullString(u.Phone), u.PasswordHash,
		u.EmailVerificationCode, u.EmailVerificationCodeExpires, u.EmailVerified,
		u.Role, wishlist, addresses)

	created, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return created, nil
}

// GetUserByEmail возвращает пользователя по почте, включая скрытые поля.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, q, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// GetUserByID возвращает пользователя по идентификатору, включая скрытые поля.
func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	const op = "storage.GetUserByID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// DeleteUser удаляет пользователя и возвращает число удаленных записей.
func (s *Storage) DeleteUser(ctx context.Context, id string) (int64, error) {
	const op = "storage.DeleteUser"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// SetEmailVerificationCodeIfPending перевыпускает код подтверждения почты
// одним условным обновлением: только пока поток активен и почта не
// подтверждена. Возвращает число затронутых записей.
func (s *Storage) SetEmailVerificationCodeIfPending(ctx context.Context, email, codeHash string, expires time.Time) (int64, error) {
	const op = "storage.SetEmailVerificationCodeIfPending"
	q := `UPDATE users
		  SET email_verification_code = $2,
			  email_verification_code_expires = $3
		  WHERE email = $1
			AND email_verified = FALSE
			AND email_verification_code IS NOT NULL`
	return s.exec(ctx, op, q, email, codeHash, expires)
}

// ClearEmailVerificationCode откатывает поля кода подтверждения почты.
func (s *Storage) ClearEmailVerificationCode(ctx context.Context, id string) error {
	const op = "storage.ClearEmailVerificationCode"
	q := `UPDATE users
		  SET email_verification_code = NULL,
			  email_verification_code_expires = NULL
		  WHERE id = $1`
	_, err := s.exec(ctx, op, q, id)
	return err
}

// ConsumeEmailVerificationCode подтверждает почту одним условным
// обновлением: совпадение почты, хэша и непросроченного срока проверяются
// в том же запросе, который гасит код. Возвращает число затронутых записей.
func (s *Storage) ConsumeEmailVerificationCode(ctx context.Context, email, codeHash string, now time.Time) (int64, error) {
	const op = "storage.ConsumeEmailVerificationCode"
	q := `UPDATE users
		  SET email_verified = TRUE,
			  email_verification_code = NULL,
			  email_verification_code_expires = NULL
		  WHERE email = $1
			AND email_verification_code = $2
			AND email_verification_code_expires > $3`
	return s.exec(ctx, op, q, email, codeHash, now)
}

// SetPasswordResetCode выпускает код сброса пароля и снимает отметку
// подтверждения предыдущего кода.
func (s *Storage) SetPasswordResetCode(ctx context.Context, id, codeHash string, expires time.Time) error {
	const op = "storage.SetPasswordResetCode"
	q := `UPDATE users
		  SET password_reset_code = $2,
			  password_reset_code_expires = $3,
			  password_reset_verified = FALSE
		  WHERE id = $1`
	_, err := s.exec(ctx, op, q, id, codeHash, expires)
	return err
}

// SetPasswordResetCodeIfPending перевыпускает код сброса только при
// активном потоке сброса.
func (s *Storage) SetPasswordResetCodeIfPending(ctx context.Context, email, codeHash string, expires time.Time) (int64, error) {
	const op = "storage.SetPasswordResetCodeIfPending"
	q := `UPDATE users
		  SET password_reset_code = $2,
			  password_reset_code_expires = $3,
			  password_reset_verified = FALSE
		  WHERE email = $1
			AND password_reset_code IS NOT NULL`
	return s.exec(ctx, op, q, email, codeHash, expires)
}

// ClearPasswordResetCode откатывает все поля потока сброса пароля.
func (s *Storage) ClearPasswordResetCode(ctx context.Context, id string) error {
	const op = "storage.ClearPasswordResetCode"
	q := `UPDATE users
		  SET password_reset_code = NULL,
			  password_reset_code_expires = NULL,
			  password_reset_verified = NULL
		  WHERE id = $1`
	_, err := s.exec(ctx, op, q, id)
	return err
}

// MarkPasswordResetVerified отмечает код сброса подтвержденным одним
// условным обновлением; хэш и срок остаются до завершающего шага.
func (s *Storage) MarkPasswordResetVerified(ctx context.Context, email, codeHash string, now time.Time) (int64, error) {
	const op = "storage.MarkPasswordResetVerified"
	q := `UPDATE users
		  SET password_reset_verified = TRUE
		  WHERE email = $1
			AND password_reset_code = $2
			AND password_reset_code_expires > $3`
	return s.exec(ctx, op, q, email, codeHash, now)
}

// CompletePasswordReset устанавливает новый пароль и очищает поля потока
// сброса; проходит только при подтвержденном коде.
func (s *Storage) CompletePasswordReset(ctx context.Context, email, passwordHash string, changedAt time.Time) (int64, error) {
	const op = "storage.CompletePasswordReset"
	q := `UPDATE users
		  SET password = $2,
			  password_changed_at = $3,
			  password_reset_code = NULL,
			  password_reset_code_expires = NULL,
			  password_reset_verified = NULL
		  WHERE email = $1
			AND password_reset_verified = TRUE`
	return s.exec(ctx, op, q, email, passwordHash, changedAt)
}

// UpdatePassword меняет пароль аутентифицированного пользователя.
func (s *Storage) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	const op = "storage.UpdatePassword"
	q := `UPDATE users
		  SET password = $2,
			  password_changed_at = $3
		  WHERE id = $1`
	count, err := s.exec(ctx, op, q, id, passwordHash, changedAt)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%s: %w", op, sql.ErrNoRows)
	}
	return nil
}

// SetDeleteAccountCode выпускает код подтверждения удаления аккаунта.
func (s *Storage) SetDeleteAccountCode(ctx context.Context, id, codeHash string, expires time.Time) error {
	const op = "storage.SetDeleteAccountCode"
	q := `UPDATE users
		  SET delete_account_code = $2,
			  delete_account_code_expires = $3
		  WHERE id = $1`
	_, err := s.exec(ctx, op, q, id, codeHash, expires)
	return err
}

// ClearDeleteAccountCode откатывает поля кода удаления аккаунта.
func (s *Storage) ClearDeleteAccountCode(ctx context.Context, id string) error {
	const op = "storage.ClearDeleteAccountCode"
	q := `UPDATE users
		  SET delete_account_code = NULL,
			  delete_account_code_expires = NULL
		  WHERE id = $1`
	_, err := s.exec(ctx, op, q, id)
	return err
}

// UpdateName меняет имя и слаг пользователя, возвращает запись после обновления.
func (s *Storage) UpdateName(ctx context.Context, id, name, slug string) (*models.User, error) {
	const op = "storage.UpdateName"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	q := `UPDATE users
		  SET name = $2, slug = $3, updated_at = now()
		  WHERE id = $1
		  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, q, id, name, slug))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// PurgeUnverified удаляет пользователей, не подтвердивших почту до
// истечения срока действия кода. Политика жизненного цикла: аккаунт
// без подтверждения не живет дольше окна верификации.
func (s *Storage) PurgeUnverified(ctx context.Context, now time.Time) (int64, error) {
	const op = "storage.PurgeUnverified"
	q := `DELETE FROM users
		  WHERE email_verified = FALSE
			AND email_verification_code_expires IS NOT NULL
			AND email_verification_code_expires < $1`
	return s.exec(ctx, op, q, now)
}

// CountUsersByEmail возвращает число пользователей с данной почтой,
// используется проверкой уникальности при валидации.
func (s *Storage) CountUsersByEmail(ctx context.Context, email string) (int, error) {
	const op = "storage.CountUsersByEmail"
	var count int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = $1`, email).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

func (s *Storage) exec(ctx context.Context, op, q string, args ...any) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
