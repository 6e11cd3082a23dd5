// Package models содержит доменную модель пользователя системы,
// включающую учётные данные, состояние одноразовых кодов подтверждения
// и встроенные адреса. Структура используется в бизнес-логике и при
// работе с хранилищем.
package models

import (
	"time"

	"github.com/magabrotheeeer/account-service/internal/entity"
)

// Address встроенная запись адреса пользователя.
type Address struct {
	ID         string `json:"id,omitempty"`
	Alias      string `json:"alias,omitempty"`
	Details    string `json:"details,omitempty"`
	Phone      string `json:"phone,omitempty"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	IsDefault  bool   `json:"is_default"`
}

// User представляет зарегистрированного пользователя системы.
//
// Поля кодов подтверждения хранят sha256-хэш и срок действия; для каждого
// из трех потоков (подтверждение почты, сброс пароля, удаление аккаунта)
// одновременно активен не более чем один код.
type User struct {
	ID                           string     // Уникальный идентификатор пользователя
	Name                         string     // Отображаемое имя
	Slug                         string     // Слаг, генерируется из имени
	Email                        string     // Электронная почта (уникальная)
	Phone                        string     // Телефон
	PasswordHash                 string     // Хэш пароля пользователя
	PasswordChangedAt            *time.Time // Момент последней смены пароля
	PasswordResetCode            *string    // Хэш кода сброса пароля
	PasswordResetCodeExpires     *time.Time // Срок действия кода сброса
	PasswordResetVerified        *bool      // Код сброса подтвержден, ожидается установка пароля
	EmailVerificationCode        *string    // Хэш кода подтверждения почты
	EmailVerificationCodeExpires *time.Time // Срок действия кода подтверждения почты
	EmailVerified                bool       // Почта подтверждена
	DeleteAccountCode            *string    // Хэш кода удаления аккаунта
	DeleteAccountCodeExpires     *time.Time // Срок действия кода удаления
	Role                         string     // Роль пользователя, admin или user
	Wishlist                     []string   // Ссылки на товары в списке желаний
	Addresses                    []Address  // Встроенные адреса
	CreatedAt                    time.Time
	UpdatedAt                    time.Time
}

// Sanitized возвращает представление пользователя без чувствительных полей
// для отдачи клиенту.
func (u *User) Sanitized() entity.Record {
	rec := entity.Record{
		"id":         u.ID,
		"name":       u.Name,
		"email":      u.Email,
		"role":       u.Role,
		"wishlist":   u.Wishlist,
		"addresses":  u.Addresses,
		"created_at": u.CreatedAt,
		"updated_at": u.UpdatedAt,
	}
	if u.Slug != "" {
		rec["slug"] = u.Slug
	}
	if u.Phone != "" {
		rec["phone"] = u.Phone
	}
	return rec
}
