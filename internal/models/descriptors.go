// Package models содержит дескрипторы сущностей для универсальных CRUD-слоев.
package models

import "github.com/magabrotheeeer/account-service/internal/entity"

// UserDescriptor явное описание сущности пользователя.
// Скрытые поля недоступны в проекции по умолчанию и выбираются
// только операциями, которым они нужны.
var UserDescriptor = &entity.Descriptor{
	Name:     "user",
	Table:    "users",
	IDColumn: "id",
	Fields: []string{
		"id", "name", "slug", "email", "phone", "password",
		"password_changed_at",
		"password_reset_code", "password_reset_code_expires", "password_reset_verified",
		"email_verification_code", "email_verification_code_expires", "email_verified",
		"delete_account_code", "delete_account_code_expires",
		"role", "wishlist", "addresses",
		"created_at", "updated_at",
	},
	Sensitive: []string{
		"password",
		"password_reset_code", "password_reset_code_expires", "password_reset_verified",
		"email_verification_code", "email_verification_code_expires", "email_verified",
		"delete_account_code", "delete_account_code_expires",
	},
	SearchFields: []string{"name", "email"},
	Validation: map[string]string{
		"name":      "required",
		"email":     "required,email",
		"password":  "required,min=6",
		"phone":     "omitempty",
		"role":      "omitempty,oneof=user admin",
		"addresses": "omitempty",
	},
	Relations: []entity.Relation{
		{
			Field:     "wishlist",
			Table:     "products",
			RefColumn: "id",
			Fields:    []string{"id", "name", "slug", "price"},
		},
	},
}

// ProductDescriptor описание сущности товара: цель ссылок wishlist
// и вторая сущность, обслуживаемая фабрикой CRUD.
var ProductDescriptor = &entity.Descriptor{
	Name:     "product",
	Table:    "products",
	IDColumn: "id",
	Fields: []string{
		"id", "name", "slug", "description", "price", "quantity",
		"created_at", "updated_at",
	},
	SearchFields: []string{"name", "description"},
	Validation: map[string]string{
		"name":        "required",
		"description": "omitempty",
		"price":       "required,gt=0",
		"quantity":    "omitempty,gte=0",
	},
}
