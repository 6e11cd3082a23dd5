package validation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/account-service/internal/entity"
)

func TestChain_Validate(t *testing.T) {
	chain := NewChain(
		Rule{Field: "name", Tag: "required"},
		Rule{Field: "email", Tag: "required,email"},
		Rule{Field: "password", Tag: "required,min=6"},
		Rule{Field: "phone", Tag: "min=5", Optional: true},
	)

	tests := []struct {
		name     string
		body     entity.Record
		expected []string
	}{
		{
			name: "валидное тело",
			body: entity.Record{
				"name":     "User",
				"email":    "user@example.com",
				"password": "secret123",
			},
			expected: nil,
		},
		{
			name: "отсутствуют обязательные поля",
			body: entity.Record{"name": "User"},
			expected: []string{
				"field email is a required field",
				"field password is a required field",
			},
		},
		{
			name: "неверный формат почты",
			body: entity.Record{
				"name":     "User",
				"email":    "not-an-email",
				"password": "secret123",
			},
			expected: []string{"field email must be a valid email address"},
		},
		{
			name: "короткий пароль",
			body: entity.Record{
				"name":     "User",
				"email":    "user@example.com",
				"password": "123",
			},
			expected: []string{"field password must be at least 6 characters long"},
		},
		{
			name: "опциональное поле проверяется только при наличии",
			body: entity.Record{
				"name":     "User",
				"email":    "user@example.com",
				"password": "secret123",
				"phone":    "123",
			},
			expected: []string{"field phone must be at least 5 characters long"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, chain.Validate(context.Background(), tt.body))
		})
	}
}

func TestChain_CustomRule(t *testing.T) {
	chain := NewChain(Rule{
		Field:    "email",
		Optional: true,
		Custom: func(_ context.Context, _ entity.Record, value any) error {
			if value == "taken@example.com" {
				return errors.New("email is already in use")
			}
			return nil
		},
	})

	assert.Empty(t, chain.Validate(context.Background(), entity.Record{"email": "free@example.com"}))
	assert.Equal(t,
		[]string{"email is already in use"},
		chain.Validate(context.Background(), entity.Record{"email": "taken@example.com"}))
	assert.Empty(t, chain.Validate(context.Background(), entity.Record{}))
}

func TestChain_CustomMessageOverride(t *testing.T) {
	chain := NewChain(Rule{Field: "code", Tag: "required", Message: "verification code is required"})

	assert.Equal(t,
		[]string{"verification code is required"},
		chain.Validate(context.Background(), entity.Record{}))
}

func TestRequireAnyOf(t *testing.T) {
	check := RequireAnyOf([]string{"name", "phone"})

	_, ok := check(context.Background(), entity.Record{"name": "User"})
	assert.True(t, ok)

	_, ok = check(context.Background(), entity.Record{"email": "user@example.com"})
	assert.False(t, ok)

	msg, ok := check(context.Background(), entity.Record{"name": nil})
	assert.False(t, ok)
	assert.Contains(t, msg, "name, phone")
}
