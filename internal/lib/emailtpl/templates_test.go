package emailtpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplates_ContainCodeAndExpiry(t *testing.T) {
	tests := []struct {
		name   string
		render func(string) string
		title  string
	}{
		{name: "подтверждение почты", render: EmailVerification, title: "Email Verification Code"},
		{name: "сброс пароля", render: PasswordReset, title: "Password Reset Code"},
		{name: "удаление аккаунта", render: DeleteAccount, title: "Delete Account Verification Code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := tt.render("123456")
			assert.Contains(t, html, "123456")
			assert.Contains(t, html, tt.title)
			assert.Contains(t, html, "This code will expire in 10 minutes.")
		})
	}
}

func TestTemplates_EscapeCode(t *testing.T) {
	html := EmailVerification("<script>")
	assert.NotContains(t, html, "<script>")
}
