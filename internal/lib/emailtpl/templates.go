// Package emailtpl содержит HTML-шаблоны писем с кодами подтверждения.
package emailtpl

import (
	"html/template"
	"strings"
)

const codeTemplate = `
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; border: 1px solid #e0e0e0; border-radius: 5px;">
    <div style="text-align: center; margin-bottom: 20px;">
        <h2 style="color: #333;">{{.Title}}</h2>
    </div>
    <div style="background-color: #f8f9fa; padding: 20px; border-radius: 5px; text-align: center; margin-bottom: 20px;">
        <p style="color: #666; margin-bottom: 10px;">{{.Lead}}</p>
        <div style="background-color: #fff; padding: 15px; border-radius: 5px; font-size: 24px; font-weight: bold; letter-spacing: 5px; color: {{.Accent}}; border: 2px dashed {{.Accent}};">
            {{.Code}}
        </div>
    </div>
    <div style="color: #666; font-size: 14px; text-align: center;">
        <p>This code will expire in 10 minutes.</p>
        <p>If you didn't request this code, please ignore this email.</p>
    </div>
</div>
`

var tpl = template.Must(template.New("code").Parse(codeTemplate))

type templateData struct {
	Title  string
	Lead   string
	Code   string
	Accent template.CSS
}

func render(data templateData) string {
	var sb strings.Builder
	// шаблон статический, ошибка исполнения невозможна
	_ = tpl.Execute(&sb, data)
	return sb.String()
}

// EmailVerification письмо с кодом подтверждения почты.
func EmailVerification(code string) string {
	return render(templateData{
		Title:  "Email Verification Code",
		Lead:   "Your email verification code is:",
		Code:   code,
		Accent: "#28a745",
	})
}

// PasswordReset письмо с кодом сброса пароля.
func PasswordReset(code string) string {
	return render(templateData{
		Title:  "Password Reset Code",
		Lead:   "Your password reset code is:",
		Code:   code,
		Accent: "#007bff",
	})
}

// DeleteAccount письмо с кодом подтверждения удаления аккаунта.
func DeleteAccount(code string) string {
	return render(templateData{
		Title:  "Delete Account Verification Code",
		Lead:   "Your account deletion code is:",
		Code:   code,
		Accent: "#dc3545",
	})
}
