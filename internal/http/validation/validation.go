// Package validation содержит декларативные цепочки правил для проверки
// тел запросов с динамическим набором полей. Обработчик собирает цепочку
// один раз при создании и прогоняет через нее каждое тело запроса.
package validation

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/account-service/internal/entity"
)

// CustomFunc дополнительная проверка значения поля. Возвращенная ошибка
// попадает в список нарушений как есть.
type CustomFunc func(ctx context.Context, body entity.Record, value any) error

// Rule описывает проверку одного поля тела запроса.
// Tag — набор тегов go-playground/validator, применяемый к значению.
// Optional помечает поле, отсутствие которого не считается нарушением.
type Rule struct {
	Field    string
	Tag      string
	Message  string
	Optional bool
	Custom   CustomFunc
}

// Chain упорядоченный набор правил для одного запроса.
type Chain struct {
	rules    []Rule
	validate *validator.Validate
}

// NewChain собирает цепочку из переданных правил.
func NewChain(rules ...Rule) *Chain {
	return &Chain{
		rules:    rules,
		validate: validator.New(),
	}
}

// Append возвращает новую цепочку с добавленными правилами.
func (c *Chain) Append(rules ...Rule) *Chain {
	combined := make([]Rule, 0, len(c.rules)+len(rules))
	combined = append(combined, c.rules...)
	combined = append(combined, rules...)
	return NewChain(combined...)
}

// Validate прогоняет тело запроса через все правила и возвращает список
// нарушений. Пустой список означает валидное тело.
func (c *Chain) Validate(ctx context.Context, body entity.Record) []string {
	var msgs []string
	for _, rule := range c.rules {
		value, present := body[rule.Field]
		if !present || value == nil {
			if rule.Optional {
				continue
			}
			if strings.Contains(rule.Tag, "required") {
				msgs = append(msgs, c.message(rule, "required"))
				continue
			}
			continue
		}

		if rule.Tag != "" {
			tag := strings.TrimPrefix(rule.Tag, "required,")
			if tag == "required" {
				tag = ""
			}
			if tag != "" {
				if err := c.validate.Var(value, tag); err != nil {
					msgs = append(msgs, c.message(rule, firstTag(err, tag)))
					continue
				}
			}
		}

		if rule.Custom != nil {
			if err := rule.Custom(ctx, body, value); err != nil {
				msgs = append(msgs, err.Error())
			}
		}
	}
	return msgs
}

func (c *Chain) message(rule Rule, tag string) string {
	if rule.Message != "" {
		return rule.Message
	}
	switch {
	case tag == "required":
		return fmt.Sprintf("field %s is a required field", rule.Field)
	case tag == "email":
		return fmt.Sprintf("field %s must be a valid email address", rule.Field)
	case tag == "uuid":
		return fmt.Sprintf("field %s can contain only uuid", rule.Field)
	case strings.HasPrefix(tag, "min="):
		return fmt.Sprintf("field %s must be at least %s characters long", rule.Field, strings.TrimPrefix(tag, "min="))
	case strings.HasPrefix(tag, "oneof="):
		return fmt.Sprintf("field %s must be one of: %s", rule.Field, strings.TrimPrefix(tag, "oneof="))
	case strings.HasPrefix(tag, "gt="):
		return fmt.Sprintf("field %s must be greater than %s", rule.Field, strings.TrimPrefix(tag, "gt="))
	default:
		return fmt.Sprintf("field %s is not a valid", rule.Field)
	}
}

// firstTag вытаскивает имя первого нарушенного тега из ошибки валидатора.
func firstTag(err error, fallback string) string {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		tag := verrs[0].ActualTag()
		if param := verrs[0].Param(); param != "" {
			return tag + "=" + param
		}
		return tag
	}
	return fallback
}

// RequireAnyOf возвращает правило-страж для обновления: тело должно
// содержать хотя бы одно из перечисленных полей.
func RequireAnyOf(fields []string) func(ctx context.Context, body entity.Record) (string, bool) {
	return func(_ context.Context, body entity.Record) (string, bool) {
		for _, field := range fields {
			if value, ok := body[field]; ok && value != nil {
				return "", true
			}
		}
		return fmt.Sprintf("at least one of the fields (%s) must be provided", strings.Join(fields, ", ")), false
	}
}
