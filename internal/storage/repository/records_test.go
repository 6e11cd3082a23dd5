package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/query"
)

func TestProjection_SkipsSensitiveFields(t *testing.T) {
	tests := []struct {
		name     string
		features *query.Features
		expected []string
	}{
		{
			name:     "без явной проекции возвращаются поля по умолчанию",
			features: nil,
			expected: models.UserDescriptor.DefaultProjection(),
		},
		{
			name: "скрытые поля недоступны для явного выбора",
			features: &query.Features{Fields: []string{
				"name", "password", "password_reset_code", "email_verification_code",
			}},
			expected: []string{"id", "name"},
		},
		{
			name:     "необъявленные поля отбрасываются",
			features: &query.Features{Fields: []string{"name", "ssn"}},
			expected: []string{"id", "name"},
		},
	}

	s := &Storage{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			projection := s.projection(models.UserDescriptor, tt.features)
			assert.Equal(t, tt.expected, projection)
			for _, column := range projection {
				assert.False(t, models.UserDescriptor.IsSensitive(column),
					"sensitive column %q present in projection", column)
			}
		})
	}
}

func TestBuildWhere_DropsSensitiveFilters(t *testing.T) {
	f := &query.Features{Filters: []query.Filter{
		{Field: "password_reset_code", Op: query.OpGte, Value: "0"},
		{Field: "password", Op: query.OpEq, Value: "x"},
		{Field: "name", Op: query.OpEq, Value: "Alice"},
	}}

	where, args := buildWhere(models.UserDescriptor, f)

	assert.Equal(t, " WHERE name = $1", where)
	assert.Equal(t, []any{"Alice"}, args)
}

func TestBuildOrder_DropsSensitiveKeys(t *testing.T) {
	order := buildOrder(models.UserDescriptor, []query.SortKey{
		{Field: "email_verification_code_expires"},
		{Field: "name", Desc: true},
	})

	assert.Equal(t, " ORDER BY name DESC", order)
}
