package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelationFor(t *testing.T) {
	desc := &Descriptor{
		Name:     "user",
		IDColumn: "id",
		Fields:   []string{"id", "name", "wishlist"},
		Relations: []Relation{
			{Field: "wishlist", Table: "products", RefColumn: "id", Fields: []string{"id", "name"}},
		},
	}

	rel, ok := desc.RelationFor("wishlist")
	assert.True(t, ok)
	assert.Equal(t, "products", rel.Table)

	_, ok = desc.RelationFor("name")
	assert.False(t, ok)
}
