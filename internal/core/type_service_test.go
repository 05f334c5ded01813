package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docvault.io/docvault/internal/store"
	"docvault.io/docvault/internal/validation"
)

func TestRegister_NewType(t *testing.T) {
	svc := NewTypeService(store.NewMemoryStore())

	ft, err := svc.Register(context.Background(), "invoice", []byte(`{"title": "string"}`))
	require.NoError(t, err)
	assert.Equal(t, "invoice", ft.Name)

	spec, ok := ft.Schema.Fields.Get("title")
	require.True(t, ok)
	assert.Equal(t, "string", spec.Type)
}

func TestRegister_DuplicateReturnsExistingSchema(t *testing.T) {
	svc := NewTypeService(store.NewMemoryStore())

	first, err := svc.Register(context.Background(), "invoice", []byte(`{"title": "string"}`))
	require.NoError(t, err)

	second, err := svc.Register(context.Background(), "invoice", []byte(`{"other": "integer"}`))
	assert.ErrorIs(t, err, store.ErrTypeExists)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	// The stored schema is the first registration's, untouched.
	_, hasTitle := second.Schema.Fields.Get("title")
	_, hasOther := second.Schema.Fields.Get("other")
	assert.True(t, hasTitle)
	assert.False(t, hasOther)
}

func TestRegister_InvalidSchema(t *testing.T) {
	svc := NewTypeService(store.NewMemoryStore())

	_, err := svc.Register(context.Background(), "bad", []byte(`{}`))
	assert.ErrorIs(t, err, validation.ErrEmptySchema)

	_, err = svc.Register(context.Background(), "bad", []byte(`{"x": "mystery"}`))
	var schemaErr *validation.SchemaError
	assert.ErrorAs(t, err, &schemaErr)

	_, err = svc.Register(context.Background(), "bad", []byte(`["not", "an", "object"]`))
	assert.ErrorIs(t, err, validation.ErrInvalidSchemaDocument)
}

func TestRegister_EmptyName(t *testing.T) {
	svc := NewTypeService(store.NewMemoryStore())
	_, err := svc.Register(context.Background(), "  ", []byte(`{"title": "string"}`))
	assert.Error(t, err)
}

func TestGet_UnknownType(t *testing.T) {
	svc := NewTypeService(store.NewMemoryStore())
	_, err := svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrTypeNotRegistered)
}

func TestGet_RoundTrip(t *testing.T) {
	svc := NewTypeService(store.NewMemoryStore())
	_, err := svc.Register(context.Background(), "memo", []byte(`{"subject": "string"}`))
	require.NoError(t, err)

	ft, err := svc.Get(context.Background(), "memo")
	require.NoError(t, err)
	assert.Equal(t, "memo", ft.Name)
}
