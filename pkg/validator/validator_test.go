package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tenantInput struct {
	Name  string `json:"name" validate:"required,min=2"`
	Slug  string `json:"slug" validate:"required,min=3,max=100,slug"`
	Email string `json:"adminEmail" validate:"omitempty,email"`
}

func TestValidator_UsesJSONNames(t *testing.T) {
	v := NewValidator()

	err := v.Validate(tenantInput{Slug: "Bad Slug", Email: "nope"})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name is required", verr.Fields["name"])
	assert.Contains(t, verr.Fields["slug"], "lowercase")
	assert.Equal(t, "adminEmail must be a valid email address", verr.Fields["adminEmail"])
}

func TestValidator_Valid(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(tenantInput{Name: "Clinic", Slug: "clinic-sp"}))
}

func TestIsSlug(t *testing.T) {
	assert.True(t, IsSlug("clinica-1"))
	assert.False(t, IsSlug("-clinica"))
	assert.False(t, IsSlug("Clinica"))
	assert.False(t, IsSlug("a--b"))
}
