package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Avatar   string `json:"avatar_url" validate:"omitempty,url"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	err := New().Validate(&signup{Email: "nope", Password: "short", Avatar: "::"})
	require.Error(t, err)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "must be a valid email address", vErr.Fields["email"])
	assert.Equal(t, "must be at least 8 characters long", vErr.Fields["password"])
	assert.Equal(t, "must be a valid URL", vErr.Fields["avatar_url"])
	assert.Contains(t, vErr.Error(), "email: must be a valid email address")
}

func TestValidatePasses(t *testing.T) {
	assert.NoError(t, New().Validate(&signup{Email: "a@example.com", Password: "long-enough"}))
}
