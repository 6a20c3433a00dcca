package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bandreports/bandreports/internal/errors"
	"github.com/bandreports/bandreports/internal/validation"
)

type fetchSection struct {
	TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gt=0"`
	Dir            string `yaml:"dir" validate:"required"`
}

type testConfig struct {
	Style string       `yaml:"style" validate:"oneof=improved compact"`
	Fetch fetchSection `yaml:"fetch"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(testConfig{Style: "improved", Fetch: fetchSection{TimeoutSeconds: 30, Dir: "images"}})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	err := v.Validate(testConfig{Style: "fancy", Fetch: fetchSection{TimeoutSeconds: 0}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	var domainErr *errors.Error
	require.True(t, errors.As(err, &domainErr))

	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "must be one of: improved compact", details["style"])
	assert.Equal(t, "must be greater than 0", details["fetch.timeout_seconds"])
	assert.Equal(t, "is required", details["fetch.dir"])
	assert.Contains(t, err.Error(), "fetch.dir is required")
}
