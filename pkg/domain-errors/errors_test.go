package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	assert.Equal(t, "not_found: no verification case found",
		New(CodeNotFound, "no verification case found").Error())
	assert.Equal(t, "not_found", (&Error{Code: CodeNotFound}).Error())
}

func TestHasCode(t *testing.T) {
	err := New(CodeCaseAlreadyOpen, "a verification case is already open")

	assert.True(t, HasCode(err, CodeCaseAlreadyOpen))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeCaseAlreadyOpen))
	assert.False(t, HasCode(nil, CodeCaseAlreadyOpen))
}

func TestHasCodeSeesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("loading case: %w", New(CodeUnavailable, "store down"))

	assert.True(t, HasCode(err, CodeUnavailable))
	assert.Equal(t, CodeUnavailable, CodeOf(err))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("driver: connection reset")))
	assert.Equal(t, CodeInternal, CodeOf(nil))
}

func TestWithMetaChains(t *testing.T) {
	err := New(CodeRateLimited, "too many requests").
		WithMeta("retry_after", "30").
		WithMeta("operation", "upload")

	assert.Equal(t, "30", err.Meta["retry_after"])
	assert.Equal(t, "upload", err.Meta["operation"])
}
