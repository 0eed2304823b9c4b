package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFoundError(t *testing.T) {
	err := NewNotFoundError("source archive", "2301.12345")

	assert.EqualError(t, err, "source archive not found: 2301.12345")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrTransient)
}

func TestExternalAPIError(t *testing.T) {
	t.Run("unwraps to transient by default", func(t *testing.T) {
		err := NewExternalAPIError("arXiv", 503, "overloaded", nil)

		assert.EqualError(t, err, "arXiv API error (status 503): overloaded")
		assert.ErrorIs(t, err, ErrTransient)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("unwraps to explicit cause", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := NewExternalAPIError("arXiv", 0, "request failed", cause)

		assert.ErrorIs(t, err, cause)
	})
}
