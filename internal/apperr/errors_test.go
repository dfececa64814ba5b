package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("job not found")))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))

	wrapped := fmt.Errorf("claim: %w", AlreadyClaimed("job already claimed"))
	assert.Equal(t, KindAlreadyClaimed, KindOf(wrapped))
	assert.True(t, Is(wrapped, KindAlreadyClaimed))
	assert.False(t, Is(nil, KindInternal))
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:     http.StatusBadRequest,
		KindUnauthorized:   http.StatusUnauthorized,
		KindForbidden:      http.StatusForbidden,
		KindNotFound:       http.StatusNotFound,
		KindInvalidState:   http.StatusConflict,
		KindDuplicateBid:   http.StatusConflict,
		KindAlreadyClaimed: http.StatusConflict,
		KindConflict:       http.StatusConflict,
		KindInternal:       http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), string(kind))
	}
}

func TestErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("failed to load job", cause)

	assert.Equal(t, "INTERNAL: failed to load job: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.NotEmpty(t, err.StackTrace())
}

func TestValidationCarriesFields(t *testing.T) {
	err := Validation("validation failed", FieldError{Field: "amount", Message: "amount must be >= 0"})

	require.Len(t, err.Fields, 1)
	assert.Equal(t, "amount", err.Fields[0].Field)
	assert.Equal(t, "VALIDATION: validation failed", err.Error())
}
