package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("create order: %w", NewNotFound("Table not found"))

	assert.Equal(t, NotFound, KindOf(err))
	assert.True(t, Is(err, NotFound))
	assert.Equal(t, "Table not found", Message(err))
}

func TestPlainErrorIsInternal(t *testing.T) {
	err := errors.New("pq: connection refused")

	assert.Equal(t, Internal, KindOf(err))
	assert.Equal(t, "Internal server error", Message(err))
	assert.False(t, Is(nil, Internal))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(Internal, "insert failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "insert failed: boom", err.Error())
	assert.Equal(t, "Internal server error", Message(err))
}

func TestStatusMapping(t *testing.T) {
	cases := map[Kind]int{
		Unauthorized: http.StatusUnauthorized,
		Forbidden:    http.StatusForbidden,
		NotFound:     http.StatusNotFound,
		Validation:   http.StatusBadRequest,
		Conflict:     http.StatusConflict,
		RateLimited:  http.StatusTooManyRequests,
		Internal:     http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.Status(), kind.String())
	}
}
