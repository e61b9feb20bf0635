package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorWrapsSentinel(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		sentinel error
	}{
		{"not found", NotFound("Endpoint not found: /x"), ErrNotFound},
		{"method", MethodNotAllowed("use POST"), ErrMethodNotAllowed},
		{"media type", UnsupportedMediaType("json only"), ErrUnsupportedMediaType},
		{"bad request", BadRequest("Missing 'userId' property."), ErrBadRequest},
		{"unauthorized", Unauthorized("missing token"), ErrUnauthorized},
		{"internal without cause", InternalServer("boom", nil), ErrInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestAppErrorMessage(t *testing.T) {
	assert.Equal(t, "Missing 'roles' property.", BadRequest("Missing 'roles' property.").Error())

	cause := errors.New("connection refused")
	err := InternalServer("lookup failed", cause)
	assert.Equal(t, "lookup failed: connection refused", err.Error())
	assert.True(t, errors.Is(err, cause))
}

func TestAppErrorMessageOmitsSentinel(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{"not found", NotFound("Endpoint not found: /x"), "Endpoint not found: /x"},
		{"method", MethodNotAllowed("use POST"), "use POST"},
		{"media type", UnsupportedMediaType("json only"), "json only"},
		{"bad request", BadRequest("'roles' property must be a Array!"), "'roles' property must be a Array!"},
		{"unauthorized", Unauthorized("missing token"), "missing token"},
		{"internal without cause", InternalServer("boom", nil), "boom"},
		{"wrapped sentinel is a cause", InternalServer("boom", fmt.Errorf("lookup: %w", ErrNotFound)), "boom: lookup: endpoint not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}
