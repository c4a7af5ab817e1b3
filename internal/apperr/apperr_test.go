package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("missing %s", "startDate"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("no token"), http.StatusUnauthorized},
		{"storage", Storage("save meal plan", cause), http.StatusInternalServerError},
		{"generation", Generation("generate meal plan", cause), http.StatusBadGateway},
		{"wrapped", fmt.Errorf("outer: %w", Validation("bad")), http.StatusBadRequest},
		{"plain", cause, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestErrorChain(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("saving: %w", Storage("save meal plan", cause))

	assert.True(t, Is(err, CodeDatabaseError))
	assert.False(t, Is(err, CodeValidationFailed))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, Code(""), CodeOf(cause))
	assert.Contains(t, err.Error(), "DATABASE_ERROR: failed to save meal plan: disk full")
}
