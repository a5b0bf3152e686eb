package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodeSurvivesWrapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("submission abc: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("guard: %w", ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("resolve: %w", ErrNoWorkflow), http.StatusUnprocessableEntity},
		{fmt.Errorf("forward: %w", ErrNoNextStep), http.StatusBadRequest},
		{fmt.Errorf("apply: %w", ErrConflict), http.StatusConflict},
		{NewValidation("title", "title is required"), http.StatusBadRequest},
		{errors.New("pq: connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, StatusCode(tc.err), "error: %v", tc.err)
	}
}

func TestIsValidation(t *testing.T) {
	err := NewValidation("note", "note is required when rejecting")
	assert.True(t, IsValidation(err))
	assert.True(t, IsValidation(fmt.Errorf("reject: %w", err)))
	assert.False(t, IsValidation(ErrForbidden))
}

func TestMessageHidesInternals(t *testing.T) {
	assert.Equal(t, "something went wrong, please try again",
		Message(errors.New("pq: deadlock detected")))
	assert.Equal(t, "title is required",
		Message(NewValidation("title", "title is required")))
	assert.Equal(t, ErrNoNextStep.Error(), Message(ErrNoNextStep))
}
