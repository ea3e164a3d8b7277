package models

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NewValidationError("bad input", nil), http.StatusBadRequest},
		{NewNotFoundError("missing"), http.StatusNotFound},
		{NewDispatchError("llama3.1:8b", "unreachable", nil), http.StatusBadGateway},
		{NewTimeoutError("chat", nil), http.StatusGatewayTimeout},
		{NewInternalError("boom", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.GetStatusCode(), string(tt.err.Type))
	}
}

func TestDispatchErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewDispatchError("gemma2:9b", "runtime invocation failed", cause)

	assert.Equal(t, ErrorTypeDispatch, err.Type)
	assert.Contains(t, err.Error(), "gemma2:9b")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
}

func TestSanitizeErrorHidesCause(t *testing.T) {
	cause := errors.New("password=hunter2")
	sanitized := SanitizeError(NewDispatchError("llama3.1:8b", "failed", cause))

	require.NotNil(t, sanitized)
	assert.Nil(t, sanitized.Cause)
	assert.NotContains(t, sanitized.Message, "hunter2")
}

func TestSanitizeErrorWrapsUnknown(t *testing.T) {
	sanitized := SanitizeError(errors.New("some internal detail"))

	assert.Equal(t, ErrorTypeInternal, sanitized.Type)
	assert.NotContains(t, sanitized.Message, "internal detail")
}

func TestTaskTypeDefaultComplexity(t *testing.T) {
	assert.Equal(t, ComplexitySimple, TaskChat.DefaultComplexity())
	assert.Equal(t, ComplexityComplex, TaskResearch.DefaultComplexity())
	assert.Equal(t, ComplexityComplex, TaskWriting.DefaultComplexity())
	assert.Equal(t, ComplexityCritical, TaskReport.DefaultComplexity())
	assert.Equal(t, ComplexityStandard, TaskType("other").DefaultComplexity())
}

func TestComplexityIsValid(t *testing.T) {
	for _, c := range []Complexity{ComplexitySimple, ComplexityStandard, ComplexityComplex, ComplexityCritical} {
		assert.True(t, c.IsValid())
	}
	assert.False(t, Complexity("urgent").IsValid())
	assert.False(t, Complexity("").IsValid())
}
