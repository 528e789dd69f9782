package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeOutlineTooShort, http.StatusBadRequest},
		{CodeNoProviderConfigured, http.StatusServiceUnavailable},
		{CodeGenerationTimeout, http.StatusGatewayTimeout},
		{CodeEmptyCompletion, http.StatusBadGateway},
		{CodeInstallmentNotFound, http.StatusNotFound},
		{CodeDatabaseError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.code, "x").HTTPStatus)
		})
	}
}

func TestHasCode_WalksWrappedChain(t *testing.T) {
	inner := New(CodeGenerationTimeout, "deadline exceeded")
	outer := Wrap(inner, CodeGenerationFailed, "generation failed")
	wrapped := fmt.Errorf("job: %w", outer)

	assert.True(t, HasCode(wrapped, CodeGenerationFailed))
	assert.True(t, HasCode(wrapped, CodeGenerationTimeout))
	assert.False(t, HasCode(wrapped, CodeOutlineTooShort))
	assert.False(t, HasCode(stderrors.New("plain"), CodeGenerationFailed))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(New(CodeGenerationTimeout, "timeout")))
	assert.True(t, IsRetryable(fmt.Errorf("wrap: %w", New(CodeEmptyCompletion, "empty"))))
	assert.False(t, IsRetryable(New(CodeOutlineTooShort, "short")))
	assert.False(t, IsRetryable(stderrors.New("plain")))
}

func TestAsAppError(t *testing.T) {
	appErr := AsAppError(stderrors.New("boom"))
	assert.Equal(t, CodeUnknown, appErr.Code)

	orig := New(CodeInvalidParam, "bad")
	assert.Same(t, orig, AsAppError(fmt.Errorf("ctx: %w", orig)))
}

func TestWithDetail_DoesNotMutateSentinel(t *testing.T) {
	detailed := ErrJobNotFound.WithDetail("job-1")
	assert.Equal(t, "job-1", detailed.Detail)
	assert.Empty(t, ErrJobNotFound.Detail)
	assert.Equal(t, http.StatusNotFound, detailed.HTTPStatus)
}
