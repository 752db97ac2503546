package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(ErrUpstreamError, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithRetryable(true).
		WithProvider("lmstudio")

	assert.Equal(t, ErrUpstreamError, GetErrorCode(err))
	assert.True(t, IsRetryable(err))
	assert.True(t, errors.Is(err, root))
	assert.Equal(t, "[UPSTREAM_ERROR] upstream failed: root", err.Error())
	assert.Equal(t, "lmstudio", err.Provider)
}

func TestError_WrappedChain(t *testing.T) {
	t.Parallel()

	inner := NewConfigurationError("max_rounds must be positive, got %d", 0)
	wrapped := fmt.Errorf("start discussion: %w", inner)

	got, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrConfiguration, got.Code)
	assert.Equal(t, 400, got.HTTPStatus)
	assert.True(t, IsErrorCode(wrapped, ErrConfiguration))
	assert.False(t, IsRetryable(wrapped))
}

func TestError_PlainErrors(t *testing.T) {
	t.Parallel()

	plain := errors.New("boom")
	_, ok := AsError(plain)
	assert.False(t, ok)
	assert.Equal(t, ErrorCode(""), GetErrorCode(plain))
	assert.False(t, IsRetryable(nil))
	assert.Equal(t, "[NOT_FOUND] missing", NewError(ErrNotFound, "missing").Error())
}
