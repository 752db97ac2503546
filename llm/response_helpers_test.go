package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstChoice(t *testing.T) {
	tests := []struct {
		name    string
		resp    *ChatResponse
		wantErr string
		want    string
	}{
		{name: "nil response", resp: nil, wantErr: "nil ChatResponse"},
		{name: "empty choices", resp: &ChatResponse{Choices: []ChatChoice{}}, wantErr: "empty choices"},
		{
			name: "multiple choices returns first",
			resp: &ChatResponse{Choices: []ChatChoice{
				{Index: 0, Message: Message{Content: "first"}},
				{Index: 1, Message: Message{Content: "second"}},
			}},
			want: "first",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			choice, err := FirstChoice(tt.resp)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, choice.Message.Content)
		})
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "typed rate limit", err: &Error{Code: ErrRateLimited, HTTPStatus: 429}, want: true},
		{name: "typed quota", err: &Error{Code: ErrQuotaExceeded, HTTPStatus: 400}, want: true},
		{name: "wrapped typed", err: fmt.Errorf("call: %w", &Error{Code: ErrRateLimited}), want: true},
		{name: "text match", err: errors.New("Too Many Requests from upstream"), want: true},
		{name: "upstream error", err: &Error{Code: ErrUpstreamError, Message: "bad gateway", HTTPStatus: 502}, want: false},
		{name: "plain", err: errors.New("connection refused"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimited(tt.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&Error{Code: ErrUpstreamError, Retryable: true}))
	assert.False(t, IsRetryable(&Error{Code: ErrUnauthorized}))
	assert.False(t, IsRetryable(errors.New("plain")))
}
