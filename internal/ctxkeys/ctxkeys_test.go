package ctxkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	_, ok := RequestID(ctx)
	assert.False(t, ok)

	_, ok = RequestID(WithRequestID(ctx, ""))
	assert.False(t, ok, "empty id counts as unset")

	id, ok := RequestID(WithRequestID(ctx, "req-1"))
	assert.True(t, ok)
	assert.Equal(t, "req-1", id)
}

func TestDiscussionID(t *testing.T) {
	ctx := WithDiscussionID(context.Background(), "d-42")
	id, ok := DiscussionID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "d-42", id)

	_, ok = RequestID(ctx)
	assert.False(t, ok, "keys do not collide")
}

func TestFields(t *testing.T) {
	assert.Empty(t, Fields(context.Background()))

	ctx := WithDiscussionID(WithRequestID(context.Background(), "r"), "d")
	fields := Fields(ctx)
	assert.Len(t, fields, 2)
	assert.Equal(t, "request_id", fields[0].Key)
	assert.Equal(t, "discussion_id", fields[1].Key)
}
