// Package ctxkeys 定义跨包共享的 context 键。
package ctxkeys

import (
	"context"

	"go.uber.org/zap"
)

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	requestIDKey    contextKey = "request_id"
	discussionIDKey contextKey = "discussion_id"
)

// WithRequestID 设置请求 ID
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID 获取请求 ID
func RequestID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(requestIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithDiscussionID 设置讨论 ID
func WithDiscussionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, discussionIDKey, id)
}

// DiscussionID 获取讨论 ID
func DiscussionID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(discussionIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Fields 返回 context 中已设置的 ID，作为日志字段
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if id, ok := RequestID(ctx); ok {
		fields = append(fields, zap.String("request_id", id))
	}
	if id, ok := DiscussionID(ctx); ok {
		fields = append(fields, zap.String("discussion_id", id))
	}
	return fields
}
