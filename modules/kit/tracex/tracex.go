package tracex

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type traceIDKey struct{}
type scopeIDKey struct{}

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

func TraceIDFrom(ctx context.Context) (string, bool) {
	return stringFrom(ctx, traceIDKey{})
}

// WithScopeID 标记一次“映射作用域”（一个请求或一个测试用例共用一组 mapper）。
func WithScopeID(ctx context.Context, scopeID string) context.Context {
	return context.WithValue(ctx, scopeIDKey{}, scopeID)
}

func ScopeIDFrom(ctx context.Context) (string, bool) {
	return stringFrom(ctx, scopeIDKey{})
}

// EnsureScopeID 如果 ctx 上还没有 scope_id 就生成一个。
func EnsureScopeID(ctx context.Context) (context.Context, string) {
	if id, ok := ScopeIDFrom(ctx); ok {
		return ctx, id
	}
	id := NewID()
	return WithScopeID(ctx, id), id
}

// NewID 生成 16 字节随机 id（hex）。
func NewID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(b[:])
}

func stringFrom(ctx context.Context, key any) (string, bool) {
	if ctx == nil {
		return "", false
	}
	s, ok := ctx.Value(key).(string)
	return s, ok && s != ""
}
