package tracex

import (
	"context"
	"testing"
)

func TestTraceID_RoundTrip(t *testing.T) {
	ctx := WithTraceID(context.Background(), "t-1")
	if got, ok := TraceIDFrom(ctx); !ok || got != "t-1" {
		t.Fatalf("期望 TraceIDFrom round-trip 成功，got=%q ok=%v", got, ok)
	}
}

func TestEnsureScopeID_已有则复用(t *testing.T) {
	ctx, id := EnsureScopeID(context.Background())
	if id == "" {
		t.Fatalf("期望生成 scope_id")
	}
	_, again := EnsureScopeID(ctx)
	if again != id {
		t.Fatalf("期望复用已有 scope_id, got=%q want=%q", again, id)
	}
	if _, ok := ScopeIDFrom(context.Background()); ok {
		t.Fatalf("期望空 ctx 上没有 scope_id")
	}
}
