package errx

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Is_只按code比较语义(t *testing.T) {
	e1 := NewBiz("ORM_NOT_FOUND", "a").WithData("uid", 1).WithCause(errors.New("cause1"))
	e2 := NewBiz("ORM_NOT_FOUND", "b").WithData("uid", 2)
	if !errors.Is(e1, e2) {
		t.Fatalf("期望 errors.Is(e1, e2)==true, e1=%v e2=%v", e1, e2)
	}
	if errors.Is(e1, NewBiz("ORM_WRITE_DENIED", "")) {
		t.Fatalf("期望不同 code 不匹配")
	}
	if !errors.Is(fmt.Errorf("wrap: %w", e1), e2) {
		t.Fatalf("期望经 fmt.Errorf 包装后仍可匹配")
	}
}

func TestError_业务错误不捕获栈_但保留cause链(t *testing.T) {
	cause := errors.New("row missing")
	err := NewBiz("ORM_NOT_FOUND", "").WithCause(cause)
	if got := err.Stack(); got != nil {
		t.Fatalf("期望业务错误不捕获栈，got=%v", got)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("期望 cause 链不丢，err=%v", err)
	}
}

func TestError_系统错误捕获一次栈_且不重复捕获(t *testing.T) {
	sys := ErrUnavailable.WithCause(errors.New("io timeout"))
	if len(sys.Stack()) == 0 {
		t.Fatalf("期望系统错误捕获栈")
	}
	if !sys.IsSys() {
		t.Fatalf("期望 IsSys()==true")
	}
	sys2 := ErrInternal.WithCause(sys)
	if got := sys2.Stack(); got != nil {
		t.Fatalf("期望上层不重复捕获栈，got=%v", got)
	}
}

func TestError_派生不污染哨兵(t *testing.T) {
	m := map[string]any{"table": "fe_users"}
	err := ErrInvalidArgument.WithDataMap(m).WithReason("uid_zero")
	m["table"] = "mutated"
	if got := err.Data()["table"]; got != "fe_users" {
		t.Fatalf("期望复制 data，got=%v", got)
	}
	if err.Reason() != "uid_zero" {
		t.Fatalf("期望 reason=uid_zero, got=%q", err.Reason())
	}
	if ErrInvalidArgument.Data() != nil {
		t.Fatalf("期望哨兵 data 保持为空")
	}
}
