package domain

import (
	"errors"
	"fmt"
	"testing"

	"ModelMapper/internal/orm/entity"
)

func TestLookupError_不存在翻译成业务错误(t *testing.T) {
	err := LookupError(entity.ErrNotFound.WithData("uid", uint64(7)), ErrUserNotFound, "uid", uint64(7))
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("期望 ErrUserNotFound, err=%v", err)
	}
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("期望保留映射层 cause, err=%v", err)
	}
	if errors.Is(err, ErrSystemUnavailable) {
		t.Fatalf("不应是系统错误, err=%v", err)
	}

	var e *entity.Error
	if !errors.As(err, &e) || e.Data()["uid"] != uint64(7) {
		t.Fatalf("期望带上查找条件, err=%v", err)
	}

	if err := LookupError(entity.ErrInvalidID, ErrGroupNotFound, "uid", uint64(0)); !errors.Is(err, ErrGroupNotFound) {
		t.Fatalf("uid 非法也算不存在, err=%v", err)
	}
	if LookupError(nil, ErrGroupNotFound, "uid", 1) != nil {
		t.Fatalf("nil 应原样返回")
	}
}

func TestLookupError_存储故障带栈(t *testing.T) {
	cause := errors.New("db timeout")
	err := LookupError(fmt.Errorf("select: %w", cause), ErrGroupNotFound, "title", "admins")

	if !errors.Is(err, ErrSystemUnavailable) {
		t.Fatalf("期望 ErrSystemUnavailable, err=%v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("期望 cause 链不丢, err=%v", err)
	}
	var e *entity.Error
	if !errors.As(err, &e) || len(e.Stack()) == 0 {
		t.Fatalf("系统错误应在转换处捕获栈, err=%v", err)
	}
}

func TestWriteError_映射层业务错误原样返回(t *testing.T) {
	m := entity.New(UserSchema)
	denied := entity.ErrWriteDenied.WithReason(entity.ReasonReadOnly)
	if got := WriteError(denied, m); got != error(denied) {
		t.Fatalf("期望原样返回, got=%v", got)
	}

	err := WriteError(errors.New("disk full"), m)
	if !errors.Is(err, ErrSystemUnavailable) {
		t.Fatalf("期望 ErrSystemUnavailable, err=%v", err)
	}
	if ErrUserNotFound.IsSys() || ErrUserNotFound.Data() != nil {
		t.Fatalf("哨兵错误不应被污染")
	}
}
