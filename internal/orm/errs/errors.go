package errs

import "fmt"

type Kind string

const (
	KindUnknown    Kind = "unknown"
	KindInfra      Kind = "infra"
	KindDependency Kind = "dependency"
	KindCodec      Kind = "codec"
)

// Error 是存储实现内部的包装错误：记录发生位置和关键参数，保留根因。
type Error struct {
	Op    string         // 发生位置：storage.mysql.Find / storage.mongo.Insert
	Kind  Kind           // 粗分类
	Meta  map[string]any // 关键参数（table, uid...）
	Cause error          // 根因（必须保留）
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Op
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

// Data 让 logx.BuildErrorLog 能提取出 Meta。
func (e *Error) Data() map[string]any {
	if len(e.Meta) == 0 {
		return nil
	}
	out := make(map[string]any, len(e.Meta)+2)
	for k, v := range e.Meta {
		out[k] = v
	}
	out["op"] = e.Op
	out["kind"] = string(e.Kind)
	return out
}

// Wrap 统一包装入口；cause 为 nil 时返回 nil。
func Wrap(op string, kind Kind, cause error, meta map[string]any) error {
	if cause == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Cause: cause, Meta: meta}
}
