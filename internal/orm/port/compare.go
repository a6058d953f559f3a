package port

import (
	"github.com/spf13/cast"
)

// looseEqual 让 int64(3)、uint64(3)、"3" 视为相等；mm 表和外键列在不同后端里类型不一。
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if fa, err := cast.ToFloat64E(a); err == nil {
		if fb, err := cast.ToFloat64E(b); err == nil {
			return fa == fb
		}
	}
	return cast.ToString(a) == cast.ToString(b)
}

// Less 用于内存实现的排序：数值按数值比较，其余按字符串比较。
func Less(a, b any) bool {
	if fa, err := cast.ToFloat64E(a); err == nil {
		if fb, err := cast.ToFloat64E(b); err == nil {
			return fa < fb
		}
	}
	return cast.ToString(a) < cast.ToString(b)
}
