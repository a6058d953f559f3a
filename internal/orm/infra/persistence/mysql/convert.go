package mysql

import (
	"github.com/spf13/cast"

	"ModelMapper/internal/orm/port"
)

// fromDriver 把驱动返回的 []byte（文本协议下的字符串和数字）转成 string，映射层再按字段类型转换。
func fromDriver(row map[string]any) port.Row {
	out := make(port.Row, len(row))
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			out[k] = string(b)
			continue
		}
		out[k] = v
	}
	return out
}

func toUint(v any) (uint64, bool) {
	n, err := cast.ToUint64E(v)
	return n, err == nil
}
