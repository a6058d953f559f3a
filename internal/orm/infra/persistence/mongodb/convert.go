package mongodb

import (
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/v2/bson"

	"ModelMapper/internal/orm/port"
)

// toFilter 复制条件；整数统一成 int64，避免 int32/int64 混存。
func toFilter(where port.Where) bson.M {
	out := make(bson.M, len(where))
	for k, v := range where {
		out[k] = normalize(v)
	}
	return out
}

func normalize(v any) any {
	switch x := v.(type) {
	case int, int8, int16, int32, uint, uint8, uint16, uint32, uint64:
		return cast.ToInt64(x)
	default:
		return v
	}
}

// toRow 去掉 _id；int32 读回来也转成 int64。
func toRow(doc bson.M) port.Row {
	out := make(port.Row, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		if n, ok := v.(int32); ok {
			v = int64(n)
		}
		out[k] = v
	}
	return out
}
