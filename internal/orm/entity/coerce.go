package entity

import (
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// 存储层给出的值类型不固定（int64、[]byte、string、float64、bool、nil），
// 这里统一转换成字段声明的类型。

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func ToString(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	s, err := cast.ToStringE(normalize(v))
	if err != nil {
		return "", ErrKindMismatch.WithData("kind", KindString.String()).WithCause(err)
	}
	return s, nil
}

func ToInt(v any) (int64, error) {
	v = normalize(v)
	switch x := v.(type) {
	case nil:
		return 0, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, nil
		}
		// 十进制解析，避免前导 0 被当成八进制。
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), nil
		}
		return 0, ErrKindMismatch.WithData("kind", KindInt.String()).WithData("value", x)
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, ErrKindMismatch.WithData("kind", KindInt.String()).WithCause(err)
	}
	return n, nil
}

func ToFloat(v any) (float64, error) {
	v = normalize(v)
	if v == nil {
		return 0, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return 0, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, ErrKindMismatch.WithData("kind", KindFloat.String()).WithCause(err)
	}
	return f, nil
}

func ToBool(v any) (bool, error) {
	v = normalize(v)
	if v == nil {
		return false, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return false, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, ErrKindMismatch.WithData("kind", KindBool.String()).WithCause(err)
	}
	return b, nil
}

// ToUID 解析外键列；nil/空串/0 都表示“无关系”。负数返回 ErrInvalidID。
func ToUID(v any) (uint64, error) {
	n, err := ToInt(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, ErrInvalidID.WithData("uid", n)
	}
	return uint64(n), nil
}

// ParseUIDList 解析逗号分隔的 uid 列表，按顺序返回；0 和空项直接跳过，负数返回 ErrInvalidID。
func ParseUIDList(v any) ([]uint64, error) {
	s, err := ToString(v)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, ErrKindMismatch.WithData("kind", KindCSV.String()).WithData("value", s).WithCause(err)
		}
		if n < 0 {
			return nil, ErrInvalidID.WithData("uid", n).WithData("value", s)
		}
		uid := uint64(n)
		if uid == 0 {
			continue
		}
		out = append(out, uid)
	}
	return out, nil
}

// CoerceScalar 把存储值转换成标量字段的类型。
func CoerceScalar(d *Def, v any) (any, error) {
	var (
		out any
		err error
	)
	switch d.Kind {
	case KindString:
		out, err = ToString(v)
	case KindInt:
		out, err = ToInt(v)
	case KindFloat:
		out, err = ToFloat(v)
	case KindBool:
		out, err = ToBool(v)
	default:
		return nil, ErrKindMismatch.WithData("field", d.Name).WithData("kind", d.Kind.String())
	}
	if err != nil {
		if e, ok := err.(*Error); ok {
			return nil, e.WithData("field", d.Name)
		}
		return nil, err
	}
	return out, nil
}

// CoerceValue 用于 SetData：标量做宽松转换，关系字段接受 *Model、*Collection、[]*Model 或 nil。
func CoerceValue(d *Def, v any) (any, error) {
	if !d.Kind.IsRelation() {
		return CoerceScalar(d, v)
	}
	mismatch := func() error {
		return ErrKindMismatch.WithData("field", d.Name).WithData("kind", d.Kind.String())
	}
	if d.Kind == KindToOne {
		switch x := v.(type) {
		case nil:
			return (*Model)(nil), nil
		case *Model:
			if x != nil && x.schema.Type != d.Target {
				return nil, mismatch()
			}
			return x, nil
		default:
			return nil, mismatch()
		}
	}
	switch x := v.(type) {
	case nil:
		return NewCollection(), nil
	case *Collection:
		if x == nil {
			return NewCollection(), nil
		}
		return x, nil
	case []*Model:
		return NewCollection(x...), nil
	default:
		return nil, mismatch()
	}
}
