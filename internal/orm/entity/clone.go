package entity

import "context"

// Clone 生成一个脱离存储的副本：Virgin、脏、没有 uid。
//
// 关系按种类处理：
// - to-one：共享同一个目标
// - CSV/mm：新集合，元素引用不变，owning parent 指向副本
// - 组合：每个子记录递归克隆，子记录指回父的字段改指向副本
//
// 源模型是 Ghost 时先加载，加载失败（比如已被删除）原样返回错误。
func Clone(ctx context.Context, m *Model) (*Model, error) {
	c := cloner{done: make(map[*Model]*Model)}
	return c.clone(ctx, m)
}

type cloner struct {
	done map[*Model]*Model
}

func (c *cloner) clone(ctx context.Context, src *Model) (*Model, error) {
	if dst, ok := c.done[src]; ok {
		return dst, nil
	}
	if err := src.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	dst := New(src.schema)
	c.done[src] = dst

	for _, d := range src.schema.fields {
		switch {
		case !d.Kind.IsRelation():
			if v, ok := src.values[d.Name]; ok {
				dst.values[d.Name] = v
			}
		case d.Kind == KindToOne:
			if v, ok := src.values[d.Name]; ok {
				dst.values[d.Name] = v
			}
		case d.Kind.IsAssociation():
			from, err := src.relation(ctx, d)
			if err != nil {
				return nil, err
			}
			dst.put(d, NewCollection(from.items...))
		case d.Kind == KindComposition:
			from, err := src.relation(ctx, d)
			if err != nil {
				return nil, err
			}
			children := NewCollection()
			for _, child := range from.items {
				if child == nil {
					continue
				}
				cc, err := c.clone(ctx, child)
				if err != nil {
					return nil, err
				}
				if fd := cc.schema.ForeignField(d.ForeignColumn, src.schema.Type); fd != nil {
					if fd.Kind == KindToOne {
						cc.values[fd.Name] = dst
					} else {
						cc.values[fd.Name] = int64(0)
					}
				}
				children.push(cc)
			}
			dst.put(d, children)
		}
	}
	return dst, nil
}
