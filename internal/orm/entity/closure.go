package entity

import "context"

// Closure 沿自引用的对多关系做广度优先遍历，返回去重后的可达节点（按首次到达顺序）。
// 起点本身不预先计入，只有被关系指到时才出现在结果里。
// visited 以 uid 为键，没有 uid 的模型按指针去重，环和自引用都能终止。
func Closure(ctx context.Context, root *Model, f Field[*Collection]) ([]*Model, error) {
	type key struct {
		uid uint64
		ptr *Model
	}
	keyOf := func(m *Model) key {
		if m.HasUID() {
			return key{uid: m.uid}
		}
		return key{ptr: m}
	}

	visited := make(map[key]struct{})
	// expanded 记录已经展开过关系的节点，回到起点的环不会再展开一次。
	expanded := make(map[key]struct{})
	var out []*Model
	queue := []*Model{root}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if _, done := expanded[keyOf(cur)]; done {
			continue
		}
		expanded[keyOf(cur)] = struct{}{}
		children, err := Get(ctx, cur, f)
		if err != nil {
			return nil, err
		}
		for _, child := range children.items {
			if child == nil {
				continue
			}
			k := keyOf(child)
			if _, seen := visited[k]; seen {
				continue
			}
			visited[k] = struct{}{}
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out, nil
}
