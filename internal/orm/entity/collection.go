package entity

import (
	"iter"
	"slices"
	"strconv"
	"strings"
)

// Collection 是有序、可变的模型引用列表。
//
// 约束：
// - 不去重，保持插入顺序
// - HasUID 为 O(1)（按 uid 计数的索引）
// - 可选的 owning parent 只是回指针；设置了 parent 时 Add/Remove 会把 parent 标脏
// - 不做并发保护
type Collection struct {
	items   []*Model
	counts  map[uint64]int
	pending []*Model // 加入时还没有 uid 的成员，之后拿到 uid 再补进索引
	parent  *Model

	// persisted 记录最近一次与存储同步时的 uid 列表，Save 用它算差集。
	persisted      []uint64
	persistedKnown bool
}

func NewCollection(models ...*Model) *Collection {
	c := &Collection{counts: make(map[uint64]int, len(models))}
	for _, m := range models {
		c.push(m)
	}
	return c
}

func (c *Collection) push(m *Model) {
	c.items = append(c.items, m)
	if m == nil {
		return
	}
	if m.HasUID() {
		c.counts[m.UID()]++
		return
	}
	c.pending = append(c.pending, m)
}

// Add 追加一个模型，并把 owning parent 标脏。
func (c *Collection) Add(m *Model) {
	c.push(m)
	c.touchParent()
}

// Append 追加另一个集合的全部成员。
func (c *Collection) Append(other *Collection) {
	if other == nil {
		return
	}
	for _, m := range other.items {
		c.push(m)
	}
	c.touchParent()
}

// Remove 删除 m 的第一次出现（按引用），返回是否删除了。
func (c *Collection) Remove(m *Model) bool {
	for i, it := range c.items {
		if it != m {
			continue
		}
		c.items = append(c.items[:i], c.items[i+1:]...)
		c.reindex()
		c.touchParent()
		return true
	}
	return false
}

func (c *Collection) First() *Model {
	if len(c.items) == 0 {
		return nil
	}
	return c.items[0]
}

func (c *Collection) At(i int) *Model {
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i]
}

func (c *Collection) Count() int { return len(c.items) }

func (c *Collection) IsEmpty() bool { return len(c.items) == 0 }

// HasUID 判断是否有成员的 uid 等于 uid。
func (c *Collection) HasUID(uid uint64) bool {
	if uid == 0 {
		return false
	}
	c.settlePending()
	return c.counts[uid] > 0
}

// UIDs 按顺序返回成员 uid，没有 uid 的成员跳过。
func (c *Collection) UIDs() []uint64 {
	out := make([]uint64, 0, len(c.items))
	for _, m := range c.items {
		if m != nil && m.HasUID() {
			out = append(out, m.UID())
		}
	}
	return out
}

// UIDList 返回逗号拼接的 uid 列表，CSV 关系就按这个格式落库。
func (c *Collection) UIDList() string {
	uids := c.UIDs()
	parts := make([]string, len(uids))
	for i, uid := range uids {
		parts[i] = strconv.FormatUint(uid, 10)
	}
	return strings.Join(parts, ",")
}

// All 按顺序迭代成员。
func (c *Collection) All() iter.Seq[*Model] {
	return func(yield func(*Model) bool) {
		for _, m := range c.items {
			if !yield(m) {
				return
			}
		}
	}
}

// Models 返回成员切片的拷贝。
func (c *Collection) Models() []*Model {
	out := make([]*Model, len(c.items))
	copy(out, c.items)
	return out
}

// SortBy 稳定排序，不标脏。
func (c *Collection) SortBy(cmp func(a, b *Model) int) {
	slices.SortStableFunc(c.items, cmp)
}

func (c *Collection) OwningParent() *Model { return c.parent }

// SetOwningParent 设置回指针；不会标脏。
func (c *Collection) SetOwningParent(m *Model) { c.parent = m }

// MarkPersisted 记下当前成员作为“已落库”的状态。
func (c *Collection) MarkPersisted() {
	c.persisted = c.UIDs()
	c.persistedKnown = true
}

// Persisted 返回最近一次落库时的 uid 列表；ok=false 表示不知道（集合不是从存储加载的）。
func (c *Collection) Persisted() (uids []uint64, ok bool) {
	out := make([]uint64, len(c.persisted))
	copy(out, c.persisted)
	return out, c.persistedKnown
}

func (c *Collection) touchParent() {
	if c.parent != nil {
		c.parent.MarkDirty()
	}
}

func (c *Collection) settlePending() {
	if len(c.pending) == 0 {
		return
	}
	rest := c.pending[:0]
	for _, m := range c.pending {
		if m.HasUID() {
			c.counts[m.UID()]++
			continue
		}
		rest = append(rest, m)
	}
	c.pending = rest
}

func (c *Collection) reindex() {
	c.counts = make(map[uint64]int, len(c.items))
	c.pending = c.pending[:0]
	for _, m := range c.items {
		if m == nil {
			continue
		}
		if m.HasUID() {
			c.counts[m.UID()]++
			continue
		}
		c.pending = append(c.pending, m)
	}
}
