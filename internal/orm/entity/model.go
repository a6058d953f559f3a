package entity

import (
	"context"
	"fmt"
)

// LoadState 是模型的加载状态。
type LoadState uint8

const (
	// StateVirgin 没有 uid、没有落库，数据只在内存里。
	StateVirgin LoadState = iota
	// StateGhost 有 uid，数据还没读。
	StateGhost
	// StateLoaded 有 uid，数据已填充。
	StateLoaded
	// StateDead 已删除，终态。
	StateDead
)

func (s LoadState) String() string {
	switch s {
	case StateVirgin:
		return "virgin"
	case StateGhost:
		return "ghost"
	case StateLoaded:
		return "loaded"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// Loader 负责把 Ghost 填充成 Loaded，由所属的 DataMapper 实现。
type Loader interface {
	Load(ctx context.Context, m *Model) error
}

// LazyRelation 是对多关系未解析时的占位：Count 来自本表的计数列，
// Resolve 第一次访问时才查询。
type LazyRelation struct {
	Count   int
	Known   bool
	Resolve func(ctx context.Context) (*Collection, error)
}

// Model 是带加载状态机和脏标记的类型化属性包。
//
// 约束：
// - uid==0 的模型永远是脏的，且不会进 identity map
// - 除 Virgin 外，访问器都会先 EnsureLoaded
// - Dead 之后不允许任何读写
type Model struct {
	schema *Schema
	loader Loader

	uid   uint64
	state LoadState
	dirty bool
	// stored 表示存储里已经有这一行，Save 据此决定 insert 还是 update。
	stored bool

	values map[string]any
	lazy   map[string]*LazyRelation
	// touched 记录 Ghost 状态下被 Set 过的字段，加载时不能被存储值覆盖。
	touched map[string]struct{}
}

// New 创建一个 Virgin 模型。
func New(schema *Schema) *Model {
	return &Model{
		schema: schema,
		state:  StateVirgin,
		dirty:  true,
		values: make(map[string]any, len(schema.fields)),
	}
}

// NewGhost 创建一个只有 uid 的模型，第一次访问时通过 loader 加载。
func NewGhost(schema *Schema, uid uint64, loader Loader) *Model {
	return &Model{
		schema: schema,
		loader: loader,
		uid:    uid,
		state:  StateGhost,
		stored: true,
		values: make(map[string]any, len(schema.fields)),
	}
}

func (m *Model) Schema() *Schema { return m.schema }

func (m *Model) Type() Type { return m.schema.Type }

func (m *Model) UID() uint64 { return m.uid }

func (m *Model) HasUID() bool { return m.uid != 0 }

func (m *Model) State() LoadState { return m.state }

func (m *Model) IsGhost() bool { return m.state == StateGhost }

func (m *Model) IsLoaded() bool { return m.state == StateLoaded }

func (m *Model) IsDead() bool { return m.state == StateDead }

func (m *Model) IsDirty() bool { return m.dirty || m.uid == 0 }

func (m *Model) MarkDirty() {
	if m.state != StateDead {
		m.dirty = true
	}
}

func (m *Model) ClearDirty() { m.dirty = false }

func (m *Model) IsStored() bool { return m.stored }

func (m *Model) SetStored(stored bool) { m.stored = stored }

func (m *Model) SetLoader(l Loader) { m.loader = l }

// AssignUID 由 mapper 在分配或插入后调用。
func (m *Model) AssignUID(uid uint64) { m.uid = uid }

func (m *Model) String() string {
	return fmt.Sprintf("%s#%d(%s)", m.schema.Type, m.uid, m.state)
}

// EnsureLoaded 让 Ghost 变成 Loaded；其它非 Dead 状态直接返回。
func (m *Model) EnsureLoaded(ctx context.Context) error {
	switch m.state {
	case StateDead:
		return ErrModelDead.WithData("type", string(m.schema.Type)).WithData("uid", m.uid)
	case StateGhost:
	default:
		return nil
	}
	if m.loader == nil {
		return ErrNotFound.WithData("type", string(m.schema.Type)).WithData("uid", m.uid)
	}
	return m.loader.Load(ctx, m)
}

// Hydrate 用已转换好的值填充模型并置为 Loaded。
// 对多字段的值可以是 *Collection 或 *LazyRelation；Ghost 下 Set 过的字段保留不动。
func (m *Model) Hydrate(values map[string]any) {
	if m.state == StateDead {
		return
	}
	for name, v := range values {
		d, ok := m.schema.byName[name]
		if !ok {
			continue
		}
		if _, kept := m.touched[name]; kept {
			continue
		}
		m.put(d, v)
	}
	m.touched = nil
	m.state = StateLoaded
}

// Materialize 不读存储直接置为 Loaded：还没有落库的 Ghost，或刚插入的 Virgin。
func (m *Model) Materialize() {
	if m.state == StateGhost || m.state == StateVirgin {
		m.touched = nil
		m.state = StateLoaded
	}
}

// SetData 用一组字段值构造内存模型：Virgin/Ghost → Loaded，并标脏。
// 值按字段类型做宽松转换，未知字段返回 ErrUnknownField。
func (m *Model) SetData(values map[string]any) error {
	if m.state == StateDead {
		return ErrWriteDenied.WithReason(ReasonDead).WithData("uid", m.uid)
	}
	converted := make(map[*Def]any, len(values))
	for name, raw := range values {
		d, ok := m.schema.byName[name]
		if !ok {
			return ErrUnknownField.WithData("type", string(m.schema.Type)).WithData("field", name)
		}
		v, err := CoerceValue(d, raw)
		if err != nil {
			return err
		}
		converted[d] = v
	}
	for d, v := range converted {
		m.put(d, v)
	}
	m.touched = nil
	m.state = StateLoaded
	m.dirty = true
	return nil
}

// MarkDead 把模型置为终态。
func (m *Model) MarkDead() {
	m.state = StateDead
	m.dirty = false
	m.lazy = nil
	m.touched = nil
}

// Peek 返回字段当前持有的值，不触发加载也不解析延迟关系。
// lazy 非空表示关系尚未解析。
func (m *Model) Peek(d *Def) (value any, lazy *LazyRelation) {
	if l, ok := m.lazy[d.Name]; ok {
		return nil, l
	}
	return m.values[d.Name], nil
}

func (m *Model) put(d *Def, v any) {
	if l, ok := v.(*LazyRelation); ok {
		if m.lazy == nil {
			m.lazy = make(map[string]*LazyRelation)
		}
		m.lazy[d.Name] = l
		delete(m.values, d.Name)
		return
	}
	if c, ok := v.(*Collection); ok && c != nil {
		c.SetOwningParent(m)
	}
	delete(m.lazy, d.Name)
	m.values[d.Name] = v
}

func (m *Model) checkField(d *Def) error {
	if !m.schema.owns(d) {
		name := ""
		if d != nil {
			name = d.Name
		}
		return ErrUnknownField.WithData("type", string(m.schema.Type)).WithData("field", name)
	}
	return nil
}

func (m *Model) checkWritable() error {
	if m.schema.ReadOnly {
		return ErrWriteDenied.WithReason(ReasonReadOnly).WithData("type", string(m.schema.Type))
	}
	if m.state == StateDead {
		return ErrWriteDenied.WithReason(ReasonDead).WithData("type", string(m.schema.Type)).WithData("uid", m.uid)
	}
	return nil
}

// Relation 是对多关系的非泛型访问入口，供 mapper 按 Def 遍历关系时使用。
func (m *Model) Relation(ctx context.Context, d *Def) (*Collection, error) {
	if err := m.checkField(d); err != nil {
		return nil, err
	}
	if !d.Kind.IsToMany() {
		return nil, ErrKindMismatch.WithData("field", d.Name).WithData("kind", d.Kind.String())
	}
	if err := m.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	return m.relation(ctx, d)
}

// SetValue 是 Set 的非泛型版本：值按字段类型转换，值没变时不标脏。
func (m *Model) SetValue(d *Def, v any) error {
	if err := m.checkField(d); err != nil {
		return err
	}
	if err := m.checkWritable(); err != nil {
		return err
	}
	conv, err := CoerceValue(d, v)
	if err != nil {
		return err
	}
	if !d.Kind.IsToMany() {
		if cur, ok := m.values[d.Name]; ok && cur == conv {
			return nil
		}
	}
	if m.state == StateGhost {
		if m.touched == nil {
			m.touched = make(map[string]struct{})
		}
		m.touched[d.Name] = struct{}{}
	}
	m.put(d, conv)
	m.dirty = true
	return nil
}

// relation 返回对多字段的集合，必要时解析延迟关系；字段没有值时给一个空集合。
func (m *Model) relation(ctx context.Context, d *Def) (*Collection, error) {
	if l, ok := m.lazy[d.Name]; ok {
		var c *Collection
		if l.Resolve != nil {
			var err error
			if c, err = l.Resolve(ctx); err != nil {
				return nil, err
			}
		}
		if c == nil {
			c = NewCollection()
		}
		c.MarkPersisted()
		m.put(d, c)
		return c, nil
	}
	c, _ := m.values[d.Name].(*Collection)
	if c == nil {
		c = NewCollection()
		m.put(d, c)
	}
	return c, nil
}

// Get 读取字段值；Ghost 会先加载，对多关系第一次访问时解析。
func Get[T any](ctx context.Context, m *Model, f Field[T]) (T, error) {
	var zero T
	if err := m.checkField(f.def); err != nil {
		return zero, err
	}
	if err := m.EnsureLoaded(ctx); err != nil {
		return zero, err
	}
	var raw any
	if f.def.Kind.IsToMany() {
		c, err := m.relation(ctx, f.def)
		if err != nil {
			return zero, err
		}
		raw = c
	} else {
		raw = m.values[f.def.Name]
	}
	v, _ := raw.(T)
	return v, nil
}

// Set 写字段值并标脏。只读实体和 Dead 模型返回 ErrWriteDenied。
func Set[T any](m *Model, f Field[T], v T) error {
	if err := m.checkField(f.def); err != nil {
		return err
	}
	if err := m.checkWritable(); err != nil {
		return err
	}
	var raw any = v
	if f.def.Kind.IsToMany() {
		c, _ := raw.(*Collection)
		if c == nil {
			c = NewCollection()
		}
		// 换掉整个集合时保留旧集合的落库记录，Save 才能算出要删的关联行。
		if old, ok := m.values[f.def.Name].(*Collection); ok && old != c {
			if uids, known := old.Persisted(); known {
				c.persisted, c.persistedKnown = uids, true
			}
		}
		raw = c
	} else if f.def.Kind == KindToOne {
		conv, err := CoerceValue(f.def, raw)
		if err != nil {
			return err
		}
		raw = conv
	}
	if m.state == StateGhost {
		if m.touched == nil {
			m.touched = make(map[string]struct{})
		}
		m.touched[f.def.Name] = struct{}{}
	}
	m.put(f.def, raw)
	m.dirty = true
	return nil
}

// RelationCount 返回对多关系的元素个数；关系未解析且计数已知时不查询。
func RelationCount(ctx context.Context, m *Model, f Field[*Collection]) (int, error) {
	if err := m.checkField(f.def); err != nil {
		return 0, err
	}
	if err := m.EnsureLoaded(ctx); err != nil {
		return 0, err
	}
	if l, ok := m.lazy[f.def.Name]; ok && l.Known {
		return l.Count, nil
	}
	c, err := m.relation(ctx, f.def)
	if err != nil {
		return 0, err
	}
	return c.Count(), nil
}
