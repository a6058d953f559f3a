package entity

// Type 是实体类型标识，Registry 用它找到对应的 DataMapper。
type Type string

// Kind 是字段的存储/关系类别。
type Kind uint8

const (
	KindString Kind = iota + 1
	KindInt
	KindFloat
	KindBool
	// KindToOne 单个外键 uid 列，0 表示无关系。
	KindToOne
	// KindCSV 一列里逗号分隔的 uid 列表。
	KindCSV
	// KindMM 独立的 mm 关联表，可选排序、可选双向。
	KindMM
	// KindComposition 子表通过外键列指回本实体，子记录归本实体所有。
	KindComposition
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindToOne:
		return "to_one"
	case KindCSV:
		return "csv"
	case KindMM:
		return "mm"
	case KindComposition:
		return "composition"
	default:
		return "unknown"
	}
}

func (k Kind) IsRelation() bool { return k >= KindToOne }

func (k Kind) IsToMany() bool { return k >= KindCSV }

// IsAssociation 表示“引用独立实体”的对多关系：克隆时共享目标。
func (k Kind) IsAssociation() bool { return k == KindCSV || k == KindMM }

// Def 是一个已声明字段的完整描述，构建 Schema 前就确定下来。
type Def struct {
	Name   string
	Column string
	Kind   Kind
	Target Type

	MMTable  string
	MMSorted bool
	// Opposite 非空表示双向关系的反向一侧：关联行由对端字段 Opposite 拥有，
	// uid_local/uid_foreign 的角色互换。
	Opposite string

	ForeignColumn string
	SortBy        string
}

// Binding 是能交出 Def 的字段句柄，NewSchema 只认这个。
type Binding interface {
	Def() *Def
}

// Field 是类型化的字段句柄：Get/Set 通过它在编译期确定值类型。
type Field[T any] struct {
	def *Def
}

func (f Field[T]) Def() *Def { return f.def }

func (f Field[T]) Name() string { return f.def.Name }

// Option 调整字段声明。
type Option func(*Def)

// WithColumn 指定存储列名，默认与字段名相同。
func WithColumn(column string) Option {
	return func(d *Def) { d.Column = column }
}

// Sorted 让 mm 关系按 sorting 列读取，并在写入时维护 sorting。
func Sorted() Option {
	return func(d *Def) { d.MMSorted = true }
}

// OppositeField 把 mm 关系声明为双向关系的反向一侧。
func OppositeField(name string) Option {
	return func(d *Def) { d.Opposite = name }
}

// SortBy 指定组合关系子表的排序列。
func SortBy(column string) Option {
	return func(d *Def) { d.SortBy = column }
}

func newField[T any](name string, kind Kind, target Type, opts []Option) Field[T] {
	d := &Def{Name: name, Column: name, Kind: kind, Target: target}
	for _, opt := range opts {
		opt(d)
	}
	return Field[T]{def: d}
}

func String(name string, opts ...Option) Field[string] {
	return newField[string](name, KindString, "", opts)
}

func Int(name string, opts ...Option) Field[int64] {
	return newField[int64](name, KindInt, "", opts)
}

func Float(name string, opts ...Option) Field[float64] {
	return newField[float64](name, KindFloat, "", opts)
}

func Bool(name string, opts ...Option) Field[bool] {
	return newField[bool](name, KindBool, "", opts)
}

func ToOne(name string, target Type, opts ...Option) Field[*Model] {
	return newField[*Model](name, KindToOne, target, opts)
}

func CSV(name string, target Type, opts ...Option) Field[*Collection] {
	return newField[*Collection](name, KindCSV, target, opts)
}

func MM(name string, target Type, mmTable string, opts ...Option) Field[*Collection] {
	f := newField[*Collection](name, KindMM, target, opts)
	f.def.MMTable = mmTable
	return f
}

func Composition(name string, target Type, foreignColumn string, opts ...Option) Field[*Collection] {
	f := newField[*Collection](name, KindComposition, target, opts)
	f.def.ForeignColumn = foreignColumn
	return f
}

// LinkColumns 返回 mm 表里“本端/对端”列名和排序列名。
func (d *Def) LinkColumns() (local, foreign, sorting string) {
	if d.Opposite != "" {
		return "uid_foreign", "uid_local", "sorting_foreign"
	}
	return "uid_local", "uid_foreign", "sorting"
}
