package entity

import "fmt"

// Schema 描述一种实体：表、是否只读、软删除列和按声明顺序排列的字段。
type Schema struct {
	Type          Type
	Table         string
	ReadOnly      bool
	DeletedColumn string

	fields []*Def
	byName map[string]*Def
}

// NewSchema 声明一种实体。字段名重复或与 uid 冲突属于编程错误，直接 panic。
func NewSchema(t Type, table string, fields ...Binding) *Schema {
	s := &Schema{
		Type:   t,
		Table:  table,
		fields: make([]*Def, 0, len(fields)),
		byName: make(map[string]*Def, len(fields)),
	}
	for _, b := range fields {
		d := b.Def()
		if d.Name == "" || d.Name == "uid" {
			panic(fmt.Sprintf("entity %s: invalid field name %q", t, d.Name))
		}
		if _, dup := s.byName[d.Name]; dup {
			panic(fmt.Sprintf("entity %s: duplicate field %q", t, d.Name))
		}
		if d.Kind.IsRelation() && d.Target == "" {
			panic(fmt.Sprintf("entity %s: relation %q has no target", t, d.Name))
		}
		s.fields = append(s.fields, d)
		s.byName[d.Name] = d
	}
	return s
}

// AsReadOnly 把实体声明为只读：任何 setter 和 Save 都会失败。
func (s *Schema) AsReadOnly() *Schema {
	s.ReadOnly = true
	return s
}

// WithDeletedColumn 启用软删除：查询排除该列为 1 的行，Delete 只把它置 1。
func (s *Schema) WithDeletedColumn(column string) *Schema {
	s.DeletedColumn = column
	return s
}

func (s *Schema) Fields() []*Def {
	out := make([]*Def, len(s.fields))
	copy(out, s.fields)
	return out
}

func (s *Schema) Field(name string) (*Def, bool) {
	d, ok := s.byName[name]
	return d, ok
}

func (s *Schema) Relations() []*Def {
	var out []*Def
	for _, d := range s.fields {
		if d.Kind.IsRelation() {
			out = append(out, d)
		}
	}
	return out
}

// owns 判断 d 是否就是本 schema 声明的那个字段（按指针，不按名字）。
func (s *Schema) owns(d *Def) bool {
	return d != nil && s.byName[d.Name] == d
}

// ForeignField 返回子实体里绑定到外键列 column 的字段：
// 指向 parent 类型的 to-one，或者直接存 uid 的 int 字段。
func (s *Schema) ForeignField(column string, parent Type) *Def {
	for _, d := range s.fields {
		if d.Column != column {
			continue
		}
		if (d.Kind == KindToOne && d.Target == parent) || d.Kind == KindInt {
			return d
		}
	}
	return nil
}
