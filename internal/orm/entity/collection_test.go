package entity

import (
	"context"
	"errors"
	"testing"
)

func withUID(s *Schema, uid uint64) *Model {
	m := New(s)
	m.AssignUID(uid)
	return m
}

func TestCollection_保序不去重(t *testing.T) {
	a, b := withUID(tagSchema, 1), withUID(tagSchema, 2)
	c := NewCollection(a, b, a)
	if c.Count() != 3 || c.First() != a || c.At(1) != b {
		t.Fatalf("期望保序不去重, got=%v", c.Models())
	}
	if got := c.UIDList(); got != "1,2,1" {
		t.Fatalf("期望 UIDList=1,2,1, got=%q", got)
	}
	if !c.Remove(a) || c.UIDList() != "2,1" {
		t.Fatalf("期望只删第一次出现, got=%q", c.UIDList())
	}
	if !c.HasUID(1) {
		t.Fatalf("期望剩下的那个 1 仍然命中")
	}
}

func TestCollection_后分配uid的成员也能命中(t *testing.T) {
	v := New(tagSchema)
	c := NewCollection(v)
	if c.HasUID(0) {
		t.Fatalf("期望 uid 0 永不命中")
	}
	v.AssignUID(11)
	if !c.HasUID(11) {
		t.Fatalf("期望拿到 uid 后能命中")
	}
	if got := c.UIDs(); len(got) != 1 || got[0] != 11 {
		t.Fatalf("got=%v", got)
	}
}

func TestCollection_空集合(t *testing.T) {
	c := NewCollection()
	if !c.IsEmpty() || c.First() != nil || c.UIDList() != "" || c.OwningParent() != nil {
		t.Fatalf("期望空集合")
	}
}

func TestCollection_SortBy按比较函数稳定排序(t *testing.T) {
	c := NewCollection(withUID(tagSchema, 3), withUID(tagSchema, 1), withUID(tagSchema, 2))
	c.SortBy(func(a, b *Model) int { return int(a.UID()) - int(b.UID()) })
	if got := c.UIDList(); got != "1,2,3" {
		t.Fatalf("got=%q", got)
	}
}

func TestParseUIDList_跳过0和空项(t *testing.T) {
	got, err := ParseUIDList("0")
	if err != nil || len(got) != 0 {
		t.Fatalf("期望 \"0\" 解析为空, got=%v err=%v", got, err)
	}
	got, err = ParseUIDList([]byte("3, 0,,5"))
	if err != nil || len(got) != 2 || got[0] != 3 || got[1] != 5 {
		t.Fatalf("got=%v err=%v", got, err)
	}
	if _, err := ParseUIDList("1,x"); err == nil {
		t.Fatalf("期望非法项报错")
	}
}

func TestParseUIDList_负数返回InvalidID(t *testing.T) {
	_, err := ParseUIDList("3,-1")
	if !errors.Is(err, ErrInvalidID) {
		t.Fatalf("期望 ErrInvalidID, got=%v", err)
	}
	if errors.Is(err, ErrKindMismatch) {
		t.Fatalf("负数不是类型错误, got=%v", err)
	}
}

func TestClosure_自引用只有一个节点(t *testing.T) {
	ctx := context.Background()
	a := withUID(nodeSchema, 1)
	_ = a.SetData(map[string]any{"subgroup": []*Model{a}})
	got, err := Closure(ctx, a, fSub)
	if err != nil || len(got) != 1 || got[0] != a {
		t.Fatalf("期望闭包只有自身, got=%v err=%v", got, err)
	}
}

func TestClosure_两节点环有两个节点(t *testing.T) {
	ctx := context.Background()
	a, b := withUID(nodeSchema, 1), withUID(nodeSchema, 2)
	_ = a.SetData(map[string]any{"subgroup": []*Model{b}})
	_ = b.SetData(map[string]any{"subgroup": []*Model{a}})
	got, err := Closure(ctx, a, fSub)
	if err != nil || len(got) != 2 {
		t.Fatalf("期望 2 个节点, got=%v err=%v", got, err)
	}
}

func TestClosure_回到起点的环每个节点只展开一次(t *testing.T) {
	ctx := context.Background()
	a, b, c := withUID(nodeSchema, 1), withUID(nodeSchema, 2), withUID(nodeSchema, 3)
	_ = a.SetData(map[string]any{"subgroup": []*Model{b}})
	_ = b.SetData(map[string]any{"subgroup": []*Model{c, a}})
	_ = c.SetData(map[string]any{"subgroup": []*Model{a}})
	got, err := Closure(ctx, a, fSub)
	if err != nil || len(got) != 3 || got[0] != b || got[1] != c || got[2] != a {
		t.Fatalf("期望 [2 3 1], got=%v err=%v", got, err)
	}
}

func TestClosure_多层层级去重(t *testing.T) {
	ctx := context.Background()
	root, mid, leaf := withUID(nodeSchema, 1), withUID(nodeSchema, 2), withUID(nodeSchema, 3)
	_ = root.SetData(map[string]any{"subgroup": []*Model{mid, leaf}})
	_ = mid.SetData(map[string]any{"subgroup": []*Model{leaf}})
	_ = leaf.SetData(nil)
	got, err := Closure(ctx, root, fSub)
	if err != nil || len(got) != 2 || got[0] != mid || got[1] != leaf {
		t.Fatalf("got=%v err=%v", got, err)
	}
}
