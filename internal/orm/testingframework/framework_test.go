package testingframework

import (
	"context"
	"testing"

	"ModelMapper/internal/orm/entity"
	"ModelMapper/internal/orm/infra/persistence/memory"
	"ModelMapper/internal/orm/mapper"
	"ModelMapper/internal/orm/port"
)

var (
	groupTitle  = entity.String("title")
	groupSub    = entity.CSV("subgroup", "group")
	groupSchema = entity.NewSchema("group", "fe_groups", groupTitle, groupSub)
)

func TestReserveUID_越过存储已有值(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	if _, err := st.Insert(ctx, "fe_groups", port.Row{"uid": uint64(40)}); err != nil {
		t.Fatalf("预置行失败: %v", err)
	}
	f := New(st)
	a, _ := f.ReserveUID(ctx, "fe_groups")
	b, _ := f.ReserveUID(ctx, "fe_groups")
	if a != 41 || b != 42 {
		t.Fatalf("got a=%d b=%d", a, b)
	}
	if c, _ := f.ReserveUID(ctx, "fe_users"); c != 1 {
		t.Fatalf("不同表独立计数, got=%d", c)
	}
}

func TestTrack_去重(t *testing.T) {
	f := New(memory.NewStorage())
	f.Track("fe_groups", 3)
	f.Track("fe_groups", 3)
	f.Track("fe_groups", 0)
	f.Track("fe_users", 3)
	if got := f.Tracked("fe_groups"); len(got) != 1 || got[0] != 3 {
		t.Fatalf("got=%v", got)
	}
}

func TestActivate_夹具落库后被清理(t *testing.T) {
	ctx := context.Background()
	st := memory.NewStorage()
	if _, err := st.Insert(ctx, "fe_groups", port.Row{"title": "keep"}); err != nil {
		t.Fatalf("预置行失败: %v", err)
	}
	reg := mapper.NewRegistry(st).Register(groupSchema)
	f := New(st)
	cleanup := f.Activate(reg)

	groups := reg.MustGet("group")
	child, err := groups.GetLoadedTestingModel(ctx, map[string]any{"title": "child"})
	if err != nil {
		t.Fatalf("GetLoadedTestingModel 失败: %v", err)
	}
	parent, err := groups.GetNewGhost(ctx)
	if err != nil {
		t.Fatalf("GetNewGhost 失败: %v", err)
	}
	entity.Set(parent, groupTitle, "parent")
	entity.Set(parent, groupSub, entity.NewCollection(child))
	if err := groups.Save(ctx, parent); err != nil {
		t.Fatalf("Save 失败: %v", err)
	}
	if child.UID() != 2 || parent.UID() != 3 {
		t.Fatalf("期望 uid 越过存储已有的 1, got child=%d parent=%d", child.UID(), parent.UID())
	}
	if n := len(st.Rows("fe_groups")); n != 3 {
		t.Fatalf("期望 3 行, got=%d", n)
	}

	if err := cleanup(); err != nil {
		t.Fatalf("清理失败: %v", err)
	}
	rows := st.Rows("fe_groups")
	if len(rows) != 1 || rows[0]["title"] != "keep" {
		t.Fatalf("期望只剩预置行, got=%v", rows)
	}
	if reg.MustGet("group").IdentityMap().Len() != 0 {
		t.Fatalf("期望清理后 identity map 为空")
	}
}
