package domain

import (
	"context"

	"ModelMapper/internal/orm/entity"
)

// UserGroup 是 fe_groups 行的类型化视图，数据都在底层 Model 上。
type UserGroup struct {
	m *entity.Model
}

func WrapGroup(m *entity.Model) *UserGroup {
	if m == nil {
		return nil
	}
	return &UserGroup{m: m}
}

func (g *UserGroup) Model() *entity.Model { return g.m }

func (g *UserGroup) UID() uint64 { return g.m.UID() }

func (g *UserGroup) Title(ctx context.Context) (string, error) {
	return entity.Get(ctx, g.m, GroupTitle)
}

func (g *UserGroup) SetTitle(title string) error {
	return entity.Set(g.m, GroupTitle, title)
}

func (g *UserGroup) Description(ctx context.Context) (string, error) {
	return entity.Get(ctx, g.m, GroupDescription)
}

func (g *UserGroup) SetDescription(desc string) error {
	return entity.Set(g.m, GroupDescription, desc)
}

// Subgroups 返回直接子组，按 subgroup 列里的顺序。
func (g *UserGroup) Subgroups(ctx context.Context) (*entity.Collection, error) {
	return entity.Get(ctx, g.m, GroupSubgroups)
}

func (g *UserGroup) AddSubgroup(ctx context.Context, sub *UserGroup) error {
	c, err := g.Subgroups(ctx)
	if err != nil {
		return err
	}
	if c.HasUID(sub.UID()) && sub.UID() != 0 {
		return nil
	}
	c.Add(sub.m)
	return nil
}

// AllSubgroups 返回全部后代组（去重）。自引用或成环时，自己也会出现在结果里。
func (g *UserGroup) AllSubgroups(ctx context.Context) ([]*UserGroup, error) {
	models, err := entity.Closure(ctx, g.m, GroupSubgroups)
	if err != nil {
		return nil, err
	}
	return wrapGroups(models), nil
}

func (g *UserGroup) HasSubgroup(ctx context.Context, uid uint64) (bool, error) {
	all, err := g.AllSubgroups(ctx)
	if err != nil {
		return false, err
	}
	for _, sub := range all {
		if sub.UID() == uid {
			return true, nil
		}
	}
	return false, nil
}

func wrapGroups(models []*entity.Model) []*UserGroup {
	out := make([]*UserGroup, 0, len(models))
	for _, m := range models {
		out = append(out, WrapGroup(m))
	}
	return out
}
