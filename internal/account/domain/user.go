package domain

import (
	"context"

	"ModelMapper/internal/orm/entity"
)

// User 是 fe_users 行的类型化视图。
type User struct {
	m *entity.Model
}

func WrapUser(m *entity.Model) *User {
	if m == nil {
		return nil
	}
	return &User{m: m}
}

func (u *User) Model() *entity.Model { return u.m }

func (u *User) UID() uint64 { return u.m.UID() }

func (u *User) Username(ctx context.Context) (string, error) {
	return entity.Get(ctx, u.m, UserName)
}

func (u *User) SetUsername(name string) error {
	return entity.Set(u.m, UserName, name)
}

func (u *User) Email(ctx context.Context) (string, error) {
	return entity.Get(ctx, u.m, UserEmail)
}

func (u *User) SetEmail(email string) error {
	return entity.Set(u.m, UserEmail, email)
}

func (u *User) Disabled(ctx context.Context) (bool, error) {
	return entity.Get(ctx, u.m, UserDisable)
}

func (u *User) SetDisabled(v bool) error {
	return entity.Set(u.m, UserDisable, v)
}

// Groups 返回直接所属的组。
func (u *User) Groups(ctx context.Context) (*entity.Collection, error) {
	return entity.Get(ctx, u.m, UserGroups)
}

// AddGroup 已经是成员时不重复添加。
func (u *User) AddGroup(ctx context.Context, g *UserGroup) (bool, error) {
	c, err := u.Groups(ctx)
	if err != nil {
		return false, err
	}
	if g.UID() != 0 && c.HasUID(g.UID()) {
		return false, nil
	}
	c.Add(g.m)
	return true, nil
}

// RemoveGroup 只移除直接成员关系，继承来的组不受影响。
func (u *User) RemoveGroup(ctx context.Context, g *UserGroup) (bool, error) {
	c, err := u.Groups(ctx)
	if err != nil {
		return false, err
	}
	removed := false
	for _, m := range c.Models() {
		if m == g.m || (g.UID() != 0 && m.UID() == g.UID()) {
			removed = c.Remove(m) || removed
		}
	}
	return removed, nil
}

// AllGroups 返回直接所属的组加上它们的全部后代组，按首次出现顺序去重。
func (u *User) AllGroups(ctx context.Context) ([]*UserGroup, error) {
	direct, err := u.Groups(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[*entity.Model]struct{})
	var out []*UserGroup
	add := func(m *entity.Model) {
		if _, ok := seen[m]; ok {
			return
		}
		seen[m] = struct{}{}
		out = append(out, WrapGroup(m))
	}
	for g := range direct.All() {
		add(g)
		subs, err := entity.Closure(ctx, g, GroupSubgroups)
		if err != nil {
			return nil, err
		}
		for _, s := range subs {
			add(s)
		}
	}
	return out, nil
}

func (u *User) HasGroupMembership(ctx context.Context, groupUID uint64) (bool, error) {
	all, err := u.AllGroups(ctx)
	if err != nil {
		return false, err
	}
	for _, g := range all {
		if g.UID() == groupUID {
			return true, nil
		}
	}
	return false, nil
}
