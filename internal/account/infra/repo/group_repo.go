package repo

import (
	"context"

	"ModelMapper/internal/account/domain"
	"ModelMapper/internal/orm/entity"
	"ModelMapper/internal/orm/mapper"
	"ModelMapper/internal/orm/port"
)

type GroupRepo struct {
	reg *mapper.Registry
}

func NewGroupRepo(reg *mapper.Registry) *GroupRepo {
	return &GroupRepo{reg: reg}
}

func (r *GroupRepo) mapper() (*mapper.DataMapper, error) {
	return r.reg.Get(domain.TypeGroup)
}

func (r *GroupRepo) GetByUID(ctx context.Context, uid uint64) (*domain.UserGroup, error) {
	dm, err := r.mapper()
	if err != nil {
		return nil, domain.LookupError(err, domain.ErrGroupNotFound, "uid", uid)
	}
	m, err := dm.Find(ctx, uid)
	if err == nil {
		err = m.EnsureLoaded(ctx)
	}
	if err != nil {
		return nil, domain.LookupError(err, domain.ErrGroupNotFound, "uid", uid)
	}
	return domain.WrapGroup(m), nil
}

func (r *GroupRepo) GetByTitle(ctx context.Context, title string) (*domain.UserGroup, error) {
	dm, err := r.mapper()
	if err != nil {
		return nil, domain.LookupError(err, domain.ErrGroupNotFound, "title", title)
	}
	m, err := dm.FindOneBy(ctx, port.Where{domain.GroupTitle.Def().Column: title})
	if err != nil {
		return nil, domain.LookupError(err, domain.ErrGroupNotFound, "title", title)
	}
	return domain.WrapGroup(m), nil
}

// All 按标题排序返回全部未删除的组。
func (r *GroupRepo) All(ctx context.Context) ([]*domain.UserGroup, error) {
	dm, err := r.mapper()
	if err != nil {
		return nil, domain.ErrSystemUnavailable.WithCause(err)
	}
	c, err := dm.FindAll(ctx, domain.GroupTitle.Def().Column)
	if err != nil {
		return nil, domain.ErrSystemUnavailable.WithCause(err)
	}
	out := make([]*domain.UserGroup, 0, c.Count())
	for m := range c.All() {
		out = append(out, domain.WrapGroup(m))
	}
	return out, nil
}

func (r *GroupRepo) Create(title string) (*domain.UserGroup, error) {
	dm, err := r.mapper()
	if err != nil {
		return nil, domain.ErrSystemUnavailable.WithCause(err)
	}
	g := domain.WrapGroup(newModel(dm))
	if err := g.SetTitle(title); err != nil {
		return nil, err
	}
	return g, nil
}

func (r *GroupRepo) Save(ctx context.Context, g *domain.UserGroup) error {
	return save(ctx, r.reg, g.Model())
}

func newModel(dm *mapper.DataMapper) *entity.Model {
	return entity.New(dm.Schema())
}

func save(ctx context.Context, reg *mapper.Registry, m *entity.Model) error {
	dm, err := reg.Get(m.Type())
	if err == nil {
		err = dm.Save(ctx, m)
	}
	return domain.WriteError(err, m)
}
