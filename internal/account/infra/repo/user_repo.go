package repo

import (
	"context"

	"ModelMapper/internal/account/domain"
	"ModelMapper/internal/orm/mapper"
	"ModelMapper/internal/orm/port"
)

type UserRepo struct {
	reg *mapper.Registry
}

func NewUserRepo(reg *mapper.Registry) *UserRepo {
	return &UserRepo{reg: reg}
}

func (r *UserRepo) mapper() (*mapper.DataMapper, error) {
	return r.reg.Get(domain.TypeUser)
}

// GetByUID 返回已加载的用户；Find 本身是惰性的，这里主动加载一次把“不存在”暴露出来。
func (r *UserRepo) GetByUID(ctx context.Context, uid uint64) (*domain.User, error) {
	dm, err := r.mapper()
	if err != nil {
		return nil, domain.LookupError(err, domain.ErrUserNotFound, "uid", uid)
	}
	m, err := dm.Find(ctx, uid)
	if err == nil {
		err = m.EnsureLoaded(ctx)
	}
	if err != nil {
		return nil, domain.LookupError(err, domain.ErrUserNotFound, "uid", uid)
	}
	return domain.WrapUser(m), nil
}

func (r *UserRepo) GetUserByUserName(ctx context.Context, username string) (*domain.User, error) {
	dm, err := r.mapper()
	if err != nil {
		return nil, domain.LookupError(err, domain.ErrUserNotFound, "username", username)
	}
	m, err := dm.FindOneBy(ctx, port.Where{domain.UserName.Def().Column: username})
	if err != nil {
		return nil, domain.LookupError(err, domain.ErrUserNotFound, "username", username)
	}
	return domain.WrapUser(m), nil
}

// Create 构造一个还没落库的用户，Save 时分配 uid。
func (r *UserRepo) Create(username string) (*domain.User, error) {
	dm, err := r.mapper()
	if err != nil {
		return nil, domain.ErrSystemUnavailable.WithData("username", username).WithCause(err)
	}
	u := domain.WrapUser(newModel(dm))
	if err := u.SetUsername(username); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) Save(ctx context.Context, u *domain.User) error {
	return save(ctx, r.reg, u.Model())
}

func (r *UserRepo) Delete(ctx context.Context, u *domain.User) error {
	dm, err := r.mapper()
	if err == nil {
		err = dm.Delete(ctx, u.Model())
	}
	return domain.WriteError(err, u.Model())
}
