package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"ModelMapper/internal/account/domain"
	"ModelMapper/modules/kit/logx"
)

// MembershipService 维护用户和用户组的关系。组的继承（subgroup）只在读的时候展开，写只动直接关系。
type MembershipService struct {
	users  UserRepo
	groups GroupRepo
	log    logx.Logger
}

func NewMembershipService(users UserRepo, groups GroupRepo, log logx.Logger) *MembershipService {
	if log == nil {
		log = logx.Nop()
	}
	return &MembershipService{users: users, groups: groups, log: log}
}

// Grant 把用户加入组；已经是直接成员时不写库。返回是否有变化。
func (s *MembershipService) Grant(ctx context.Context, userUID, groupUID uint64) (bool, error) {
	u, g, err := s.load(ctx, userUID, groupUID)
	if err != nil {
		return false, err
	}
	disabled, err := u.Disabled(ctx)
	if err != nil {
		return false, s.translate(err)
	}
	if disabled {
		return false, ErrMembershipDenied.WithData("uid", userUID)
	}
	added, err := u.AddGroup(ctx, g)
	if err != nil {
		return false, s.translate(err)
	}
	if !added {
		return false, nil
	}
	if err := s.users.Save(ctx, u); err != nil {
		return false, s.translate(err)
	}
	s.log.WithContext(ctx).Info("group granted", zap.Uint64("uid", userUID), zap.Uint64("group", groupUID))
	return true, nil
}

// Revoke 移除直接成员关系，返回是否有变化。
func (s *MembershipService) Revoke(ctx context.Context, userUID, groupUID uint64) (bool, error) {
	u, g, err := s.load(ctx, userUID, groupUID)
	if err != nil {
		return false, err
	}
	removed, err := u.RemoveGroup(ctx, g)
	if err != nil {
		return false, s.translate(err)
	}
	if !removed {
		return false, nil
	}
	if err := s.users.Save(ctx, u); err != nil {
		return false, s.translate(err)
	}
	s.log.WithContext(ctx).Info("group revoked", zap.Uint64("uid", userUID), zap.Uint64("group", groupUID))
	return true, nil
}

// EffectiveGroupTitles 返回用户直接和继承的全部组标题，按首次出现顺序。
// 引用了已经不存在的组时返回 ORM_NOT_FOUND。
func (s *MembershipService) EffectiveGroupTitles(ctx context.Context, userUID uint64) ([]string, error) {
	u, err := s.users.GetByUID(ctx, userUID)
	if err != nil {
		return nil, s.translate(err)
	}
	groups, err := u.AllGroups(ctx)
	if err != nil {
		return nil, s.translate(err)
	}
	titles := make([]string, 0, len(groups))
	for _, g := range groups {
		title, err := g.Title(ctx)
		if err != nil {
			return nil, s.translate(err)
		}
		titles = append(titles, title)
	}
	return titles, nil
}

func (s *MembershipService) load(ctx context.Context, userUID, groupUID uint64) (*domain.User, *domain.UserGroup, error) {
	u, err := s.users.GetByUID(ctx, userUID)
	if err != nil {
		return nil, nil, s.translate(err)
	}
	g, err := s.groups.GetByUID(ctx, groupUID)
	if err != nil {
		return nil, nil, s.translate(err)
	}
	return u, g, nil
}

// translate 业务错误原样返回，其余包装成 ErrUnavailable，保留 cause 链。
func (s *MembershipService) translate(err error) error {
	var e *Error
	if errors.As(err, &e) && !e.IsSys() {
		return err
	}
	if errors.Is(err, ErrUnavailable) {
		return err
	}
	return ErrUnavailable.WithCause(err)
}
