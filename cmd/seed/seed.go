package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"ModelMapper/internal/account/app"
	"ModelMapper/internal/account/domain"
	"ModelMapper/internal/account/infra/repo"
	"ModelMapper/internal/orm/dc"
	"ModelMapper/internal/orm/entity"
	"ModelMapper/internal/orm/mapper"
	"ModelMapper/modules/kit/logx"
)

// groupSeed 描述一个组和它的子组标题；admins 把自己也列为子组，演示自引用。
type groupSeed struct {
	title     string
	subgroups []string
}

var groupSeeds = []groupSeed{
	{title: "readers"},
	{title: "reviewers", subgroups: []string{"readers"}},
	{title: "editors", subgroups: []string{"reviewers"}},
	{title: "admins", subgroups: []string{"editors", "admins"}},
}

var userSeeds = map[string][]string{
	"kasper": {"admins"},
	"anna":   {"reviewers"},
}

// seed 幂等：已有的组和用户按标题/用户名复用，只补缺失的关系。
// 建好的模型登记到 center，之后的改动由 center.Flush 落库。
func seed(ctx context.Context, center *dc.DataCenter, log logx.Logger) error {
	var roots []*entity.Model
	defer func() { center.Track(roots...) }()
	return center.Do(ctx, func(ctx context.Context, reg *mapper.Registry) error {
		groups := repo.NewGroupRepo(reg)
		users := repo.NewUserRepo(reg)

		byTitle := make(map[string]*domain.UserGroup, len(groupSeeds))
		for _, gs := range groupSeeds {
			g, err := groups.GetByTitle(ctx, gs.title)
			if errors.Is(err, domain.ErrGroupNotFound) {
				g, err = groups.Create(gs.title)
			}
			if err != nil {
				return err
			}
			byTitle[gs.title] = g
		}
		// 所有组都拿到实例后再连关系，子组可以引用后面才声明的组
		for _, gs := range groupSeeds {
			g := byTitle[gs.title]
			for _, sub := range gs.subgroups {
				if err := g.AddSubgroup(ctx, byTitle[sub]); err != nil {
					return err
				}
			}
			roots = append(roots, g.Model())
		}
		// 先把组落库，Grant 按 uid 查组。Do 持有锁，这里直接走映射器而不是 center.Flush
		for _, g := range roots {
			if err := groups.Save(ctx, domain.WrapGroup(g)); err != nil {
				return err
			}
		}

		svc := app.NewMembershipService(users, groups, log)
		for _, name := range sortedKeys(userSeeds) {
			u, err := users.GetUserByUserName(ctx, name)
			if errors.Is(err, domain.ErrUserNotFound) {
				if u, err = users.Create(name); err == nil {
					err = users.Save(ctx, u)
				}
			}
			if err != nil {
				return err
			}
			roots = append(roots, u.Model())
			for _, title := range userSeeds[name] {
				if _, err := svc.Grant(ctx, u.UID(), byTitle[title].UID()); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// report 打印每个用户的有效组。
func report(ctx context.Context, center *dc.DataCenter, out io.Writer) error {
	return center.Do(ctx, func(ctx context.Context, reg *mapper.Registry) error {
		users := repo.NewUserRepo(reg)
		svc := app.NewMembershipService(users, repo.NewGroupRepo(reg), nil)
		for _, name := range sortedKeys(userSeeds) {
			u, err := users.GetUserByUserName(ctx, name)
			if err != nil {
				return err
			}
			titles, err := svc.EffectiveGroupTitles(ctx, u.UID())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s (uid=%d): %s\n", name, u.UID(), strings.Join(titles, ", "))
		}
		return nil
	})
}

func sortedKeys(m map[string][]string) []string {
	return slices.Sorted(maps.Keys(m))
}
