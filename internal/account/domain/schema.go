package domain

import "ModelMapper/internal/orm/entity"

const (
	TypeUser  entity.Type = "fe_user"
	TypeGroup entity.Type = "fe_group"

	TableUsers  = "fe_users"
	TableGroups = "fe_groups"
)

// 用户组：subgroup 是逗号分隔的子组 uid，可以自引用甚至成环。
var (
	GroupTitle       = entity.String("title")
	GroupDescription = entity.String("description")
	GroupHidden      = entity.Bool("hidden")
	GroupSubgroups   = entity.CSV("subgroup", TypeGroup)

	GroupSchema = entity.NewSchema(TypeGroup, TableGroups,
		GroupTitle, GroupDescription, GroupHidden, GroupSubgroups,
	).WithDeletedColumn("deleted")
)

// 前台用户：usergroup 同样是 CSV。
var (
	UserName     = entity.String("username")
	UserRealName = entity.String("realName", entity.WithColumn("name"))
	UserEmail    = entity.String("email")
	UserDisable  = entity.Bool("disable")
	UserLogins   = entity.Int("loginCount", entity.WithColumn("logincount"))
	UserGroups   = entity.CSV("usergroup", TypeGroup)

	UserSchema = entity.NewSchema(TypeUser, TableUsers,
		UserName, UserRealName, UserEmail, UserDisable, UserLogins, UserGroups,
	).WithDeletedColumn("deleted")
)

// Schemas 返回账号模块需要注册到 mapper.Registry 的全部类型。
func Schemas() []*entity.Schema {
	return []*entity.Schema{UserSchema, GroupSchema}
}
