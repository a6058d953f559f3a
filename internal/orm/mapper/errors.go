package mapper

import (
	"ModelMapper/internal/orm/entity"
	"ModelMapper/modules/kit/errx"
)

const (
	CodeIdentityConflict errx.Code = "ORM_IDENTITY_CONFLICT"
	CodeUnknownType      errx.Code = "ORM_UNKNOWN_TYPE"
)

var (
	// ErrIdentityConflict 同一个 uid 已登记了另一个实例，说明调用方绕过了 Find。
	ErrIdentityConflict = errx.NewSys(CodeIdentityConflict, "identity map already holds another instance")
	// ErrUnknownType Registry 里没有注册该实体类型。
	ErrUnknownType = errx.NewBiz(CodeUnknownType, "unknown entity type")
)

// 调用方只需要 import mapper 就能判断这些语义错误。
var (
	ErrInvalidID   = entity.ErrInvalidID
	ErrNotFound    = entity.ErrNotFound
	ErrWriteDenied = entity.ErrWriteDenied
	ErrModelDead   = entity.ErrModelDead
)
