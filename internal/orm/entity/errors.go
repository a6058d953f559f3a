package entity

import "ModelMapper/modules/kit/errx"

// Code 复用 kit 的错误码类型。
type Code = errx.Code

const (
	CodeInvalidID    Code = "ORM_INVALID_ID"
	CodeNotFound     Code = "ORM_NOT_FOUND"
	CodeWriteDenied  Code = "ORM_WRITE_DENIED"
	CodeModelDead    Code = "ORM_MODEL_DEAD"
	CodeUnknownField Code = "ORM_UNKNOWN_FIELD"
	CodeKindMismatch Code = "ORM_KIND_MISMATCH"
)

// Error 复用通用错误模型。
type Error = errx.Error

// 哨兵错误：只能用 WithData/WithCause 派生，不能直接改。
var (
	// ErrInvalidID find/关系解析拿到了非正的 uid。
	ErrInvalidID = errx.NewBiz(CodeInvalidID, "invalid uid")
	// ErrNotFound load 时按 uid 没有找到记录；只会在第一次访问时出现。
	ErrNotFound = errx.NewBiz(CodeNotFound, "record not found")
	// ErrWriteDenied 对只读实体或已删除的模型做了写操作。
	ErrWriteDenied = errx.NewBiz(CodeWriteDenied, "write denied")
	// ErrModelDead 读取已删除的模型。
	ErrModelDead = errx.NewBiz(CodeModelDead, "model is dead")
	// ErrUnknownField 字段句柄不属于该模型的 schema。
	ErrUnknownField = errx.NewBiz(CodeUnknownField, "unknown field")
	// ErrKindMismatch 值无法转换成字段声明的类型。
	ErrKindMismatch = errx.NewBiz(CodeKindMismatch, "value does not match field kind")
)

const (
	ReasonReadOnly = "read_only"
	ReasonDead     = "dead"
)
