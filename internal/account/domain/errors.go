package domain

import (
	"errors"

	"ModelMapper/internal/orm/entity"
	"ModelMapper/modules/kit/errx"
)

// 查不到属于业务错误；存储故障统一归到 kit 的 STORAGE_UNAVAILABLE。
const (
	CodeUserNotFound  errx.Code = "ACCOUNT_USER_NOT_FOUND"
	CodeGroupNotFound errx.Code = "ACCOUNT_GROUP_NOT_FOUND"
)

var (
	ErrUserNotFound      = errx.NewBiz(CodeUserNotFound, "用户不存在")
	ErrGroupNotFound     = errx.NewBiz(CodeGroupNotFound, "用户组不存在")
	ErrSystemUnavailable = errx.ErrUnavailable
)

// LookupError 翻译映射层按条件查找失败的错误：
// 记录不存在或 uid 非法 → notFound，其它 → ErrSystemUnavailable。key/val 是查找条件。
func LookupError(err error, notFound *errx.Error, key string, val any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, entity.ErrNotFound) || errors.Is(err, entity.ErrInvalidID) {
		return notFound.WithData(key, val).WithCause(err)
	}
	return ErrSystemUnavailable.WithData(key, val).WithCause(err)
}

// WriteError 翻译保存/删除失败：映射层的业务错误（只读、已删除）原样返回，其余视为存储故障。
func WriteError(err error, m *entity.Model) error {
	if err == nil {
		return nil
	}
	var e *errx.Error
	if errors.As(err, &e) && !e.IsSys() {
		return err
	}
	return ErrSystemUnavailable.WithData("type", string(m.Type())).WithData("uid", m.UID()).WithCause(err)
}
