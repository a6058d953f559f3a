package app

import "ModelMapper/modules/kit/errx"

type Error = errx.Error

const CodeMembershipDenied errx.Code = "ACCOUNT_MEMBERSHIP_DENIED"

var (
	// ErrMembershipDenied 被禁用的用户不能再加入新组，移除不受限制。
	ErrMembershipDenied = errx.NewBiz(CodeMembershipDenied, "用户已禁用，不能调整用户组")
	ErrUnavailable      = errx.ErrUnavailable
)
