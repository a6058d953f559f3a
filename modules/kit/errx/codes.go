package errx

// 跨包统一的系统类错误码。
// 语义类错误码（ORM_NOT_FOUND 之类）由各自的包定义，不集中在 kit 里。
const (
	// CodeInternal 表示内部不一致（兜底）。
	CodeInternal Code = "INTERNAL_ERROR"
	// CodeUnavailable 表示存储不可用（连接失败、驱动报错等）。
	CodeUnavailable Code = "STORAGE_UNAVAILABLE"
	// CodeTimeout 表示存储调用超时或 ctx 被取消。
	CodeTimeout Code = "TIMEOUT"
	// CodeInvalidArgument 表示调用方传入了非法参数。
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

var (
	ErrInternal        = NewSys(CodeInternal, "internal error")
	ErrUnavailable     = NewSys(CodeUnavailable, "storage unavailable")
	ErrTimeout         = NewSys(CodeTimeout, "timeout")
	ErrInvalidArgument = NewBiz(CodeInvalidArgument, "invalid argument")
)
