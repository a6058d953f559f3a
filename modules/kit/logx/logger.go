package logx

import (
	"context"

	"ModelMapper/modules/kit/tracex"

	"go.uber.org/zap"
)

// Logger 是映射层和业务层共用的最小日志接口：结构化字段 + ctx 透传（trace/scope）。
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	With(fields ...zap.Field) Logger
	WithContext(ctx context.Context) Logger
}

// Nop 返回丢弃所有输出的 Logger。
func Nop() Logger {
	return NewZapLogger(nil)
}

type zapLogger struct {
	l *zap.Logger
}

// NewZapLogger 包一层 zap；l 为 nil 时等价于 Nop。
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return zapLogger{l: l}
}

func (z zapLogger) With(fields ...zap.Field) Logger {
	if len(fields) == 0 {
		return z
	}
	return zapLogger{l: z.l.With(fields...)}
}

func (z zapLogger) WithContext(ctx context.Context) Logger {
	var fields []zap.Field
	if tid, ok := tracex.TraceIDFrom(ctx); ok {
		fields = append(fields, zap.String("trace_id", tid))
	}
	if sid, ok := tracex.ScopeIDFrom(ctx); ok {
		fields = append(fields, zap.String("scope_id", sid))
	}
	return z.With(fields...)
}

func (z zapLogger) Info(msg string, fields ...zap.Field)  { z.l.Info(msg, fields...) }
func (z zapLogger) Error(msg string, fields ...zap.Field) { z.l.Error(msg, fields...) }
func (z zapLogger) Debug(msg string, fields ...zap.Field) { z.l.Debug(msg, fields...) }
func (z zapLogger) Warn(msg string, fields ...zap.Field)  { z.l.Warn(msg, fields...) }
