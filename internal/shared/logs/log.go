package logs

import (
	"io"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ModelMapper/internal/shared/config"
)

var logger = zap.NewNop()

// Init 按配置构建全局 logger，并替换 zap 的全局 logger（配置热加载等处用 zap.L()）。
func Init(appName string, cfg config.LogConfig) (*zap.Logger, error) {
	l := zap.New(newCore(cfg), options(cfg)...).Named(appName)
	if logger != nil {
		_ = logger.Sync()
	}
	logger = l
	zap.ReplaceGlobals(l)
	return l, nil
}

// L 返回当前的全局 logger；未初始化时是 Nop。
func L() *zap.Logger { return logger }

// Sync 刷盘，进程退出前调用。
func Sync() error { return logger.Sync() }

func newCore(cfg config.LogConfig) zapcore.Core {
	// 1) 级别解析失败回退到 info
	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		lvl = zapcore.InfoLevel
	}
	atomicLevel := zap.NewAtomicLevelAt(lvl)

	// 2) console 和 file 共用的字段配置
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stack",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder, // 映射层关心毫秒级耗时
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	// 3) 控制台带颜色，文件是 JSON
	consoleCfg := encoderCfg
	consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	fileCfg := encoderCfg
	fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), atomicLevel)
	w := fileWriter(cfg)
	if w == nil {
		return consoleCore
	}
	// 4) 分两路，避免把 ANSI 颜色写进文件
	return zapcore.NewTee(
		consoleCore,
		zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(w), atomicLevel),
	)
}

// fileWriter 没配文件路径时返回 nil，只输出到控制台。
func fileWriter(cfg config.LogConfig) io.Writer {
	if cfg.FileDir == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   cfg.FileDir,
		MaxSize:    max(1, cfg.MaxSize), // MB，至少 1
		MaxBackups: max(0, cfg.MaxBackups),
		MaxAge:     max(0, cfg.MaxAge),
		Compress:   cfg.Compress,
	}
}

func options(cfg config.LogConfig) []zap.Option {
	opts := []zap.Option{zap.AddCaller()}
	if cfg.Dev {
		// warn 及以上自动带堆栈
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	}
	return opts
}

// 便捷封装：直接打到全局 logger。

func Debug(msg string, fields ...zap.Field) { logger.Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { logger.Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { logger.Warn(msg, fields...) }

// Error 示例：Error("save failed", zap.String("type", "fe_users"), zap.Error(err))
func Error(msg string, fields ...zap.Field) { logger.Error(msg, fields...) }

// Fatal 输出后 os.Exit(1)。
func Fatal(msg string, fields ...zap.Field) { logger.Fatal(msg, fields...) }
