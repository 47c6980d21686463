package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 定义日志初始化配置
// Level 支持 debug/info/warn/error，Environment 支持 prod/dev 等
// WithSource 控制是否记录源码位置
// FilePath 非空时同时写入滚动日志文件
type Config struct {
	Level       string
	Environment string
	WithSource  bool
	FilePath    string
}

var (
	global *slog.Logger
	once   sync.Once
)

func levelFromString(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errors.New("invalid log level: " + level)
	}
}

// output 返回日志输出目标，配置了文件路径时 stdout 与滚动文件双写
func output(cfg Config) io.Writer {
	if cfg.FilePath == "" {
		return os.Stdout
	}
	rotating := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    50, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, rotating)
}

// New 根据配置创建新的 slog.Logger，不设置全局实例
func New(cfg Config) (*slog.Logger, error) {
	lvl, err := levelFromString(cfg.Level)
	if err != nil {
		return nil, err
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl, AddSource: cfg.WithSource}
	w := output(cfg)
	var handler slog.Handler
	if strings.ToLower(cfg.Environment) == "prod" || strings.ToLower(cfg.Environment) == "production" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}

	return slog.New(handler), nil
}

// Init 初始化全局日志实例，重复调用将返回首次创建的 logger
func Init(cfg Config) (*slog.Logger, error) {
	var initErr error
	once.Do(func() {
		global, initErr = New(cfg)
	})
	return global, initErr
}

// L 返回已初始化的全局 logger，未初始化时 panic
func L() *slog.Logger {
	if global == nil {
		panic("logger.Init must be called before logger.L")
	}
	return global
}

// Discard 返回丢弃所有输出的 logger，供测试与未注入 logger 的组件使用
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// LogInferenceCall 记录一次推理调用的结构化日志
// capability: transcribe/translate/sentiment/action_items/interpret/answer
// action: success/error
// durationMs: 调用耗时（毫秒）
// errorCode: 错误代码（可选）
func LogInferenceCall(logger *slog.Logger, capability, action string, durationMs int64, errorCode string) {
	attrs := []slog.Attr{
		slog.String("capability", capability),
		slog.String("action", action),
		slog.Int64("duration_ms", durationMs),
	}

	if errorCode != "" {
		attrs = append(attrs, slog.String("error_code", errorCode))
		logger.LogAttrs(context.Background(), slog.LevelWarn, "inference call failed", attrs...)
	} else {
		logger.LogAttrs(context.Background(), slog.LevelDebug, "inference call", attrs...)
	}
}
