package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config 定义日志初始化配置
// Level 支持 debug/info/warn/error，Environment 为 prod 时输出 JSON
// WithSource 控制是否记录源码位置，Output 为空时写入 stdout
type Config struct {
	Level       string
	Environment string
	WithSource  bool
	Output      io.Writer
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

// New 根据配置创建新的 slog.Logger，不设置全局实例
func New(cfg Config) (*slog.Logger, error) {
	lvl, err := levelFromString(cfg.Level)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{Level: lvl, AddSource: cfg.WithSource}
	var handler slog.Handler
	if strings.ToLower(cfg.Environment) == "prod" || strings.ToLower(cfg.Environment) == "production" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
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

// L 返回全局 logger；未初始化时退回 slog.Default，便于单元测试直接使用各组件
func L() *slog.Logger {
	if global == nil {
		return slog.Default()
	}
	return global
}

// LogUpstreamCall 记录一次对 Zoom API 的出站调用
// outcome: 状态码字符串，或 network_error/timeout
// attempt: 从 1 开始的尝试次数
// durationMs: 本次尝试耗时（毫秒）
func LogUpstreamCall(ctx context.Context, logger *slog.Logger, method, path, outcome string, attempt int, durationMs int64, err error) {
	attrs := []slog.Attr{
		slog.String("method", method),
		slog.String("path", path),
		slog.String("outcome", outcome),
		slog.Int("attempt", attempt),
		slog.Int64("duration_ms", durationMs),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		logger.LogAttrs(ctx, slog.LevelWarn, "upstream call failed", attrs...)
		return
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "upstream call", attrs...)
}
