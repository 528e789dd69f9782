// Package logger 提供结构化日志功能
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// ContextKey 用于从 context 中提取值的键类型
type ContextKey string

const (
	TraceIDKey     ContextKey = "trace_id"
	SpanIDKey      ContextKey = "span_id"
	RequestIDKey   ContextKey = "request_id"
	JobIDKey       ContextKey = "job_id"
	SeriesIDKey    ContextKey = "series_id"
	InstallmentKey ContextKey = "installment"
	StrategyKey    ContextKey = "strategy"
)

// contextKeys 决定日志字段的输出顺序
var contextKeys = []ContextKey{
	TraceIDKey,
	SpanIDKey,
	RequestIDKey,
	JobIDKey,
	SeriesIDKey,
	InstallmentKey,
	StrategyKey,
}

var defaultLogger *slog.Logger

// Init 初始化输出到 stdout 的日志器
func Init(level string, format string) {
	InitWithWriter(os.Stdout, level, format)
}

// InitWithWriter format 为 json 时输出 JSON，否则为 text
func InitWithWriter(w io.Writer, level string, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level), AddSource: true}
	var base slog.Handler = slog.NewTextHandler(w, opts)
	if strings.EqualFold(format, "json") {
		base = slog.NewJSONHandler(w, opts)
	}
	defaultLogger = slog.New(contextHandler{base})
	slog.SetDefault(defaultLogger)
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// contextHandler 在写出时补上 context 中的关联字段。
// 显式注入的 trace_id 优先，缺失时取当前 span
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		r.AddAttrs(contextAttrs(ctx)...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

func contextAttrs(ctx context.Context) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(contextKeys))
	sc := trace.SpanContextFromContext(ctx)
	for _, key := range contextKeys {
		v := ctx.Value(key)
		if v == nil && sc.IsValid() {
			switch key {
			case TraceIDKey:
				v = sc.TraceID().String()
			case SpanIDKey:
				v = sc.SpanID().String()
			}
		}
		if v != nil {
			attrs = append(attrs, slog.Any(string(key), v))
		}
	}
	return attrs
}

// Default 返回默认日志器，未初始化时按 info/json 初始化
func Default() *slog.Logger {
	if defaultLogger == nil {
		Init("info", "json")
	}
	return defaultLogger
}

// FromContext 绑定 ctx 字段的日志器，适合同一上下文多次记录
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return Default()
	}
	attrs := contextAttrs(ctx)
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return Default().With(args...)
}

// WithContext 将日志上下文信息注入到 context
func WithContext(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

// ValueFromContext 读取注入的字符串值
func ValueFromContext(ctx context.Context, key ContextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}

func Info(ctx context.Context, msg string, args ...any) {
	Default().InfoContext(orBackground(ctx), msg, args...)
}

func Debug(ctx context.Context, msg string, args ...any) {
	Default().DebugContext(orBackground(ctx), msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	Default().WarnContext(orBackground(ctx), msg, args...)
}

// Error err 为 nil 时不输出 error 字段
func Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	Default().ErrorContext(orBackground(ctx), msg, args...)
}

// Fatal 记录后以状态码 1 退出
func Fatal(ctx context.Context, msg string, err error, args ...any) {
	Error(ctx, msg, err, args...)
	os.Exit(1)
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
