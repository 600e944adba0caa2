package logger_i

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/akolanti/DocMind/internal/config"
)

type Logger struct {
	inner *slog.Logger
}

// Init installs the default handler. Text output for development, JSON in production.
func Init() {
	InitWith(levelFromString(config.Current().Log.Level), config.IS_PROD || config.Current().Log.JSON)
}

func InitWith(level slog.Level, json bool) {
	InitTo(os.Stdout, level, json)
}

// InitTo writes logs to w. The CLI logs to stderr so stdout stays free for results and MCP frames.
func InitTo(w io.Writer, level slog.Level, json bool) {
	options := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if json {
		if level < config.LOG_LEVEL_PROD && config.IS_PROD {
			options.Level = config.LOG_LEVEL_PROD
		}
		handler = slog.NewJSONHandler(w, options)
	} else {
		handler = slog.NewTextHandler(w, options)
	}
	slog.SetDefault(slog.New(handler))
}

func NewLogger(section string) *Logger {
	return &Logger{
		inner: slog.Default().With("component", section),
	}
}

func (l *Logger) Info(msg string, args ...any) {
	l.inner.Info(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.logWithSource(slog.LevelError, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.logWithSource(slog.LevelWarn, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.logWithSource(slog.LevelDebug, msg, args...)
}

func (l *Logger) logWithSource(level slog.Level, msg string, args ...any) {
	if !l.inner.Enabled(context.Background(), level) {
		return
	}
	var pcs [1]uintptr
	// Skip 3 levels: runtime.Callers, logWithSource, and Err/Dbg wrapper - this looks at GO's stack trace
	runtime.Callers(3, pcs[:])
	record := slog.NewRecord(time.Now(), level, msg, pcs[0])
	record.Add(args...)
	_ = l.inner.Handler().Handle(context.Background(), record)
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		inner: l.inner.With(args...),
	}
}

// WithTrace attaches the request trace id carried by ctx, if any.
func (l *Logger) WithTrace(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	trace, ok := ctx.Value(config.TRACE_ID_KEY).(string)
	if !ok || trace == "" {
		return l
	}
	return l.With(config.TRACE_ID_KEY, trace)
}

func levelFromString(level string) slog.Level {
	switch strings.ToLower(level) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
