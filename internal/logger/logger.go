package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	gxoerrors "github.com/gxo-labs/trialkit/pkg/trialkit/v1/errors"
	gxolog "github.com/gxo-labs/trialkit/pkg/trialkit/v1/log"
	"go.opentelemetry.io/otel/trace"
)

// Default log level if not specified or invalid.
const defaultLevel = slog.LevelInfo

// ParseLevel converts common log level strings (case-insensitive) to slog
// levels. Unknown strings map to INFO.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return defaultLevel
	}
}

// defaultLogger implements the public Logger interface on top of log/slog.
type defaultLogger struct {
	*slog.Logger
}

var _ gxolog.Logger = (*defaultLogger)(nil)

// NewLogger creates a Logger configured with the specified level, output
// format ("text" or "json"), and writer (defaults to os.Stderr). Records
// logged with a span in their context carry trace_id and span_id.
func NewLogger(levelStr string, formatStr string, writer io.Writer) gxolog.Logger {
	if writer == nil {
		writer = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(levelStr),
		ReplaceAttr: replaceLevelAttribute,
	}

	var base slog.Handler
	switch strings.ToLower(formatStr) {
	case "json":
		base = slog.NewJSONHandler(writer, opts)
	default:
		base = slog.NewTextHandler(writer, opts)
	}
	return &defaultLogger{Logger: slog.New(NewOtelHandler(base))}
}

// NewDiscardLogger returns a logger that drops everything. Handy in tests.
func NewDiscardLogger() gxolog.Logger {
	return NewLogger("error", "text", io.Discard)
}

var levelStringMap = map[slog.Level]string{
	slog.LevelDebug: "DEBUG",
	slog.LevelInfo:  "INFO",
	slog.LevelWarn:  "WARN",
	slog.LevelError: "ERROR",
}

// replaceLevelAttribute renders the level attribute as an uppercase name.
func replaceLevelAttribute(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	level, ok := a.Value.Any().(slog.Level)
	if !ok {
		return a
	}
	if name, exists := levelStringMap[level]; exists {
		a.Value = slog.StringValue(name)
	} else {
		a.Value = slog.StringValue(level.String())
	}
	return a
}

func (l *defaultLogger) logf(level slog.Level, format string, args ...interface{}) {
	ctx := context.Background()
	if !l.Logger.Enabled(ctx, level) {
		return
	}
	l.Logger.Log(ctx, level, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	l.logf(slog.LevelDebug, format, args...)
}

func (l *defaultLogger) Infof(format string, args ...interface{}) {
	l.logf(slog.LevelInfo, format, args...)
}

func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	l.logf(slog.LevelWarn, format, args...)
}

// Errorf logs at ERROR. When the last argument is an error it is also
// attached as structured attributes; a TrialError contributes its trial id
// and plugin type.
func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	ctx := context.Background()
	if !l.Logger.Enabled(ctx, slog.LevelError) {
		return
	}
	msg := fmt.Sprintf(format, args...)
	var attrs []any
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			attrs = errorAttrs(err)
		}
	}
	l.Logger.Log(ctx, slog.LevelError, msg, attrs...)
}

func errorAttrs(err error) []any {
	var te *gxoerrors.TrialError
	if !errors.As(err, &te) {
		return []any{slog.String("error", err.Error())}
	}
	attrs := []any{slog.String("error_type", "TrialError")}
	if te.TrialID != "" {
		attrs = append(attrs, slog.String("trial_id", te.TrialID))
	}
	if te.PluginType != "" {
		attrs = append(attrs, slog.String("plugin_type", te.PluginType))
	}
	if te.Cause != nil {
		attrs = append(attrs, slog.String("error", te.Cause.Error()))
	} else {
		attrs = append(attrs, slog.String("error", te.Error()))
	}
	return attrs
}

func (l *defaultLogger) Log(level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(context.Background(), level, msg, args...)
}

// LogCtx logs with ctx so the OtelHandler can attach trace and span ids.
func (l *defaultLogger) LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{}) {
	l.Logger.Log(ctx, level, msg, args...)
}

func (l *defaultLogger) With(args ...interface{}) gxolog.Logger {
	return &defaultLogger{Logger: l.Logger.With(args...)}
}

func (l *defaultLogger) IsEnabled(level slog.Level) bool {
	return l.Logger.Enabled(context.Background(), level)
}

// OtelHandler is a slog.Handler middleware that injects OpenTelemetry
// trace_id and span_id attributes when the record's context carries a valid span.
type OtelHandler struct {
	next slog.Handler
}

// NewOtelHandler creates a new OtelHandler wrapping the provided handler.
func NewOtelHandler(next slog.Handler) *OtelHandler {
	return &OtelHandler{next: next}
}

func (h *OtelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *OtelHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		record.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return h.next.Handle(ctx, record)
}

func (h *OtelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return NewOtelHandler(h.next.WithAttrs(attrs))
}

func (h *OtelHandler) WithGroup(name string) slog.Handler {
	return NewOtelHandler(h.next.WithGroup(name))
}
