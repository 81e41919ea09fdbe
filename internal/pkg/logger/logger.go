// internal/pkg/logger/logger.go

// Package logger wires slog for the marketplace binaries. Every log line
// carries the request correlation attributes the HTTP middleware stores in
// the context, and sensitive attribute values are redacted before they
// reach any sink.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ContextKey identifies a request-scoped value the middleware attaches for
// log correlation.
type ContextKey string

const (
	ContextKeyRequestID  ContextKey = "request_id"
	ContextKeySessionID  ContextKey = "session_id"
	ContextKeyUserID     ContextKey = "user_id"
	ContextKeyTraceID    ContextKey = "trace_id"
	ContextKeyClientIP   ContextKey = "client_ip"
	ContextKeyUserAgent  ContextKey = "user_agent"
	ContextKeyMethod     ContextKey = "method"
	ContextKeyPath       ContextKey = "path"
	ContextKeyStatusCode ContextKey = "status_code"
	ContextKeyDuration   ContextKey = "duration_ms"
)

// requestKeys are the context keys copied onto every record.
var requestKeys = []ContextKey{
	ContextKeyRequestID,
	ContextKeySessionID,
	ContextKeyUserID,
	ContextKeyTraceID,
	ContextKeyClientIP,
	ContextKeyUserAgent,
	ContextKeyMethod,
	ContextKeyPath,
	ContextKeyStatusCode,
	ContextKeyDuration,
}

// LogConfig controls handler selection and the global attributes stamped
// on every record.
type LogConfig struct {
	Level          string
	Format         string
	Output         string
	AddSource      bool
	ServiceName    string
	ServiceVersion string
	Environment    string
	Elastic        *ELKConfig
}

// Logger is the slog.Logger used across the service plus the config it
// was built from.
type Logger struct {
	*slog.Logger
	cfg *LogConfig
}

var defaultLogger *Logger

// SetupLogger builds the process-wide logger and installs it as the slog
// default. Service identity comes from the environment; when
// ELASTICSEARCH_URL is set, records are also shipped to the ELK stack.
func SetupLogger(level, format string) *Logger {
	cfg := &LogConfig{
		Level:          level,
		Format:         format,
		Output:         "stdout",
		AddSource:      true,
		ServiceName:    envOr("SERVICE_NAME", "bookmybike-marketplace"),
		ServiceVersion: os.Getenv("SERVICE_VERSION"),
		Environment:    os.Getenv("APP_ENV"),
	}
	if esURL := os.Getenv("ELASTICSEARCH_URL"); esURL != "" {
		cfg.Elastic = &ELKConfig{
			ElasticsearchURL: esURL,
			IndexPattern:     cfg.ServiceName,
			BatchSize:        100,
			FlushInterval:    5 * time.Second,
		}
	}

	l := NewLogger(cfg)
	defaultLogger = l
	slog.SetDefault(l.Logger)
	return l
}

// NewLogger builds a logger from an explicit config. Tests use this to
// keep output off the default sink.
func NewLogger(cfg *LogConfig) *Logger {
	if cfg == nil {
		cfg = &LogConfig{Level: "info", Format: "json", Output: "stdout"}
	}

	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		AddSource:   cfg.AddSource,
		ReplaceAttr: normalizeAttr,
	}

	w := openSink(cfg.Output)
	var h slog.Handler
	switch cfg.Format {
	case "text":
		h = newDevHandler(w, opts)
	default:
		h = slog.NewJSONHandler(w, opts)
	}

	if cfg.Elastic != nil {
		h = newTeeHandler(h, NewELKHandler(*cfg.Elastic))
	}
	h = &redactHandler{next: h}
	h = &contextHandler{next: h}

	var attrs []slog.Attr
	if cfg.ServiceName != "" {
		attrs = append(attrs, slog.String("service", cfg.ServiceName))
	}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, slog.String("version", cfg.ServiceVersion))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, slog.String("env", cfg.Environment))
	}
	if len(attrs) > 0 {
		h = h.WithAttrs(attrs)
	}

	return &Logger{Logger: slog.New(h), cfg: cfg}
}

// WithContext returns a logger pre-bound to the correlation attributes
// present in ctx.
func (l *Logger) WithContext(ctx context.Context) *slog.Logger {
	attrs := contextAttrs(ctx)
	if len(attrs) == 0 {
		return l.Logger
	}
	return l.Logger.With(attrs...)
}

// GetDefault returns the logger installed by SetupLogger, building a
// plain JSON logger if setup never ran.
func GetDefault() *Logger {
	if defaultLogger == nil {
		defaultLogger = NewLogger(nil)
	}
	return defaultLogger
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseLevel(level string) slog.Leveler {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openSink(output string) io.Writer {
	switch {
	case output == "stderr":
		return os.Stderr
	case strings.HasPrefix(output, "file:"):
		f, err := os.OpenFile(strings.TrimPrefix(output, "file:"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return os.Stdout
		}
		return f
	default:
		return os.Stdout
	}
}

// normalizeAttr keeps timestamps RFC3339 and reports *_ms durations as
// float milliseconds so log aggregators can chart them.
func normalizeAttr(_ []string, a slog.Attr) slog.Attr {
	switch {
	case a.Key == slog.TimeKey:
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.Format(time.RFC3339Nano))
		}
	case strings.HasSuffix(a.Key, "_ms"):
		if d, ok := a.Value.Any().(time.Duration); ok {
			a.Value = slog.Float64Value(float64(d.Milliseconds()))
		}
	}
	return a
}

func contextAttrs(ctx context.Context) []any {
	var attrs []any
	for _, key := range requestKeys {
		val := ctx.Value(key)
		if val == nil {
			continue
		}
		name := string(key)
		switch v := val.(type) {
		case string:
			if v != "" {
				attrs = append(attrs, slog.String(name, v))
			}
		case int:
			attrs = append(attrs, slog.Int(name, v))
		case time.Duration:
			attrs = append(attrs, slog.Duration(name, v))
		case uuid.UUID:
			attrs = append(attrs, slog.String(name, v.String()))
		default:
			attrs = append(attrs, slog.Any(name, v))
		}
	}
	return attrs
}

// contextHandler copies the request correlation values from the context
// onto each record so call sites never have to repeat them.
type contextHandler struct {
	next slog.Handler
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, rec slog.Record) error {
	attrs := contextAttrs(ctx)
	if len(attrs) == 0 {
		return h.next.Handle(ctx, rec)
	}

	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(a)
		return true
	})
	for _, a := range attrs {
		if attr, ok := a.(slog.Attr); ok {
			out.AddAttrs(attr)
		}
	}
	return h.next.Handle(ctx, out)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{next: h.next.WithGroup(name)}
}

// sensitiveKeys are attribute names whose values must never be logged.
var sensitiveKeys = []string{
	"password", "secret", "token", "api_key", "authorization", "credential",
}

// redactHandler masks attribute values whose key looks like a credential.
type redactHandler struct {
	next slog.Handler
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(redact(a))
		return true
	})
	return h.next.Handle(ctx, out)
}

func redact(a slog.Attr) slog.Attr {
	key := strings.ToLower(a.Key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			a.Value = slog.StringValue("[redacted]")
			return a
		}
	}
	return a
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redact(a)
	}
	return &redactHandler{next: h.next.WithAttrs(redacted)}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{next: h.next.WithGroup(name)}
}

// teeHandler duplicates records to a secondary sink (the ELK shipper).
type teeHandler struct {
	primary   slog.Handler
	secondary slog.Handler
}

func newTeeHandler(primary, secondary slog.Handler) *teeHandler {
	return &teeHandler{primary: primary, secondary: secondary}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.primary.Enabled(ctx, level) || h.secondary.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, rec slog.Record) error {
	err := h.primary.Handle(ctx, rec)
	if serr := h.secondary.Handle(ctx, rec.Clone()); serr != nil && err == nil {
		err = serr
	}
	return err
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{primary: h.primary.WithAttrs(attrs), secondary: h.secondary.WithAttrs(attrs)}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{primary: h.primary.WithGroup(name), secondary: h.secondary.WithGroup(name)}
}

// devHandler renders records as single colored lines for local runs.
type devHandler struct {
	*slog.TextHandler
	w io.Writer
}

func newDevHandler(w io.Writer, opts *slog.HandlerOptions) *devHandler {
	return &devHandler{TextHandler: slog.NewTextHandler(w, opts), w: w}
}

func (h *devHandler) Handle(_ context.Context, rec slog.Record) error {
	color := levelColor(rec.Level)
	fmt.Fprintf(h.w, "%s%s %-5s\033[0m %s", color,
		rec.Time.Format("15:04:05.000"), rec.Level.String(), rec.Message)
	rec.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.w, " \033[36m%s=%v\033[0m", a.Key, a.Value)
		return true
	})
	fmt.Fprintln(h.w)
	return nil
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "\033[31m"
	case level >= slog.LevelWarn:
		return "\033[33m"
	case level >= slog.LevelInfo:
		return "\033[34m"
	default:
		return "\033[37m"
	}
}
