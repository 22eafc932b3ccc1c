package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "requestID"

var (
	current atomic.Pointer[slog.Logger]
	level   = new(slog.LevelVar)
)

func init() {
	// Compact handler for readable console output, SetJSONOutput for machines
	level.Set(slog.LevelInfo)
	current.Store(slog.New(NewCompactHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func get() *slog.Logger {
	return current.Load()
}

// SetLevel changes the logging level
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Level returns the current logging level
func Level() slog.Level {
	return level.Level()
}

// SetJSONOutput switches to JSON format output
func SetJSONOutput(l slog.Level) {
	level.Set(l)
	current.Store(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// SetOutput sends compact console output to w
func SetOutput(w io.Writer) {
	current.Store(slog.New(NewCompactHandler(w, &slog.HandlerOptions{Level: level})))
}

// New returns a logger tagged with a component name. It follows later
// SetLevel, SetJSONOutput and SetOutput calls.
func New(component string) *slog.Logger {
	return slog.New(dynamicHandler{wrap: func(h slog.Handler) slog.Handler { return h }}).
		With("component", component)
}

// dynamicHandler resolves the process-wide handler on every record
type dynamicHandler struct {
	wrap func(slog.Handler) slog.Handler
}

func (h dynamicHandler) target() slog.Handler {
	return h.wrap(get().Handler())
}

func (h dynamicHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return get().Handler().Enabled(ctx, l)
}

func (h dynamicHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.target().Handle(ctx, r)
}

func (h dynamicHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	wrap := h.wrap
	return dynamicHandler{wrap: func(base slog.Handler) slog.Handler {
		return wrap(base).WithAttrs(attrs)
	}}
}

func (h dynamicHandler) WithGroup(name string) slog.Handler {
	wrap := h.wrap
	return dynamicHandler{wrap: func(base slog.Handler) slog.Handler {
		return wrap(base).WithGroup(name)
	}}
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// Helper function to add request ID to log attributes if present
func withRequestID(ctx context.Context, args []any) []any {
	requestID := GetRequestID(ctx)
	if requestID != "" {
		return append([]any{"requestID", requestID}, args...)
	}
	return args
}

// Trace logs at TRACE level (very verbose, debug-time only)
func Trace(msg string, args ...any) {
	get().Log(context.Background(), slog.LevelDebug-4, msg, args...)
}

// TraceContext logs at TRACE level with context
func TraceContext(ctx context.Context, msg string, args ...any) {
	get().Log(ctx, slog.LevelDebug-4, msg, withRequestID(ctx, args)...)
}

// Debug logs at DEBUG level (internal component behavior)
func Debug(msg string, args ...any) {
	get().Debug(msg, args...)
}

// DebugContext logs at DEBUG level with context
func DebugContext(ctx context.Context, msg string, args ...any) {
	get().DebugContext(ctx, msg, withRequestID(ctx, args)...)
}

// Info logs at INFO level (user-facing operations)
func Info(msg string, args ...any) {
	get().Info(msg, args...)
}

// InfoContext logs at INFO level with context
func InfoContext(ctx context.Context, msg string, args ...any) {
	get().InfoContext(ctx, msg, withRequestID(ctx, args)...)
}

// Warn logs at WARN level (should be monitored)
func Warn(msg string, args ...any) {
	get().Warn(msg, args...)
}

// WarnContext logs at WARN level with context
func WarnContext(ctx context.Context, msg string, args ...any) {
	get().WarnContext(ctx, msg, withRequestID(ctx, args)...)
}

// Error logs at ERROR level (logical bugs that shouldn't happen)
func Error(msg string, args ...any) {
	get().Error(msg, args...)
}

// ErrorContext logs at ERROR level with context
func ErrorContext(ctx context.Context, msg string, args ...any) {
	get().ErrorContext(ctx, msg, withRequestID(ctx, args)...)
}

// Fatal logs at ERROR level and exits (unrecoverable bugs)
func Fatal(msg string, args ...any) {
	get().Error(msg, args...)
	os.Exit(1)
}

// FatalContext logs at ERROR level with context and exits
func FatalContext(ctx context.Context, msg string, args ...any) {
	get().ErrorContext(ctx, msg, withRequestID(ctx, args)...)
	os.Exit(1)
}
