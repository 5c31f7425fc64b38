package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldFrameID is the standardized key for timeline frame identifiers.
	FieldFrameID = "frame_id"
	// FieldUserID is the standardized key for the acting editor.
	FieldUserID = "user_id"
	// FieldRequestID is the standardized key for HTTP request correlation identifiers.
	FieldRequestID = "request_id"
	// FieldTopic is the standardized key for notifier topics.
	FieldTopic = "topic"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the user-facing consequence of a warning.
	FieldImpact = "impact"
)

// contextKey values double as the log field each context value is
// written under.
type contextKey string

var contextKeys = []contextKey{FieldRequestID, FieldUserID}

// WithRequestID returns a context carrying the request correlation ID.
// Blank ids leave ctx unchanged.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withField(ctx, FieldRequestID, id)
}

// RequestIDFromContext returns the request ID stored by WithRequestID.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return fieldFrom(ctx, FieldRequestID)
}

// WithUserID returns a context carrying the acting user's identity.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withField(ctx, FieldUserID, userID)
}

// UserIDFromContext returns the user stored by WithUserID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	return fieldFrom(ctx, FieldUserID)
}

func withField(ctx context.Context, key contextKey, value string) context.Context {
	value = strings.TrimSpace(value)
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func fieldFrom(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	value, _ := ctx.Value(key).(string)
	return value, value != ""
}

// WithContext returns logger with the request and user stored in ctx
// attached. A nil logger yields a no-op logger.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	var args []any
	for _, key := range contextKeys {
		if value, ok := fieldFrom(ctx, key); ok {
			args = append(args, slog.String(string(key), value))
		}
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}

// NoopHandler discards all log output.
type NoopHandler struct{}

func (NoopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (NoopHandler) Handle(context.Context, slog.Record) error { return nil }

func (NoopHandler) WithAttrs([]slog.Attr) slog.Handler { return NoopHandler{} }

func (NoopHandler) WithGroup(string) slog.Handler { return NoopHandler{} }
