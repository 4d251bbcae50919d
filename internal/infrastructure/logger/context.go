package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey   contextKey = "logger"
	clientIDKey contextKey = "client_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithClientID tags ctx with the client being swept and returns the enriched logger.
func WithClientID(ctx context.Context, l *zap.Logger, clientID string) (context.Context, *zap.Logger) {
	enriched := l.With(zap.String("client_id", clientID))
	ctx = context.WithValue(ctx, clientIDKey, clientID)
	return WithContext(ctx, enriched), enriched
}

// GetClientID returns the client id stored by WithClientID, if any.
func GetClientID(ctx context.Context) string {
	id, _ := ctx.Value(clientIDKey).(string)
	return id
}

// FromContext returns the logger carried by ctx, or a no-op logger.
// Loggers are enriched with trace_id and span_id when ctx carries a valid span.
func FromContext(ctx context.Context) *zap.Logger {
	l, ok := ctx.Value(loggerKey).(*zap.Logger)
	if !ok {
		l = zap.NewNop()
	}
	return WithTraceContext(ctx, l)
}

// WithTraceContext adds trace_id and span_id from the span in ctx.
func WithTraceContext(ctx context.Context, l *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return l.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}
