package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userIDKey
	jobIDKey
)

var ctxFields = []struct {
	key   ctxKey
	field string
}{
	{requestIDKey, FieldRequestID},
	{userIDKey, FieldUserID},
	{jobIDKey, FieldJobID},
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func ContextWithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func ContextWithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// WithContext adds the request, user and job ids stored in ctx, plus the
// trace id of the active OpenTelemetry span.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zc := l.zl.With()
	added := false
	for _, cf := range ctxFields {
		if v, ok := ctx.Value(cf.key).(string); ok && v != "" {
			zc = zc.Str(cf.field, v)
			added = true
		}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		zc = zc.Str(FieldTraceID, sc.TraceID().String())
		added = true
	}
	if !added {
		return l
	}
	return l.with(zc.Logger())
}
