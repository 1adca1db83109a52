package logging

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{ name string }

var (
	loggerKey    = ctxKey{"logger"}
	requestIDKey = ctxKey{"request_id"}
)

// WithLogger stores logger in ctx. A nil logger stores the default.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	if logger == nil {
		logger = Default()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or the default logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*zerolog.Logger); ok && l != nil {
			return l
		}
	}
	return Default()
}

// Ctx is FromContext.
func Ctx(ctx context.Context) *zerolog.Logger { return FromContext(ctx) }

// WithFields derives a context whose logger carries fields.
func WithFields(ctx context.Context, fields map[string]any) context.Context {
	lc := FromContext(ctx).With()
	for k, v := range fields {
		lc = addField(lc, k, v)
	}
	l := lc.Logger()
	return WithLogger(ctx, &l)
}

func withStr(ctx context.Context, key, value string) context.Context {
	l := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, &l)
}

// WithRequestID records the request ID in ctx and on its logger.
func WithRequestID(ctx context.Context, id string) context.Context {
	return withStr(context.WithValue(ctx, requestIDKey, id), "request_id", id)
}

// RequestID returns the ID stored by WithRequestID.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithEventType tags the logger with the event type being handled.
func WithEventType(ctx context.Context, eventType string) context.Context {
	return withStr(ctx, "event_type", eventType)
}

// WithUser tags the logger with the stream subject.
func WithUser(ctx context.Context, userID string) context.Context {
	return withStr(ctx, "user_id", userID)
}

// WithTransport tags the logger with the transport name.
func WithTransport(ctx context.Context, transport string) context.Context {
	return withStr(ctx, "transport", transport)
}

// WithError attaches err to the logger. A nil err returns ctx unchanged.
func WithError(ctx context.Context, err error) context.Context {
	if err == nil {
		return ctx
	}
	l := FromContext(ctx).With().Err(err).Logger()
	return WithLogger(ctx, &l)
}
