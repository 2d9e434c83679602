package httputil

import "context"

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID stores the request id set by the middleware.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
