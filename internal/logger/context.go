package logger

import "context"

// contextKey keeps request-scoped logging values from colliding with keys
// owned by other packages.
type contextKey struct{}

var requestIDKey = contextKey{}

// WithRequestID stores the request id used to correlate log lines for one
// HTTP request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request id carried by ctx, or "" outside a request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
