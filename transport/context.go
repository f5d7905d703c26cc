package transport

import "context"

type ctxKey int

const (
	refreshCallKey ctxKey = iota
	retriedKey
)

// WithRefreshCall marks ctx as belonging to a refresh exchange. A 401 on a
// request carrying this marker ends the session instead of triggering another
// refresh.
func WithRefreshCall(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshCallKey, true)
}

// IsRefreshCall reports whether ctx was marked with WithRefreshCall.
func IsRefreshCall(ctx context.Context) bool {
	v, _ := ctx.Value(refreshCallKey).(bool)
	return v
}

func withRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey, true)
}

func isRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey).(bool)
	return v
}
