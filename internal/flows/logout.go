package flows

import (
	"context"
)

// LogoutStore is the credential store surface needed by logout.
type LogoutStore interface {
	IsAuthenticated() bool
	RefreshToken() string
	Clear(ctx context.Context) (bool, error)
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Store    LogoutStore
	Navigate func(ctx context.Context, reason string)
}

// LogoutResult reports whether a session was actually ended. PersistErr is
// set when memory was cleared but the durable snapshot could not be removed.
type LogoutResult struct {
	Cleared    bool
	PersistErr error
}

// RunLogout clears the store and signals navigation. With no session present
// it does nothing. Callers serialize RunLogout so concurrent logouts collapse
// into one.
func RunLogout(ctx context.Context, reason string, deps LogoutDeps) LogoutResult {
	if !deps.Store.IsAuthenticated() && deps.Store.RefreshToken() == "" {
		return LogoutResult{}
	}

	had, err := deps.Store.Clear(ctx)
	if !had {
		return LogoutResult{PersistErr: err}
	}
	if deps.Navigate != nil {
		deps.Navigate(ctx, reason)
	}
	return LogoutResult{Cleared: true, PersistErr: err}
}
