package session

import "context"

type stateContextKey struct{}

// ContextWithState stores the resolved session state in context.
func ContextWithState(ctx context.Context, st State) context.Context {
	return context.WithValue(ctx, stateContextKey{}, st)
}

// StateFromContext extracts the session state placed by the auth
// middleware. Requests that never passed through it read as anonymous,
// settled state.
func StateFromContext(ctx context.Context) State {
	st, ok := ctx.Value(stateContextKey{}).(State)
	if !ok {
		return State{}
	}
	return st
}
