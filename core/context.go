package core

import "context"

type contextKey int

const (
	sessionContextKey contextKey = iota
	callIDContextKey
)

// WithSession attaches a session to the context as the ambient execution
// scope. Any call identity inherited from another chain is cleared so the new
// session's entry-point call attaches as a root, never as a child of a
// foreign call.
func WithSession(ctx context.Context, s *Session) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, s)
	return context.WithValue(ctx, callIDContextKey, int64(0))
}

// SessionFrom extracts the ambient session from the context.
func SessionFrom(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(*Session)
	return s, ok && s != nil
}

// withCallID marks the given call as the ambient current call for the scope
// of one node invocation. The association travels with the context, not the
// session, so concurrent sibling calls never clobber each other's parent.
func withCallID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, callIDContextKey, id)
}

// CurrentCallID returns the ID of the call currently executing in this
// context chain. The boolean is false outside any node invocation.
func CurrentCallID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(callIDContextKey).(int64)
	return id, ok && id != 0
}
