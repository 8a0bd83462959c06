// context.go carries the report correlation id and the cxdb context id
// through context.Context.

package er2

import "context"

// Context key types (unexported to avoid collisions)
type correlationIDKey struct{}
type contextIDKey struct{}

// contextIDSet distinguishes "zero value" from "not set"
type contextIDSet struct {
	id uint64
}

// WithCorrelationID returns a context carrying the correlation id sent as
// er2_session_id by Recover and the HTTP middleware.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFromContext extracts the correlation id.
// Returns nil if not set or empty.
func CorrelationIDFromContext(ctx context.Context) *string {
	id, ok := ctx.Value(correlationIDKey{}).(string)
	if !ok || id == "" {
		return nil
	}
	return &id
}

// WithContextID returns a context with a cxdb context ID attached, linking
// mirrored reports to an existing conversation.
func WithContextID(ctx context.Context, contextID uint64) context.Context {
	return context.WithValue(ctx, contextIDKey{}, contextIDSet{id: contextID})
}

// ContextIDFromContext extracts the cxdb context ID from context.
// Returns 0 and false if not set.
func ContextIDFromContext(ctx context.Context) (uint64, bool) {
	set, ok := ctx.Value(contextIDKey{}).(contextIDSet)
	if !ok {
		return 0, false
	}
	return set.id, true
}
