// Package trace provides request ID generation and context propagation for
// correlating log lines across handler → collaborator boundaries.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// requestKey is the unexported context key used to store the request ID.
type requestKey struct{}

// GenerateID returns a new unique request ID.
func GenerateID() string {
	return "req_" + uuid.NewString()
}

// WithRequestID returns a child context carrying the given request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestKey{}, id)
}

// FromContext extracts the request ID from ctx, returning "" if absent.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestKey{}).(string); ok {
		return v
	}
	return ""
}
