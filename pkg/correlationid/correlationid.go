// Package correlationid carries a per-request correlation ID through contexts,
// HTTP headers and message headers.
package correlationid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP and message header holding the correlation ID.
const Header = "X-Correlation-ID"

type ctxKey struct{}

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the correlation ID stored in ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// New generates a fresh correlation ID.
func New() string {
	return uuid.NewString()
}
