package session

import (
	"context"

	"github.com/giygas/hospital-portal/entities"
)

type contextKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s entities.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext returns the session carried by ctx, if any.
func FromContext(ctx context.Context) (entities.Session, bool) {
	s, ok := ctx.Value(contextKey{}).(entities.Session)
	if !ok || !s.Complete() {
		return entities.Session{}, false
	}
	return s, true
}
