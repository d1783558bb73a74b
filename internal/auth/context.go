package auth

import (
	"context"

	"jobshop/internal/model"
)

type contextKey struct{}

// WithRequestContext stores the request context of an authenticated call.
func WithRequestContext(ctx context.Context, rc model.RequestContext) context.Context {
	return context.WithValue(ctx, contextKey{}, rc)
}

// FromContext returns the request context stored by the authentication middleware.
func FromContext(ctx context.Context) (model.RequestContext, bool) {
	rc, ok := ctx.Value(contextKey{}).(model.RequestContext)
	if !ok || rc.User == nil {
		return model.RequestContext{}, false
	}
	return rc, true
}
