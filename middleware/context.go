package middleware

import (
	"context"
)

// Context key type to avoid collisions
type contextKey string

const (
	// IdentityKey is the context key for the caller identity
	IdentityKey contextKey = "identity"

	// IdentitySourceKey is the context key for how the identity was derived
	IdentitySourceKey contextKey = "identity_source"
)

// IdentitySource names how a request's identity was established
type IdentitySource string

const (
	IdentitySourceToken  IdentitySource = "token"
	IdentitySourceAPIKey IdentitySource = "api_key"
	IdentitySourceIP     IdentitySource = "ip"
)

// GetIdentityFromContext retrieves the caller identity from context
func GetIdentityFromContext(ctx context.Context) string {
	if val := ctx.Value(IdentityKey); val != nil {
		if identity, ok := val.(string); ok {
			return identity
		}
	}
	return ""
}

// WithIdentity adds a caller identity to the context
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentitySourceFromContext retrieves the identity source from context
func GetIdentitySourceFromContext(ctx context.Context) IdentitySource {
	if val := ctx.Value(IdentitySourceKey); val != nil {
		if source, ok := val.(IdentitySource); ok {
			return source
		}
	}
	return ""
}

// WithIdentitySource records how the identity was derived
func WithIdentitySource(ctx context.Context, source IdentitySource) context.Context {
	return context.WithValue(ctx, IdentitySourceKey, source)
}
