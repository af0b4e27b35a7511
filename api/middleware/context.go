package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	actorIDKey   contextKey = "actor_id"
	actorRoleKey contextKey = "actor_role"
)

const (
	actorIDHeader   = "X-Actor-Id"
	actorRoleHeader = "X-Actor-Role"
)

// Actor copies the caller identity headers into the request context.
// Authentication is handled upstream; requests arrive with resolved actor ids.
func Actor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := strings.TrimSpace(r.Header.Get(actorIDHeader)); id != "" {
				ctx = context.WithValue(ctx, actorIDKey, id)
			}
			if role := strings.TrimSpace(r.Header.Get(actorRoleHeader)); role != "" {
				ctx = context.WithValue(ctx, actorRoleKey, role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithActorID stamps the caller's user id onto the context.
func WithActorID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, actorIDKey, id)
}

// WithActorRole stamps the caller's role onto the context.
func WithActorRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, actorRoleKey, role)
}

// ActorIDFromContext returns the caller's user id or "".
func ActorIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorIDKey).(string); ok {
		return v
	}
	return ""
}

// ActorRoleFromContext returns the caller's role or "".
func ActorRoleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorRoleKey).(string); ok {
		return v
	}
	return ""
}
