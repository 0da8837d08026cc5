package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

// OperatorHeader carries the operator identity when auth is disabled.
const OperatorHeader = "X-Operator-Id"

type principalKey struct{}

// Principal is the authenticated caller.
type Principal struct {
	TenantID   string
	OperatorID string
}

// PrincipalResolver resolves the tenant and operator behind a bearer token.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, token string) (tenantID, operatorID string, err error)
}

// PrincipalFromContext returns the caller from context, if present.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			tenantID, operatorID, err := resolver.ResolvePrincipal(r.Context(), token)
			if err != nil || tenantID == "" {
				http.Error(w, "invalid bearer token", http.StatusUnauthorized)
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{TenantID: tenantID, OperatorID: operatorID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// HeaderMiddleware is used when auth is disabled: every request belongs to
// defaultTenant and names its operator in the X-Operator-Id header.
func HeaderMiddleware(defaultTenant string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := Principal{
				TenantID:   defaultTenant,
				OperatorID: strings.TrimSpace(r.Header.Get(OperatorHeader)),
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
