package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type contextKey int

const (
	tenantIDKey contextKey = iota
	operatorIDKey
)

// OperatorHeader carries the operator identity when auth is disabled.
const OperatorHeader = "X-Operator-Id"

// getTenantID extracts tenant ID from context.
func getTenantID(ctx context.Context) string {
	v, _ := ctx.Value(tenantIDKey).(string)
	return v
}

// getOperatorID extracts operator ID from context.
func getOperatorID(ctx context.Context) string {
	v, _ := ctx.Value(operatorIDKey).(string)
	return v
}

// PrincipalResolver resolves the tenant and operator behind a bearer token.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, token string) (tenantID, operatorID string, err error)
}

// authMiddleware implements bearer token authentication as MCP middleware.
func authMiddleware(resolver PrincipalResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Skip auth for protocol methods
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			auth := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("unauthorized: missing bearer token")
			}

			tenantID, operatorID, err := resolver.ResolvePrincipal(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}
			if tenantID == "" {
				return nil, fmt.Errorf("unauthorized: invalid bearer token")
			}

			ctx = context.WithValue(ctx, tenantIDKey, tenantID)
			if operatorID != "" {
				ctx = context.WithValue(ctx, operatorIDKey, operatorID)
			}
			return next(ctx, method, req)
		}
	}
}

// noAuthMiddleware injects a default tenant when auth is disabled. The
// operator comes from the X-Operator-Id header (HTTP) or the
// operator_id metadata field (stdio).
func noAuthMiddleware(defaultTenant string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx = context.WithValue(ctx, tenantIDKey, defaultTenant)
			if operatorID := requestOperator(req); operatorID != "" {
				ctx = context.WithValue(ctx, operatorIDKey, operatorID)
			}
			return next(ctx, method, req)
		}
	}
}

func requestOperator(req sdkmcp.Request) string {
	if req == nil {
		return ""
	}
	if extra := req.GetExtra(); extra != nil && extra.Header != nil {
		if id := strings.TrimSpace(extra.Header.Get(OperatorHeader)); id != "" {
			return id
		}
	}

	// Notifications such as "initialized" may carry nil params behind a
	// non-nil interface; GetMeta panics on those.
	var operatorID string
	func() {
		defer func() { recover() }()
		params := req.GetParams()
		if params == nil {
			return
		}
		if meta := params.GetMeta(); meta != nil {
			operatorID, _ = meta["operator_id"].(string)
		}
	}()
	return operatorID
}
