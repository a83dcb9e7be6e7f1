package middleware

import (
	"context"

	"github.com/angelmondragon/portal/internal/tenants"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxUsername contextKey = "username"
	ctxTenant   contextKey = "tenant"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func UsernameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUsername).(string); ok {
		return v
	}
	return ""
}

// TenantFromContext returns the tenant chosen by HostRouter, if any.
func TenantFromContext(ctx context.Context) (tenants.Tenant, bool) {
	if ctx == nil {
		return tenants.Tenant{}, false
	}
	t, ok := ctx.Value(ctxTenant).(tenants.Tenant)
	return t, ok
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithUsername injects the authenticated username into the context.
func WithUsername(ctx context.Context, username string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUsername, username)
}

// WithTenant injects the resolved tenant for downstream handlers.
func WithTenant(ctx context.Context, tenant tenants.Tenant) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxTenant, tenant)
}
