package tenancy

import "context"

type ctxKey string

const tenantKey ctxKey = "flowiq.tenant"

// WithTenant stores the resolved tenant context on the request context.
func WithTenant(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, tenantKey, tc)
}

// FromContext extracts the resolved tenant context if present.
func FromContext(ctx context.Context) (Context, bool) {
	val := ctx.Value(tenantKey)
	if val == nil {
		return Context{}, false
	}
	tc, ok := val.(Context)
	return tc, ok && tc.TenantID != ""
}
