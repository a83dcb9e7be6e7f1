package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/portal/internal/tenants"
	"github.com/angelmondragon/portal/pkg/logger"
)

// TenantResolver maps a Host header to a tenant.
type TenantResolver interface {
	Resolve(host string) tenants.Tenant
}

// RequestRecorder counts finished requests per tenant.
type RequestRecorder interface {
	ObserveRequest(tenant string, status int)
}

// HostRouter dispatches each request to the sub-application of the tenant
// its host resolves to.
type HostRouter struct {
	resolver TenantResolver
	apps     map[string]http.Handler
	metrics  RequestRecorder
	logg     *logger.Logger
}

// NewHostRouter requires an app for every tenant the resolver can return.
func NewHostRouter(table *tenants.Table, apps map[string]http.Handler, metrics RequestRecorder, logg *logger.Logger) (*HostRouter, error) {
	for _, tenant := range table.Tenants() {
		if apps[tenant.Name] == nil {
			return nil, fmt.Errorf("no application registered for tenant %q", tenant.Name)
		}
	}
	return &HostRouter{resolver: table, apps: apps, metrics: metrics, logg: logg}, nil
}

func (h *HostRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tenant := h.resolver.Resolve(r.Host)
	ctx := WithTenant(r.Context(), tenant)
	if h.logg != nil {
		ctx = h.logg.WithTenant(ctx, tenant.Name)
	}

	rec := &statusRecorder{ResponseWriter: w}
	h.apps[tenant.Name].ServeHTTP(rec, r.WithContext(ctx))

	if h.metrics != nil {
		h.metrics.ObserveRequest(tenant.Name, rec.code())
	}
}
