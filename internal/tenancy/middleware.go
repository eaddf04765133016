package tenancy

import (
	"net/http"

	"github.com/flowiq/scheduling-platform/pkg/logging"
)

// ResolveTenant installs the tenant context resolved from the request origin
// on every request. Resolution never rejects a request; unknown hosts are
// served as the default tenant.
func ResolveTenant(registry *Registry, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc := registry.Resolve(r.Host, r.URL.Path)
			if tc.IsDefault && r.Host != "" {
				logger.Debug("tenant fallback", "host", r.Host, "tenant_id", tc.TenantID)
			}
			next.ServeHTTP(w, r.WithContext(WithTenant(r.Context(), tc)))
		})
	}
}
