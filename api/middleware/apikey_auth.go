package middleware

import (
	"net/http"
	"strings"

	"github.com/skarvik/fabops-backend/api/responses"
	"github.com/skarvik/fabops-backend/internal/tenantctx"
	tenantsvc "github.com/skarvik/fabops-backend/internal/tenants"
	"github.com/skarvik/fabops-backend/pkg/enums"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
	"github.com/skarvik/fabops-backend/pkg/logger"
)

// APIKeyAuth authenticates service-to-service callers by tenant subdomain and
// API key. The resulting context carries the tenant's own id as the actor
// under the service role.
func APIKeyAuth(tenants tenantsvc.Service, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tenants == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tenant service unavailable"))
				return
			}

			subdomain := strings.TrimSpace(r.Header.Get("X-Tenant"))
			apiKey := strings.TrimSpace(r.Header.Get("X-API-Key"))
			if subdomain == "" || apiKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "tenant credentials required"))
				return
			}

			tenant, err := tenants.VerifyAPIKey(r.Context(), subdomain, apiKey)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			tc, err := tenantctx.New(tenant.ID, tenant.ID, enums.ActorRoleService)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build tenant context"))
				return
			}

			ctx := tenantctx.Inject(r.Context(), tc)
			if logg != nil {
				ctx = logg.WithTenantID(ctx, tenant.ID.String())
				ctx = logg.WithActorRole(ctx, enums.ActorRoleService.String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
