package middleware

import (
	"net/http"

	"github.com/skarvik/fabops-backend/api/responses"
	"github.com/skarvik/fabops-backend/internal/tenantctx"
	"github.com/skarvik/fabops-backend/pkg/enums"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
	"github.com/skarvik/fabops-backend/pkg/logger"
)

// RequireRoles rejects callers whose tenant context does not carry one of the
// allowed roles.
func RequireRoles(logg *logger.Logger, allowed ...enums.ActorRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, err := tenantctx.From(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			for _, role := range allowed {
				if tc.Role() == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role"))
		})
	}
}
