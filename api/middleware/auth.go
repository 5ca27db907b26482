package middleware

import (
	"net/http"
	"strings"

	"github.com/skarvik/fabops-backend/api/responses"
	"github.com/skarvik/fabops-backend/internal/tenantctx"
	pkgauth "github.com/skarvik/fabops-backend/pkg/auth"
	"github.com/skarvik/fabops-backend/pkg/config"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
	"github.com/skarvik/fabops-backend/pkg/logger"
)

// Auth validates a bearer token and resolves the Tenant Context once, at the
// boundary. Everything downstream receives tenant and actor through
// tenantctx.From; handlers never re-derive them from the request.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			tc, err := tenantctx.New(claims.TenantID, claims.ActorID, claims.Role)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "incomplete token claims"))
				return
			}

			ctx := tenantctx.Inject(r.Context(), tc)
			if logg != nil {
				ctx = logg.WithTenantID(ctx, tc.TenantID().String())
				ctx = logg.WithActorID(ctx, tc.ActorID().String())
				ctx = logg.WithActorRole(ctx, tc.Role().String())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
