package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/skarvik/fabops-backend/api/responses"
	"github.com/skarvik/fabops-backend/internal/tenantctx"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
	"github.com/skarvik/fabops-backend/pkg/logger"
)

const (
	rateLimitWindow   = time.Minute
	rateLimitRequests = 600
)

type fixedWindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit applies a fixed-window cap per tenant. The limiter failing open is
// deliberate: losing redis must not take the API down with it.
func RateLimit(limiter fixedWindowLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			scope := "anonymous"
			if tc, err := tenantctx.From(r.Context()); err == nil {
				scope = tc.TenantID().String()
			}

			allowed, _, err := limiter.FixedWindowAllow(r.Context(), scope, rateLimitRequests, rateLimitWindow)
			if err != nil {
				if logg != nil {
					logg.Error(r.Context(), "rate limit check failed", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
