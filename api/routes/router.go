package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skarvik/fabops-backend/api/controllers"
	"github.com/skarvik/fabops-backend/api/middleware"
	auditsvc "github.com/skarvik/fabops-backend/internal/audit"
	receiptsvc "github.com/skarvik/fabops-backend/internal/receipts"
	stocksvc "github.com/skarvik/fabops-backend/internal/stock"
	tenantsvc "github.com/skarvik/fabops-backend/internal/tenants"
	"github.com/skarvik/fabops-backend/pkg/config"
	"github.com/skarvik/fabops-backend/pkg/db"
	"github.com/skarvik/fabops-backend/pkg/enums"
	"github.com/skarvik/fabops-backend/pkg/logger"
	pkgredis "github.com/skarvik/fabops-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database db.Pinger,
	redisClient *pkgredis.Client,
	metricsHandler http.Handler,
	tenantsService tenantsvc.Service,
	receiptsService receiptsvc.Service,
	stockService stocksvc.Service,
	auditService auditsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var cache pkgredis.Pinger
	if redisClient != nil {
		cache = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, database, cache, logg))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(middleware.Idempotency(redisClient, logg))
			r.Use(middleware.RateLimit(redisClient, logg))
		}

		r.Route("/receipts", func(r chi.Router) {
			r.Post("/", controllers.CreateReceipt(receiptsService, logg))
			r.Delete("/{receiptId}", controllers.DeleteReceipt(receiptsService, logg))
		})

		r.Route("/stock", func(r chi.Router) {
			r.Route("/lots/{lotId}", func(r chi.Router) {
				r.Post("/reserve", controllers.ReserveLot(stockService, logg))
				r.Post("/release", controllers.ReleaseLot(stockService, logg))
				r.Post("/consume", controllers.ConsumeLot(stockService, logg))
			})
			r.Route("/profiles/{profileId}", func(r chi.Router) {
				r.Get("/", controllers.GetProfile(stockService, logg))
				r.Post("/reserve", controllers.ReserveProfile(stockService, logg))
				r.Post("/release", controllers.ReleaseProfile(stockService, logg))
				r.Post("/usage", controllers.RecordProfileUsage(stockService, logg))
			})
			r.Route("/remnants/{remnantId}", func(r chi.Router) {
				r.Post("/reserve", controllers.ReserveRemnant(stockService, logg))
				r.Post("/release", controllers.ReleaseRemnant(stockService, logg))
				r.Post("/usage", controllers.RecordRemnantUsage(stockService, logg))
			})
		})

		r.Route("/audit", func(r chi.Router) {
			r.Get("/", controllers.ListAuditByDateRange(auditService, logg))
			r.Get("/entities/{entityId}", controllers.ListEntityAudit(auditService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRoles(logg, enums.ActorRoleAdmin))
			r.Post("/tenants", controllers.ProvisionTenant(tenantsService, logg))
			r.Get("/receipts/{receiptId}", controllers.GetReceiptAdmin(receiptsService, logg))
		})
	})

	// Read-only surface for machine callers holding a tenant API key.
	r.Route("/api/service/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(tenantsService, logg))
		if redisClient != nil {
			r.Use(middleware.RateLimit(redisClient, logg))
		}

		r.Get("/stock/profiles/{profileId}", controllers.GetProfile(stockService, logg))
		r.Get("/audit", controllers.ListAuditByDateRange(auditService, logg))
		r.Get("/audit/entities/{entityId}", controllers.ListEntityAudit(auditService, logg))
	})

	return r
}
