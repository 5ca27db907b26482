package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	auditsvc "github.com/skarvik/fabops-backend/internal/audit"
	receiptsvc "github.com/skarvik/fabops-backend/internal/receipts"
	stocksvc "github.com/skarvik/fabops-backend/internal/stock"
	"github.com/skarvik/fabops-backend/internal/tenantctx"
	tenantsvc "github.com/skarvik/fabops-backend/internal/tenants"
	pkgauth "github.com/skarvik/fabops-backend/pkg/auth"
	"github.com/skarvik/fabops-backend/pkg/config"
	"github.com/skarvik/fabops-backend/pkg/db/models"
	"github.com/skarvik/fabops-backend/pkg/enums"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
	"github.com/skarvik/fabops-backend/pkg/logger"
	"github.com/skarvik/fabops-backend/pkg/pagination"
	pkgredis "github.com/skarvik/fabops-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubTenantsService struct{}

func (stubTenantsService) ResolveByID(context.Context, uuid.UUID) (*models.Tenant, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
}

func (stubTenantsService) ResolveBySubdomain(context.Context, string) (*models.Tenant, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
}

func (stubTenantsService) VerifyAPIKey(context.Context, string, string) (*models.Tenant, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
}

func (stubTenantsService) Provision(context.Context, tenantsvc.ProvisionInput) (*tenantsvc.ProvisionResult, error) {
	return &tenantsvc.ProvisionResult{APIKey: "key"}, nil
}

type stubReceiptsService struct{}

func (stubReceiptsService) Create(context.Context, tenantctx.TenantContext, receiptsvc.CreateInput) (*receiptsvc.CreateResult, error) {
	return &receiptsvc.CreateResult{}, nil
}

func (stubReceiptsService) Delete(context.Context, tenantctx.TenantContext, uuid.UUID) error {
	return nil
}

func (stubReceiptsService) GetIncludingDeleted(context.Context, tenantctx.TenantContext, uuid.UUID) (*receiptsvc.ReceiptDTO, error) {
	return &receiptsvc.ReceiptDTO{}, nil
}

type stubStockService struct{}

func (stubStockService) ReserveLot(context.Context, tenantctx.TenantContext, uuid.UUID, stocksvc.ReserveLotInput) (*stocksvc.LotDTO, error) {
	return &stocksvc.LotDTO{}, nil
}

func (stubStockService) ReleaseLot(context.Context, tenantctx.TenantContext, uuid.UUID, stocksvc.ReleaseInput) (*stocksvc.LotDTO, error) {
	return &stocksvc.LotDTO{}, nil
}

func (stubStockService) ConsumeLot(context.Context, tenantctx.TenantContext, uuid.UUID, stocksvc.ConsumeLotInput) (*stocksvc.LotDTO, error) {
	return &stocksvc.LotDTO{}, nil
}

func (stubStockService) ReserveProfile(context.Context, tenantctx.TenantContext, uuid.UUID, stocksvc.ReserveInput) (*stocksvc.ProfileDTO, error) {
	return &stocksvc.ProfileDTO{}, nil
}

func (stubStockService) ReleaseProfile(context.Context, tenantctx.TenantContext, uuid.UUID, stocksvc.ReleaseInput) (*stocksvc.ProfileDTO, error) {
	return &stocksvc.ProfileDTO{}, nil
}

func (stubStockService) ReserveRemnant(context.Context, tenantctx.TenantContext, uuid.UUID, stocksvc.ReserveInput) (*stocksvc.RemnantDTO, error) {
	return &stocksvc.RemnantDTO{}, nil
}

func (stubStockService) ReleaseRemnant(context.Context, tenantctx.TenantContext, uuid.UUID, stocksvc.ReleaseInput) (*stocksvc.RemnantDTO, error) {
	return &stocksvc.RemnantDTO{}, nil
}

func (stubStockService) RecordProfileUsage(context.Context, tenantctx.TenantContext, uuid.UUID, stocksvc.UsageInput) (*stocksvc.UsageResult, error) {
	return &stocksvc.UsageResult{}, nil
}

func (stubStockService) RecordRemnantUsage(context.Context, tenantctx.TenantContext, uuid.UUID, stocksvc.UsageInput) (*stocksvc.UsageResult, error) {
	return &stocksvc.UsageResult{}, nil
}

func (stubStockService) GetProfile(context.Context, tenantctx.TenantContext, uuid.UUID) (*stocksvc.ProfileDTO, error) {
	return &stocksvc.ProfileDTO{}, nil
}

type stubAuditService struct{}

func (stubAuditService) Record(tx *gorm.DB, tc tenantctx.TenantContext, input auditsvc.RecordInput) error {
	return nil
}

func (stubAuditService) ListByEntity(context.Context, tenantctx.TenantContext, enums.AuditEntityType, uuid.UUID, pagination.Params) (*auditsvc.EntryListResult, error) {
	return &auditsvc.EntryListResult{}, nil
}

func (stubAuditService) ListByDateRange(context.Context, tenantctx.TenantContext, time.Time, time.Time, pagination.Params) (*auditsvc.EntryListResult, error) {
	return &auditsvc.EntryListResult{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*pkgredis.Client)(nil),
		nil,
		stubTenantsService{},
		stubReceiptsService{},
		stubStockService{},
		stubAuditService{},
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.ActorRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		TenantID: uuid.New(),
		ActorID:  uuid.New(),
		Role:     role,
		JTI:      uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthEndpointsAreOpen(t *testing.T) {
	router := newTestRouter(testConfig())

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestStockRoutesRejectMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/profiles/"+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestStockRoutesSucceedWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/profiles/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleOperator))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for profile fetch got %d", resp.Code)
	}
}

func TestStockMutationRejectsInvalidBody(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/stock/lots/"+uuid.NewString()+"/reserve", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleOperator))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestAdminGroupRequiresAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	body := `{"name":"Skarvik Mekaniske","subdomain":"skarvik"}`

	nonAdmin := httptest.NewRequest(http.MethodPost, "/api/v1/admin/tenants", strings.NewReader(body))
	nonAdmin.Header.Set("Content-Type", "application/json")
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleOperator))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodPost, "/api/v1/admin/tenants", strings.NewReader(body))
	admin.Header.Set("Content-Type", "application/json")
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for admin provisioning got %d", resp.Code)
	}
}

func TestAdminReceiptRecoveryReadIsRoleGated(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	path := "/api/v1/admin/receipts/" + uuid.NewString()

	nonAdmin := httptest.NewRequest(http.MethodGet, path, nil)
	nonAdmin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleOperator))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, nonAdmin)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, path, nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin recovery read got %d", resp.Code)
	}
}

func TestServiceGroupRequiresAPIKey(t *testing.T) {
	router := newTestRouter(testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/service/v1/stock/profiles/"+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without api key got %d", resp.Code)
	}
}
