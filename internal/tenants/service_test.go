package tenants

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/skarvik/fabops-backend/pkg/config"
	"github.com/skarvik/fabops-backend/pkg/db/models"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
)

func newTenantTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:tenants_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Tenant{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return conn
}

func testAPIKeyConfig() config.APIKeyConfig {
	return config.APIKeyConfig{
		ArgonMemoryKB:    8192,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func newTenantService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db), testAPIKeyConfig())
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestProvisionAndVerifyAPIKey(t *testing.T) {
	db := newTenantTestDB(t)
	svc := newTenantService(t, db)
	ctx := context.Background()

	result, err := svc.Provision(ctx, ProvisionInput{Name: "Skarvik Stål", Subdomain: "Skarvik "})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if result.APIKey == "" {
		t.Fatal("expected plaintext api key")
	}
	if result.Tenant.Subdomain != "skarvik" {
		t.Fatalf("expected normalized subdomain, got %q", result.Tenant.Subdomain)
	}
	if result.Tenant.APIKeyHash == nil || *result.Tenant.APIKeyHash == result.APIKey {
		t.Fatal("plaintext key must not be stored")
	}

	tenant, err := svc.VerifyAPIKey(ctx, "skarvik", result.APIKey)
	if err != nil {
		t.Fatalf("VerifyAPIKey: %v", err)
	}
	if tenant.ID != result.Tenant.ID {
		t.Fatalf("resolved wrong tenant")
	}

	if _, err := svc.VerifyAPIKey(ctx, "skarvik", "wrong-key"); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for wrong key, got %v", err)
	}
	if _, err := svc.VerifyAPIKey(ctx, "nosuch", result.APIKey); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown subdomain, got %v", err)
	}
}

func TestProvisionDuplicateSubdomainConflicts(t *testing.T) {
	db := newTenantTestDB(t)
	svc := newTenantService(t, db)
	ctx := context.Background()

	if _, err := svc.Provision(ctx, ProvisionInput{Name: "First", Subdomain: "dup"}); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	_, err := svc.Provision(ctx, ProvisionInput{Name: "Second", Subdomain: "dup"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestResolveInactiveTenantIsNotFound(t *testing.T) {
	db := newTenantTestDB(t)
	svc := newTenantService(t, db)
	ctx := context.Background()

	tenant := &models.Tenant{
		ID:        uuid.New(),
		Name:      "Dormant",
		Subdomain: "dormant",
		IsActive:  false,
	}
	if err := db.Create(tenant).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}

	if _, err := svc.ResolveBySubdomain(ctx, "dormant"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for inactive tenant, got %v", err)
	}
	if _, err := svc.ResolveByID(ctx, tenant.ID); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for inactive tenant by id, got %v", err)
	}
}

func TestResolveUnknownTenantIsNotFound(t *testing.T) {
	db := newTenantTestDB(t)
	svc := newTenantService(t, db)

	if _, err := svc.ResolveBySubdomain(context.Background(), "ghost"); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
