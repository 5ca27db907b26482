package tenants

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skarvik/fabops-backend/pkg/config"
	"github.com/skarvik/fabops-backend/pkg/db"
	"github.com/skarvik/fabops-backend/pkg/db/models"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
	"github.com/skarvik/fabops-backend/pkg/security"
)

// Service resolves tenant identity at the request boundary and provisions
// tenants with hashed API keys.
type Service interface {
	ResolveByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	ResolveBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error)
	VerifyAPIKey(ctx context.Context, subdomain, apiKey string) (*models.Tenant, error)
	Provision(ctx context.Context, input ProvisionInput) (*ProvisionResult, error)
}

// ProvisionInput holds the validated payload to create a tenant.
type ProvisionInput struct {
	Name      string
	Subdomain string
}

// ProvisionResult returns the created tenant with the plaintext API key. The
// key is shown exactly once; only its hash is stored.
type ProvisionResult struct {
	Tenant *models.Tenant `json:"tenant"`
	APIKey string         `json:"api_key"`
}

const apiKeyLength = 40

type service struct {
	repo   *Repository
	apiKey config.APIKeyConfig
}

// NewService constructs the tenant service.
func NewService(repo *Repository, apiKey config.APIKeyConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("tenant repository required")
	}
	return &service{repo: repo, apiKey: apiKey}, nil
}

// ResolveByID returns the active tenant or not found. Inactive tenants are
// reported exactly like missing ones so callers cannot probe for existence.
func (s *service) ResolveByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, classifyLookup(err)
	}
	return requireActive(tenant)
}

func (s *service) ResolveBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	if subdomain == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	tenant, err := s.repo.FindBySubdomain(ctx, subdomain)
	if err != nil {
		return nil, classifyLookup(err)
	}
	return requireActive(tenant)
}

// VerifyAPIKey resolves the tenant and checks the presented key against the
// stored Argon2id hash. All failure modes collapse to unauthorized.
func (s *service) VerifyAPIKey(ctx context.Context, subdomain, apiKey string) (*models.Tenant, error) {
	tenant, err := s.ResolveBySubdomain(ctx, subdomain)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key")
		}
		return nil, err
	}
	if tenant.APIKeyHash == nil || apiKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key")
	}
	ok, err := security.VerifyAPIKey(apiKey, *tenant.APIKeyHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify api key hash")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid api key")
	}
	return tenant, nil
}

func (s *service) Provision(ctx context.Context, input ProvisionInput) (*ProvisionResult, error) {
	name := strings.TrimSpace(input.Name)
	subdomain := strings.ToLower(strings.TrimSpace(input.Subdomain))
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if subdomain == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subdomain is required")
	}

	plainKey, err := security.GenerateAPIKey(apiKeyLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate api key")
	}
	hash, err := security.HashAPIKey(plainKey, s.apiKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash api key")
	}

	tenant := &models.Tenant{
		Name:       name,
		Subdomain:  subdomain,
		APIKeyHash: &hash,
		IsActive:   true,
	}
	created, err := s.repo.Create(ctx, tenant)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "subdomain already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert tenant")
	}
	return &ProvisionResult{Tenant: created, APIKey: plainKey}, nil
}

func classifyLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
}

func requireActive(tenant *models.Tenant) (*models.Tenant, error) {
	if !tenant.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	return tenant, nil
}
