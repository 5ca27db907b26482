package tenants

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skarvik/fabops-backend/pkg/db/models"
)

// Repository reads and writes the tenant registry.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a tenant repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindByID loads a tenant row by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// FindBySubdomain loads a tenant row by its unique subdomain.
func (r *Repository) FindBySubdomain(ctx context.Context, subdomain string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "subdomain = ?", subdomain).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// Create inserts a tenant row.
func (r *Repository) Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error) {
	if tenant.ID == uuid.Nil {
		tenant.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(tenant).Error; err != nil {
		return nil, err
	}
	return tenant, nil
}

// UpdateAPIKeyHash rotates the stored API key hash.
func (r *Repository) UpdateAPIKeyHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("id = ?", id).
		Update("api_key_hash", hash).Error
}
