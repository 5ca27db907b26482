package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is the registry row for one customer organization. It is the only
// model that is not itself tenant-scoped.
type Tenant struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name       string    `gorm:"column:name;not null"`
	Subdomain  string    `gorm:"column:subdomain;not null;uniqueIndex:ux_tenants_subdomain"`
	APIKeyHash *string   `gorm:"column:api_key_hash"`
	// No gorm default tag: gorm omits zero-value fields that carry one, which
	// would store an inactive tenant as active. Provision sets the flag.
	IsActive  bool      `gorm:"column:is_active;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
