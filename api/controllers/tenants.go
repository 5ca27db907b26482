package controllers

import (
	"net/http"

	"github.com/skarvik/fabops-backend/api/responses"
	"github.com/skarvik/fabops-backend/api/validators"
	tenantsvc "github.com/skarvik/fabops-backend/internal/tenants"
	pkgerrors "github.com/skarvik/fabops-backend/pkg/errors"
	"github.com/skarvik/fabops-backend/pkg/logger"
)

// ProvisionTenant creates a tenant and returns its API key exactly once.
func ProvisionTenant(svc tenantsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "tenant service unavailable"))
			return
		}

		var payload provisionTenantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Provision(r.Context(), tenantsvc.ProvisionInput{
			Name:      validators.SanitizeString(payload.Name, 120),
			Subdomain: validators.SanitizeString(payload.Subdomain, 63),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type provisionTenantRequest struct {
	Name      string `json:"name" validate:"required,min=2"`
	Subdomain string `json:"subdomain" validate:"required,min=2"`
}
