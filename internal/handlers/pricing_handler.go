package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/smmwallet/backend/internal/middleware"
	"github.com/smmwallet/backend/internal/models"
	"github.com/smmwallet/backend/internal/services"
)

type PricingHandler struct {
	pricing   *services.PricingService
	validator *services.ValidationHelper
}

func NewPricingHandler(pricing *services.PricingService) *PricingHandler {
	return &PricingHandler{
		pricing:   pricing,
		validator: services.NewValidationHelper(),
	}
}

// Bulk returns every effective policy of a scope stamped with its version
// @Summary Get scope pricing
// @Tags Pricing
// @Produce json
// @Param scope path string true "services, codes or packages"
// @Success 200 {object} models.PricingBulk
// @Failure 404 {object} services.ErrorResponse
// @Router /pricing/{scope} [get]
func (h *PricingHandler) Bulk(w http.ResponseWriter, r *http.Request) {
	bulk, err := h.pricing.Bulk(r.Context(), chi.URLParam(r, "scope"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bulk)
}

// Version answers the cache validity probe
// @Summary Get scope pricing version
// @Tags Pricing
// @Produce json
// @Param scope path string true "services, codes or packages"
// @Success 200 {object} models.PricingVersion
// @Failure 404 {object} services.ErrorResponse
// @Router /pricing/{scope}/version [get]
func (h *PricingHandler) Version(w http.ResponseWriter, r *http.Request) {
	scope := chi.URLParam(r, "scope")
	version, err := h.pricing.Version(r.Context(), scope)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, models.PricingVersion{Scope: scope, Version: version})
}

// SetOverride stores an operator pricing policy for one catalog key
// @Summary Set pricing override
// @Description Supply expected_version for an optimistic check; omit it for last-write-wins
// @Tags Admin
// @Accept json
// @Produce json
// @Security AdminSecret
// @Param key path string true "Catalog key"
// @Param request body models.SetOverrideRequest true "Policy"
// @Success 200 {object} models.PricingOverride
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/pricing/{key} [put]
func (h *PricingHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var req models.SetOverrideRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	override, err := h.pricing.SetOverride(r.Context(), chi.URLParam(r, "key"), req, middleware.ActorFromContext(r.Context()))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, override)
}

// ClearOverride restores the catalog default for one key
// @Summary Clear pricing override
// @Tags Admin
// @Security AdminSecret
// @Param key path string true "Catalog key"
// @Param expected_version query int false "Version the operator last saw"
// @Success 204
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/pricing/{key} [delete]
func (h *PricingHandler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	var expected *int64
	if raw := r.URL.Query().Get("expected_version"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			services.SendErrorResponse(w, "expected_version must be an integer", http.StatusBadRequest, nil)
			return
		}
		expected = &v
	}

	if err := h.pricing.ClearOverride(r.Context(), chi.URLParam(r, "key"), expected, middleware.ActorFromContext(r.Context())); err != nil {
		sendServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Overrides lists the stored overrides of a scope
// @Summary List pricing overrides
// @Tags Admin
// @Produce json
// @Security AdminSecret
// @Param scope path string true "services, codes or packages"
// @Success 200 {array} models.PricingOverride
// @Router /admin/pricing/scopes/{scope} [get]
func (h *PricingHandler) Overrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.pricing.Overrides(r.Context(), chi.URLParam(r, "scope"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overrides)
}
