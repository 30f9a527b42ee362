package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/smmwallet/backend/internal/models"
	"github.com/smmwallet/backend/internal/services"
)

type CodeHandler struct {
	codes     *services.CodePoolService
	validator *services.ValidationHelper
}

func NewCodeHandler(codes *services.CodePoolService) *CodeHandler {
	return &CodeHandler{
		codes:     codes,
		validator: services.NewValidationHelper(),
	}
}

// Restock adds plaintext codes to a pool
// @Summary Restock a code pool
// @Tags Admin
// @Accept json
// @Produce json
// @Security AdminSecret
// @Param pool path string true "Pool key"
// @Param request body models.RestockRequest true "Codes"
// @Success 200 {object} models.RestockResult
// @Failure 400 {object} services.ErrorResponse
// @Router /admin/codes/{pool} [post]
func (h *CodeHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req models.RestockRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	result, err := h.codes.Restock(r.Context(), chi.URLParam(r, "pool"), req.Codes)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Stock reports available and reserved counts per pool
// @Summary Code pool stock
// @Tags Admin
// @Produce json
// @Security AdminSecret
// @Success 200 {array} models.PoolStock
// @Router /admin/codes/stock [get]
func (h *CodeHandler) Stock(w http.ResponseWriter, r *http.Request) {
	stock, err := h.codes.Stock(r.Context())
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}
