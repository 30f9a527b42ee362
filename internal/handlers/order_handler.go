package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/smmwallet/backend/internal/middleware"
	"github.com/smmwallet/backend/internal/models"
	"github.com/smmwallet/backend/internal/services"
)

type OrderHandler struct {
	orders    *services.OrderService
	validator *services.ValidationHelper
}

func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orders:    orders,
		validator: services.NewValidationHelper(),
	}
}

// Create places an order and charges the wallet
// @Summary Create order
// @Description Price is fixed from the current pricing policy and debited immediately
// @Tags Orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateOrderRequest true "Order"
// @Success 201 {object} models.Order
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUID(w, r)
	if !ok {
		return
	}

	var req models.CreateOrderRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	order, err := h.orders.Create(r.Context(), uid, req)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// ListMine lists the caller's orders, newest first
// @Summary List my orders
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum entries (default 50)"
// @Success 200 {array} models.Order
// @Router /me/orders [get]
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUID(w, r)
	if !ok {
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), uid, queryLimit(r))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// Get returns one of the caller's orders
// @Summary Get order
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order id"
// @Success 200 {object} models.Order
// @Failure 404 {object} services.ErrorResponse
// @Router /orders/{id} [get]
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetForUser(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Code returns the delivered code of a fulfilled code order with a QR image
// @Summary Get delivered code
// @Tags Orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order id"
// @Success 200 {object} models.CodeDelivery
// @Failure 404 {object} services.ErrorResponse
// @Router /orders/{id}/code [get]
func (h *OrderHandler) Code(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUID(w, r)
	if !ok {
		return
	}

	delivery, err := h.orders.CodeDelivery(r.Context(), uid, chi.URLParam(r, "id"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	delivery.QRImage, err = services.EncodeQR(delivery.Code)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, delivery)
}

// List returns orders in one status for the operator queue
// @Summary List orders by status
// @Tags Admin
// @Produce json
// @Security AdminSecret
// @Param status query string false "Order status (default pending)"
// @Param limit query int false "Maximum entries (default 50)"
// @Success 200 {array} models.Order
// @Failure 400 {object} services.ErrorResponse
// @Router /admin/orders [get]
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	status := models.OrderStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.StatusPending
	}
	if !status.Valid() {
		services.SendErrorResponse(w, "Unknown order status", http.StatusBadRequest, nil)
		return
	}

	orders, err := h.orders.ListByStatus(r.Context(), status, queryLimit(r))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// Approve dispatches a pending order along its fulfillment path
// @Summary Approve order
// @Tags Admin
// @Produce json
// @Security AdminSecret
// @Param id path string true "Order id"
// @Success 200 {object} models.Order
// @Failure 409 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /admin/orders/{id}/approve [post]
func (h *OrderHandler) Approve(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Approve(r.Context(), chi.URLParam(r, "id"), middleware.ActorFromContext(r.Context()))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Reject refunds and closes a pending or processing order
// @Summary Reject order
// @Tags Admin
// @Accept json
// @Produce json
// @Security AdminSecret
// @Param id path string true "Order id"
// @Param request body models.RejectOrderRequest false "Reason"
// @Success 200 {object} models.Order
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/orders/{id}/reject [post]
func (h *OrderHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req models.RejectOrderRequest
	if !decodeOptionalJSON(w, r, h.validator, &req) {
		return
	}

	order, err := h.orders.Reject(r.Context(), chi.URLParam(r, "id"), middleware.ActorFromContext(r.Context()), req.Reason)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Complete marks a processing order as done
// @Summary Complete order
// @Tags Admin
// @Produce json
// @Security AdminSecret
// @Param id path string true "Order id"
// @Success 200 {object} models.Order
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/orders/{id}/complete [post]
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Complete(r.Context(), chi.URLParam(r, "id"), middleware.ActorFromContext(r.Context()))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Refund returns the price of a processing order
// @Summary Refund order
// @Tags Admin
// @Accept json
// @Produce json
// @Security AdminSecret
// @Param id path string true "Order id"
// @Param request body models.RejectOrderRequest false "Reason"
// @Success 200 {object} models.Order
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/orders/{id}/refund [post]
func (h *OrderHandler) Refund(w http.ResponseWriter, r *http.Request) {
	var req models.RejectOrderRequest
	if !decodeOptionalJSON(w, r, h.validator, &req) {
		return
	}

	order, err := h.orders.Refund(r.Context(), chi.URLParam(r, "id"), middleware.ActorFromContext(r.Context()), req.Reason)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Reprice changes the price and quantity of an open order and settles the difference
// @Summary Re-price order
// @Tags Admin
// @Accept json
// @Produce json
// @Security AdminSecret
// @Param id path string true "Order id"
// @Param request body models.RepriceOrderRequest true "New price and quantity"
// @Success 200 {object} models.Order
// @Failure 400 {object} services.ErrorResponse
// @Failure 402 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/orders/{id}/reprice [post]
func (h *OrderHandler) Reprice(w http.ResponseWriter, r *http.Request) {
	var req models.RepriceOrderRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	order, err := h.orders.Reprice(r.Context(), chi.URLParam(r, "id"), middleware.ActorFromContext(r.Context()), req)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Repricings lists the re-price history of an order
// @Summary List order re-pricings
// @Tags Admin
// @Produce json
// @Security AdminSecret
// @Param id path string true "Order id"
// @Success 200 {array} models.OrderRepricing
// @Router /admin/orders/{id}/repricings [get]
func (h *OrderHandler) Repricings(w http.ResponseWriter, r *http.Request) {
	history, err := h.orders.Repricings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
