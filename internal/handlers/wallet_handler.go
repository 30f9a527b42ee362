package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/smmwallet/backend/internal/middleware"
	"github.com/smmwallet/backend/internal/models"
	"github.com/smmwallet/backend/internal/services"
)

type WalletHandler struct {
	ledger    *services.LedgerService
	auth      *middleware.Auth
	validator *services.ValidationHelper
}

func NewWalletHandler(ledger *services.LedgerService, auth *middleware.Auth) *WalletHandler {
	return &WalletHandler{
		ledger:    ledger,
		auth:      auth,
		validator: services.NewValidationHelper(),
	}
}

// UpsertUser registers a uid on first sight and opens a session
// @Summary Upsert user
// @Description Create the wallet user if needed and return a session token
// @Tags Wallet
// @Accept json
// @Produce json
// @Param request body models.UpsertUserRequest true "User"
// @Success 200 {object} models.Session
// @Failure 400 {object} services.ErrorResponse
// @Router /users [post]
func (h *WalletHandler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	var req models.UpsertUserRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	user, err := h.ledger.UpsertUser(r.Context(), req.UID)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	token, expiresAt, err := h.auth.Issue(user.UID)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.Session{User: user, Token: token, ExpiresAt: expiresAt})
}

// Balance returns the caller's balance
// @Summary Get balance
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 401 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /me/balance [get]
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUID(w, r)
	if !ok {
		return
	}

	user, err := h.ledger.GetUser(r.Context(), uid)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Transactions lists the caller's wallet history
// @Summary List wallet transactions
// @Tags Wallet
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum entries (default 50)"
// @Success 200 {array} models.WalletTxn
// @Failure 401 {object} services.ErrorResponse
// @Router /me/transactions [get]
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	uid, ok := requireUID(w, r)
	if !ok {
		return
	}

	txns, err := h.ledger.History(r.Context(), uid, queryLimit(r))
	if err != nil {
		sendServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, txns)
}

// TopUp credits a user's wallet
// @Summary Top up a wallet
// @Tags Admin
// @Accept json
// @Produce json
// @Security AdminSecret
// @Param uid path string true "User id"
// @Param request body models.AdjustBalanceRequest true "Amount"
// @Success 200 {object} models.BalanceResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/users/{uid}/topup [post]
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.ledger.TopUp)
}

// Deduct debits a user's wallet; the balance may go negative
// @Summary Deduct from a wallet
// @Tags Admin
// @Accept json
// @Produce json
// @Security AdminSecret
// @Param uid path string true "User id"
// @Param request body models.AdjustBalanceRequest true "Amount"
// @Success 200 {object} models.BalanceResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/users/{uid}/deduct [post]
func (h *WalletHandler) Deduct(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.ledger.Deduct)
}

type adjustFunc func(ctx context.Context, uid string, amount decimal.Decimal, actor, note string) (decimal.Decimal, error)

func (h *WalletHandler) adjust(w http.ResponseWriter, r *http.Request, apply adjustFunc) {
	uid := chi.URLParam(r, "uid")

	var req models.AdjustBalanceRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	actor := middleware.ActorFromContext(r.Context())
	balance, err := apply(r.Context(), uid, req.Amount, actor, req.Note)
	if err != nil {
		sendServiceError(w, r, err)
		return
	}

	log.Printf("[WALLET] %s adjusted %s by %s via %s", actor, uid, req.Amount, r.URL.Path)
	writeJSON(w, http.StatusOK, models.BalanceResponse{UID: uid, Balance: balance})
}

// Ban blocks or unblocks order placement for a user
// @Summary Ban or unban a user
// @Tags Admin
// @Accept json
// @Produce json
// @Security AdminSecret
// @Param uid path string true "User id"
// @Param request body models.BanRequest true "Ban flag"
// @Success 204
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/users/{uid}/ban [post]
func (h *WalletHandler) Ban(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")

	var req models.BanRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	if err := h.ledger.SetBanned(r.Context(), uid, *req.Banned); err != nil {
		sendServiceError(w, r, err)
		return
	}
	log.Printf("[WALLET] %s set banned=%t for %s", middleware.ActorFromContext(r.Context()), *req.Banned, uid)
	w.WriteHeader(http.StatusNoContent)
}
