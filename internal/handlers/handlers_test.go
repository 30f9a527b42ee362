package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/smmwallet/backend/internal/audit"
	"github.com/smmwallet/backend/internal/catalog"
	"github.com/smmwallet/backend/internal/middleware"
	"github.com/smmwallet/backend/internal/models"
	"github.com/smmwallet/backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminSecret = "admin-secret"
	orderID     = "0b6f3b8e-5f1c-4d8e-9f0a-2c1d3e4f5a6b"
	codeID      = "5d2c9a41-7e3b-4f60-8a1d-9b0c2e3f4a5b"
)

var orderCols = []string{"id", "uid", "kind", "service_ref", "link", "quantity", "price", "status",
	"provider_order_id", "code_id", "dispatch_lease_until", "note", "created_at", "updated_at"}

type plainSealer struct{}

func (plainSealer) Seal(p []byte) ([]byte, error) { return p, nil }
func (plainSealer) Open(s []byte) ([]byte, error) { return s, nil }
func (plainSealer) Fingerprint(code string) string {
	return "fp:" + code
}

type apiFixture struct {
	router http.Handler
	db     sqlmock.Sqlmock
	auth   *middleware.Auth
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	conn, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	cat, err := catalog.Default()
	require.NoError(t, err)

	auditLogger := audit.NewLoggerTo(io.Discard)
	ledger := services.NewLedgerService(conn, auditLogger)
	pricing := services.NewPricingService(conn, cat, nil, auditLogger)
	codes := services.NewCodePoolService(conn, plainSealer{}, auditLogger)
	notices := services.NewNoticeService(conn)
	orders := services.NewOrderService(conn, ledger, pricing, codes, notices, nil, auditLogger, services.OrderOptions{})

	auth := middleware.NewAuth("jwt-secret", time.Hour)
	api := &API{
		Wallet:  NewWalletHandler(ledger, auth),
		Orders:  NewOrderHandler(orders),
		Pricing: NewPricingHandler(pricing),
		Codes:   NewCodeHandler(codes),
		Notices: NewNoticeHandler(notices),
	}

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		api.Mount(r, auth, adminSecret)
	})
	return &apiFixture{router: r, db: dbMock, auth: auth}
}

func (f *apiFixture) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) userHeaders(t *testing.T, uid string) map[string]string {
	t.Helper()
	token, _, err := f.auth.Issue(uid)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

var adminHeaders = map[string]string{middleware.AdminSecretHeader: adminSecret}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) services.ErrorResponse {
	t.Helper()
	var resp services.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWalletHandler_SessionAndBalance(t *testing.T) {
	f := newAPIFixture(t)
	now := time.Now()

	f.db.ExpectQuery("INSERT INTO users").
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"uid", "balance", "banned", "created_at", "updated_at"}).
			AddRow("u1", "0.00", false, now, now))

	w := f.do(t, http.MethodPost, "/users", `{"uid":"u1"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var session models.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, "u1", session.User.UID)
	require.NotEmpty(t, session.Token)

	f.db.ExpectQuery("SELECT uid, balance, banned, created_at, updated_at FROM users WHERE uid = \\$1").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"uid", "balance", "banned", "created_at", "updated_at"}).
			AddRow("u1", "10.00", false, now, now))

	w = f.do(t, http.MethodGet, "/me/balance", "", map[string]string{"Authorization": "Bearer " + session.Token})
	require.Equal(t, http.StatusOK, w.Code)

	var user models.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "10.00", user.Balance.StringFixed(2))
	assert.NoError(t, f.db.ExpectationsWereMet())
}

func TestWalletHandler_RequiresToken(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/me/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWalletHandler_Ban(t *testing.T) {
	f := newAPIFixture(t)

	f.db.ExpectExec("UPDATE users SET banned = \\$1").
		WithArgs(true, sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := f.do(t, http.MethodPost, "/admin/users/u1/ban", `{"banned":true}`, adminHeaders)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, http.MethodPost, "/admin/users/u1/ban", `{}`, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Details, "Banned")
	assert.NoError(t, f.db.ExpectationsWereMet())
}

func TestOrderHandler_Create(t *testing.T) {
	t.Run("unknown fields are rejected", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodPost, "/orders", `{"kind":"code","service_ref":"zain_5","quantity":1,"price":"0.01"}`,
			f.userHeaders(t, "u1"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid request body", decodeError(t, w).Error)
	})

	t.Run("trailing data is rejected", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodPost, "/orders", `{"kind":"code","service_ref":"zain_5","quantity":1}{}`,
			f.userHeaders(t, "u1"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("validation details", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodPost, "/orders", `{"kind":"gift","service_ref":"zain_5"}`, f.userHeaders(t, "u1"))

		require.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeError(t, w)
		assert.Equal(t, "Validation failed", resp.Error)
		assert.Contains(t, resp.Details, "Kind")
		assert.Contains(t, resp.Details, "Quantity")
	})

	t.Run("insufficient balance maps to 402", func(t *testing.T) {
		f := newAPIFixture(t)
		f.db.ExpectQuery("FROM pricing_overrides WHERE key = \\$1").
			WithArgs("zain_5").
			WillReturnRows(sqlmock.NewRows([]string{"key"}))
		f.db.ExpectBegin()
		f.db.ExpectQuery("SELECT uid, balance, banned, version FROM users WHERE uid = \\$1 FOR UPDATE").
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows([]string{"uid", "balance", "banned", "version"}).AddRow("u1", "1.00", false, 1))
		f.db.ExpectRollback()

		w := f.do(t, http.MethodPost, "/orders", `{"kind":"code","service_ref":"zain_5","quantity":1}`, f.userHeaders(t, "u1"))

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		assert.Equal(t, "insufficient balance", decodeError(t, w).Error)
		assert.NoError(t, f.db.ExpectationsWereMet())
	})

	t.Run("unknown item maps to 404", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodPost, "/orders", `{"kind":"code","service_ref":"nope","quantity":1}`, f.userHeaders(t, "u1"))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestOrderHandler_Code(t *testing.T) {
	f := newAPIFixture(t)
	now := time.Now()

	f.db.ExpectQuery("FROM orders WHERE id = \\$1").
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(orderID, "u1", "code", "zain_5", "", 1, "5.25", "done",
			nil, codeID, nil, "", now, now))
	f.db.ExpectQuery("SELECT sealed FROM code_entries").
		WithArgs(codeID, orderID).
		WillReturnRows(sqlmock.NewRows([]string{"sealed"}).AddRow([]byte("1111-2222-3333")))

	w := f.do(t, http.MethodGet, "/orders/"+orderID+"/code", "", f.userHeaders(t, "u1"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var delivery models.CodeDelivery
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &delivery))
	assert.Equal(t, "1111-2222-3333", delivery.Code)
	assert.NotEmpty(t, delivery.QRImage)
	assert.NoError(t, f.db.ExpectationsWereMet())
}

func TestOrderHandler_GetOtherUsersOrder(t *testing.T) {
	f := newAPIFixture(t)
	now := time.Now()

	f.db.ExpectQuery("FROM orders WHERE id = \\$1").
		WithArgs(orderID).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(orderID, "u1", "code", "zain_5", "", 1, "5.25", "pending",
			nil, nil, nil, "", now, now))

	w := f.do(t, http.MethodGet, "/orders/"+orderID, "", f.userHeaders(t, "intruder"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	t.Run("secret is required", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodGet, "/admin/orders", "", nil)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("unknown status filter", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodGet, "/admin/orders?status=lost", "", adminHeaders)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("pending queue is the default", func(t *testing.T) {
		f := newAPIFixture(t)
		f.db.ExpectQuery("FROM orders WHERE status = \\$1 ORDER BY created_at ASC LIMIT \\$2").
			WithArgs("pending", 10).
			WillReturnRows(sqlmock.NewRows(orderCols))

		w := f.do(t, http.MethodGet, "/admin/orders?limit=10", "", adminHeaders)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
		assert.NoError(t, f.db.ExpectationsWereMet())
	})

	t.Run("stock", func(t *testing.T) {
		f := newAPIFixture(t)
		f.db.ExpectQuery("FROM code_entries GROUP BY pool_key").
			WillReturnRows(sqlmock.NewRows([]string{"pool_key", "available", "reserved"}).AddRow("zain:5", 4, 1))

		w := f.do(t, http.MethodGet, "/admin/codes/stock", "", adminHeaders)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[{"pool_key":"zain:5","available":4,"reserved":1}]`, w.Body.String())
	})

	t.Run("unexpected errors stay opaque", func(t *testing.T) {
		f := newAPIFixture(t)
		f.db.ExpectQuery("FROM code_entries GROUP BY pool_key").
			WillReturnError(errors.New("pq: relation code_entries does not exist"))

		w := f.do(t, http.MethodGet, "/admin/codes/stock", "", adminHeaders)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "internal error", decodeError(t, w).Error)
	})

	t.Run("restock validation", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodPost, "/admin/codes/zain:5", `{"codes":[]}`, adminHeaders)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("reject of a missing order", func(t *testing.T) {
		f := newAPIFixture(t)
		f.db.ExpectBegin()
		f.db.ExpectRollback()

		w := f.do(t, http.MethodPost, "/admin/orders/not-a-uuid/reject", "", adminHeaders)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, f.db.ExpectationsWereMet())
	})

	t.Run("clear override with a bad version", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodDelete, "/admin/pricing/ig_likes?expected_version=abc", "", adminHeaders)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestPricingHandler_Version(t *testing.T) {
	f := newAPIFixture(t)
	f.db.ExpectQuery("SELECT version FROM pricing_versions WHERE scope = \\$1").
		WithArgs("services").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(7))

	w := f.do(t, http.MethodGet, "/pricing/services/version", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"scope":"services","version":7}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/pricing/gifts/version", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNoticeHandler(t *testing.T) {
	t.Run("owner feed is not available to users", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodGet, "/notices?audience=owner", "", f.userHeaders(t, "u1"))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("since must parse", func(t *testing.T) {
		f := newAPIFixture(t)
		w := f.do(t, http.MethodGet, "/notices?since=yesterday", "", f.userHeaders(t, "u1"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("user feed", func(t *testing.T) {
		f := newAPIFixture(t)
		since := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
		f.db.ExpectQuery("FROM notices WHERE audience = 'user' AND target_uid = \\$1 AND created_at > \\$2").
			WithArgs("u1", since, 100).
			WillReturnRows(sqlmock.NewRows([]string{"id", "audience", "target_uid", "title", "body", "order_id", "code", "correlation_id", "created_at"}).
				AddRow("n1", "user", "u1", "Order rejected", "Refunded 5.00", orderID, nil, "order:"+orderID+":rejected", since.Add(time.Minute)))

		w := f.do(t, http.MethodGet, "/notices?since="+since.Format(time.RFC3339), "", f.userHeaders(t, "u1"))
		require.Equal(t, http.StatusOK, w.Code)

		var notices []models.Notice
		require.NoError(t, json.NewDecoder(bytes.NewReader(w.Body.Bytes())).Decode(&notices))
		require.Len(t, notices, 1)
		assert.Equal(t, "Order rejected", notices[0].Title)
		assert.NoError(t, f.db.ExpectationsWereMet())
	})
}
