// Package client is a typed client for the wallet API. It is what end-user
// apps and walletctl use to read balances, place orders and follow
// notifications.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smmwallet/backend/internal/models"
)

// Config describes how to reach the API.
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	AdminSecret  string
}

// APIError is a non-2xx reply. Message is the server's user-safe text.
type APIError struct {
	StatusCode int
	Message    string
	Details    map[string]string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

var (
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrOutOfStock        = errors.New("out of stock")
	ErrConflict          = errors.New("conflict")
	ErrUnavailable       = errors.New("service unavailable")
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
)

// Is lets callers match API errors against the sentinels above.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrInsufficientFunds:
		return e.StatusCode == http.StatusPaymentRequired
	case ErrOutOfStock:
		return e.StatusCode == http.StatusConflict && e.Message == "out of stock"
	case ErrConflict:
		return e.StatusCode == http.StatusConflict
	case ErrUnavailable:
		return e.StatusCode == http.StatusServiceUnavailable
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	}
	return false
}

type Client struct {
	http        *resty.Client
	adminSecret string

	mu    sync.RWMutex
	token string
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 200 * time.Millisecond
	}
	if cfg.RetryMaxWait <= 0 {
		cfg.RetryMaxWait = 2 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		AddRetryCondition(retryable)

	return &Client{http: httpClient, adminSecret: cfg.AdminSecret}
}

// retryable retries reads only. Writes move money and are never replayed.
func retryable(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}
	return resp.StatusCode() >= http.StatusInternalServerError || resp.StatusCode() == http.StatusTooManyRequests
}

// SetToken installs a session token, e.g. one restored from disk.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login upserts uid and keeps the returned session token.
func (c *Client) Login(ctx context.Context, uid string) (*models.Session, error) {
	var session models.Session
	if err := c.do(ctx, http.MethodPost, "/users", models.UpsertUserRequest{UID: uid}, &session, false); err != nil {
		return nil, err
	}
	c.SetToken(session.Token)
	return &session, nil
}

func (c *Client) Balance(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, "/me/balance", nil, &user, false); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Transactions(ctx context.Context, limit int) ([]models.WalletTxn, error) {
	var txns []models.WalletTxn
	err := c.do(ctx, http.MethodGet, "/me/transactions?limit="+strconv.Itoa(limit), nil, &txns, false)
	return txns, err
}

func (c *Client) CreateOrder(ctx context.Context, req models.CreateOrderRequest) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &order, false); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) Orders(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := c.do(ctx, http.MethodGet, "/me/orders?limit="+strconv.Itoa(limit), nil, &orders, false)
	return orders, err
}

func (c *Client) Order(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, &order, false); err != nil {
		return nil, err
	}
	return &order, nil
}

// Code fetches the delivered code of a done code order.
func (c *Client) Code(ctx context.Context, orderID string) (*models.CodeDelivery, error) {
	var delivery models.CodeDelivery
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID)+"/code", nil, &delivery, false); err != nil {
		return nil, err
	}
	return &delivery, nil
}

// Notices returns the caller's notices created after since.
func (c *Client) Notices(ctx context.Context, since time.Time) ([]models.Notice, error) {
	path := "/notices?audience=user"
	if !since.IsZero() {
		path += "&since=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
	}
	var notices []models.Notice
	err := c.do(ctx, http.MethodGet, path, nil, &notices, false)
	return notices, err
}

// OwnerNotices reads the operator feed. It needs Config.AdminSecret.
func (c *Client) OwnerNotices(ctx context.Context, since time.Time) ([]models.Notice, error) {
	path := "/admin/notices"
	if !since.IsZero() {
		path += "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
	}
	var notices []models.Notice
	err := c.do(ctx, http.MethodGet, path, nil, &notices, true)
	return notices, err
}

// PricingVersion is the cheap probe used by the pricing cache.
func (c *Client) PricingVersion(ctx context.Context, scope string) (int64, error) {
	var v models.PricingVersion
	if err := c.do(ctx, http.MethodGet, "/pricing/"+url.PathEscape(scope)+"/version", nil, &v, false); err != nil {
		return 0, err
	}
	return v.Version, nil
}

func (c *Client) Pricing(ctx context.Context, scope string) (*models.PricingBulk, error) {
	var bulk models.PricingBulk
	if err := c.do(ctx, http.MethodGet, "/pricing/"+url.PathEscape(scope), nil, &bulk, false); err != nil {
		return nil, err
	}
	return &bulk, nil
}

// ApproveOrder dispatches a pending order. It needs Config.AdminSecret.
func (c *Client) ApproveOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodPost, "/admin/orders/"+url.PathEscape(id)+"/approve", nil, &order, true); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) RejectOrder(ctx context.Context, id, reason string) (*models.Order, error) {
	var order models.Order
	body := models.RejectOrderRequest{Reason: reason}
	if err := c.do(ctx, http.MethodPost, "/admin/orders/"+url.PathEscape(id)+"/reject", body, &order, true); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) Restock(ctx context.Context, pool string, codes []string) (*models.RestockResult, error) {
	var result models.RestockResult
	body := models.RestockRequest{Codes: codes}
	if err := c.do(ctx, http.MethodPost, "/admin/codes/"+url.PathEscape(pool), body, &result, true); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) TopUp(ctx context.Context, uid string, req models.AdjustBalanceRequest) (*models.BalanceResponse, error) {
	var out models.BalanceResponse
	if err := c.do(ctx, http.MethodPost, "/admin/users/"+url.PathEscape(uid)+"/topup", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetOverride(ctx context.Context, key string, req models.SetOverrideRequest) (*models.PricingOverride, error) {
	var out models.PricingOverride
	if err := c.do(ctx, http.MethodPut, "/admin/pricing/"+url.PathEscape(key), req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any, admin bool) error {
	req := c.http.R().SetContext(ctx)
	if admin {
		req.SetHeader("X-Admin-Secret", c.adminSecret)
	} else if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode() == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *resty.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode()}
	var body struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		apiErr.Message = body.Error
		apiErr.Details = body.Details
	} else {
		apiErr.Message = http.StatusText(resp.StatusCode())
	}
	return apiErr
}
