// Package provider talks to the upstream SMM panel that fulfils
// network-delivered services.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/smmwallet/backend/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Status is the upstream view of an external order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusPartial    Status = "partial"
	StatusCanceled   Status = "canceled"
	StatusUnknown    Status = "unknown"
)

// Final reports whether upstream will not change s anymore.
func (s Status) Final() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusCanceled
}

// ErrUnavailable wraps every transport, status code or upstream error.
var ErrUnavailable = errors.New("provider unavailable")

// Gateway is the contract the order state machine dispatches through.
type Gateway interface {
	PlaceOrder(ctx context.Context, serviceKey, link string, quantity int) (string, error)
	GetStatus(ctx context.Context, externalOrderID string) (Status, error)
}

// HTTPGateway implements Gateway against the common SMM panel API
// (form POST with key/action, JSON replies).
type HTTPGateway struct {
	client *resty.Client
	apiKey string
}

func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &HTTPGateway{
		client: client,
		apiKey: apiKey,
	}
}

type addResponse struct {
	Order json.Number `json:"order"`
	Error string      `json:"error"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Charge  string `json:"charge"`
	Remains string `json:"remains"`
	Error   string `json:"error"`
}

func (g *HTTPGateway) PlaceOrder(ctx context.Context, serviceKey, link string, quantity int) (externalID string, err error) {
	ctx, span := otel.Tracer("provider").Start(ctx, "provider.PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider.service", serviceKey),
		attribute.Int("provider.quantity", quantity),
	)
	start := time.Now()
	defer func() {
		metrics.ProviderRequest("add", start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "place order failed")
		}
	}()

	var out addResponse
	if err := g.call(ctx, map[string]string{
		"action":   "add",
		"service":  serviceKey,
		"link":     link,
		"quantity": fmt.Sprint(quantity),
	}, &out); err != nil {
		return "", err
	}

	if out.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, out.Error)
	}
	if out.Order == "" {
		return "", fmt.Errorf("%w: reply without order id", ErrUnavailable)
	}

	span.SetAttributes(attribute.String("provider.order_id", out.Order.String()))
	return out.Order.String(), nil
}

func (g *HTTPGateway) GetStatus(ctx context.Context, externalOrderID string) (status Status, err error) {
	ctx, span := otel.Tracer("provider").Start(ctx, "provider.GetStatus")
	defer span.End()
	span.SetAttributes(attribute.String("provider.order_id", externalOrderID))
	start := time.Now()
	defer func() {
		metrics.ProviderRequest("status", start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "get status failed")
		}
	}()

	var out statusResponse
	if err := g.call(ctx, map[string]string{
		"action": "status",
		"order":  externalOrderID,
	}, &out); err != nil {
		return StatusUnknown, err
	}
	if out.Error != "" {
		return StatusUnknown, fmt.Errorf("%w: %s", ErrUnavailable, out.Error)
	}

	return parseStatus(out.Status), nil
}

func (g *HTTPGateway) call(ctx context.Context, form map[string]string, out any) error {
	form["key"] = g.apiKey

	resp, err := g.client.R().
		SetContext(ctx).
		SetFormData(form).
		Post("")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: upstream returned %d", ErrUnavailable, resp.StatusCode())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: malformed reply: %v", ErrUnavailable, err)
	}
	return nil
}

func parseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return StatusPending
	case "in progress", "processing":
		return StatusInProgress
	case "completed":
		return StatusCompleted
	case "partial":
		return StatusPartial
	case "canceled", "cancelled":
		return StatusCanceled
	}
	return StatusUnknown
}
