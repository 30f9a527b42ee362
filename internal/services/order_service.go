package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/smmwallet/backend/internal/audit"
	"github.com/smmwallet/backend/internal/metrics"
	"github.com/smmwallet/backend/internal/models"
	"github.com/smmwallet/backend/internal/provider"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const orderColumns = `id, uid, kind, service_ref, link, quantity, price, status, provider_order_id, code_id, dispatch_lease_until, note, created_at, updated_at`

type OrderOptions struct {
	// AsyncCompletion leaves provider orders in processing after a
	// successful dispatch; completion then comes from the status poller.
	AsyncCompletion bool
	DispatchLease   time.Duration
}

// OrderService is the only writer of orders.status.
type OrderService struct {
	db      *sql.DB
	ledger  *LedgerService
	pricing *PricingService
	codes   *CodePoolService
	notices *NoticeService
	gateway provider.Gateway
	audit   *audit.Logger
	opts    OrderOptions
}

func NewOrderService(db *sql.DB, ledger *LedgerService, pricing *PricingService, codePool *CodePoolService,
	notices *NoticeService, gateway provider.Gateway, auditLogger *audit.Logger, opts OrderOptions) *OrderService {
	if opts.DispatchLease <= 0 {
		opts.DispatchLease = 2 * time.Minute
	}
	return &OrderService{
		db:      db,
		ledger:  ledger,
		pricing: pricing,
		codes:   codePool,
		notices: notices,
		gateway: gateway,
		audit:   auditLogger,
		opts:    opts,
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Create prices the request, debits the user and opens a pending order. The
// debit, the order row and the owner notice commit together.
func (s *OrderService) Create(ctx context.Context, uid string, req models.CreateOrderRequest) (order *models.Order, err error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "orders.Create")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("order.kind", string(req.Kind)),
		attribute.String("order.service_ref", req.ServiceRef),
	)

	entry, err := s.pricing.Entry(req.ServiceRef)
	if err != nil {
		return nil, err
	}
	if entry.Kind != req.Kind {
		return nil, ErrKindMismatch
	}
	if req.Kind.NeedsLink() && req.Link == "" {
		return nil, ErrLinkRequired
	}

	policy, err := s.pricing.Resolve(ctx, entry.Key, entry.Mode)
	if err != nil {
		return nil, err
	}
	if !policy.Allows(req.Quantity) {
		return nil, fmt.Errorf("%w: %d not in %d..%d", ErrQuantityOutOfBounds, req.Quantity, policy.MinQty, policy.MaxQty)
	}
	// One code order delivers one code, whatever the policy allows.
	if req.Kind == models.KindCode && req.Quantity != 1 {
		return nil, fmt.Errorf("%w: code orders take quantity 1", ErrQuantityOutOfBounds)
	}
	price, err := policy.Price(req.Quantity)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	o := &models.Order{
		ID:         uuid.NewString(),
		UID:        uid,
		Kind:       req.Kind,
		ServiceRef: req.ServiceRef,
		Link:       req.Link,
		Quantity:   req.Quantity,
		Price:      price,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := s.ledger.DebitTx(ctx, tx, uid, price, models.ReasonOrderCharge, &o.ID,
		models.Metadata{"order_id": o.ID, "service_ref": o.ServiceRef}); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, uid, kind, service_ref, link, quantity, price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`,
		o.ID, o.UID, o.Kind, o.ServiceRef, o.Link, o.Quantity, o.Price, o.Status, now)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	if _, err := s.notices.EmitTx(ctx, tx, NoticeInput{
		Audience:      models.AudienceOwner,
		Title:         "New order",
		Body:          fmt.Sprintf("%s ordered %d x %s for %s", uid, o.Quantity, o.ServiceRef, o.Price.StringFixed(2)),
		OrderID:       o.ID,
		CorrelationID: correlationID(o.ID, models.StatusPending),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", o.ID))
	s.recordTransition(o, "", uid)
	log.Printf("[ORDER] %s created for %s: %d x %s = %s", o.ID, uid, o.Quantity, o.ServiceRef, o.Price.StringFixed(2))
	return o, nil
}

// Approve dispatches a pending order. A failed dispatch leaves the order
// pending with no financial change; the operator may retry or reject.
func (s *OrderService) Approve(ctx context.Context, id, actor string) (order *models.Order, err error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "orders.Approve")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", id))

	o, err := s.claimDispatch(ctx, id)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.kind", string(o.Kind)))

	switch o.Kind {
	case models.KindProvider:
		err = s.dispatchProvider(ctx, o)
	case models.KindCode:
		err = s.dispatchCode(ctx, o)
	default:
		err = s.startManual(ctx, o)
	}
	if err != nil {
		if !errors.Is(err, errUpstreamPlaced) {
			s.releaseDispatch(ctx, o.ID)
		}
		log.Printf("[ORDER] approve of %s failed: %v", o.ID, err)
		return nil, err
	}

	s.recordTransition(o, models.StatusPending, actor)
	return o, nil
}

// claimDispatch takes the dispatch lease so two concurrent approvals never
// both reach upstream or the code pool for one order.
func (s *OrderService) claimDispatch(ctx context.Context, id string) (*models.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrOrderNotFound
	}
	now := time.Now()
	row := s.db.QueryRowContext(ctx, `
		UPDATE orders
		SET dispatch_lease_until = $1, updated_at = $2
		WHERE id = $3 AND status = 'pending'
			AND (dispatch_lease_until IS NULL OR dispatch_lease_until < $2)
		RETURNING `+orderColumns, now.Add(s.opts.DispatchLease), now, id)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		existing, gerr := s.Get(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		if existing.Status != models.StatusPending {
			return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, existing.Status)
		}
		return nil, fmt.Errorf("%w: dispatch already in progress", ErrInvalidTransition)
	}
	if err != nil {
		return nil, fmt.Errorf("claim order: %w", err)
	}
	return o, nil
}

func (s *OrderService) releaseDispatch(ctx context.Context, id string) {
	_, err := s.db.ExecContext(context.WithoutCancel(ctx), `
		UPDATE orders SET dispatch_lease_until = NULL WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		log.Printf("[ORDER] releasing dispatch lease of %s: %v", id, err)
	}
}

// errUpstreamPlaced marks a dispatch whose upstream order exists although
// the order row could not be moved on. The lease is kept so nobody
// re-dispatches it before the operator has reconciled.
var errUpstreamPlaced = errors.New("upstream order placed but not recorded")

func (s *OrderService) dispatchProvider(ctx context.Context, o *models.Order) error {
	entry, err := s.pricing.Entry(o.ServiceRef)
	if err != nil {
		return err
	}

	var externalID string
	if o.ProviderOrderID != nil {
		// placed by an earlier approval whose status write failed
		externalID = *o.ProviderOrderID
	} else {
		// No transaction is open while upstream is called.
		externalID, err = s.gateway.PlaceOrder(ctx, entry.ProviderService, o.Link, o.Quantity)
		if err != nil {
			s.audit.LogError(o.ID, "DISPATCH", err)
			return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		}
	}

	if err := s.finishProvider(ctx, o, externalID); err != nil {
		s.audit.LogError(o.ID, "DISPATCH", fmt.Errorf("upstream order %s placed but status write failed: %w", externalID, err))
		s.keepUpstreamID(ctx, o.ID, externalID)
		return fmt.Errorf("%w: upstream order %s: %w", errUpstreamPlaced, externalID, err)
	}
	return nil
}

func (s *OrderService) finishProvider(ctx context.Context, o *models.Order, externalID string) error {
	to := models.StatusDone
	if s.opts.AsyncCompletion {
		to = models.StatusProcessing
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	o.ProviderOrderID = &externalID
	if err := s.setStatusTx(ctx, tx, o, to); err != nil {
		return err
	}

	title, body := "Order completed", fmt.Sprintf("Your order for %d x %s is complete.", o.Quantity, o.ServiceRef)
	if to == models.StatusProcessing {
		title, body = "Order in progress", fmt.Sprintf("Your order for %d x %s is being delivered.", o.Quantity, o.ServiceRef)
	}
	if _, err := s.notices.EmitTx(ctx, tx, NoticeInput{
		Audience:      models.AudienceUser,
		TargetUID:     o.UID,
		Title:         title,
		Body:          body,
		OrderID:       o.ID,
		CorrelationID: correlationID(o.ID, to),
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// keepUpstreamID stores the upstream id on a still pending order so a later
// approval resumes it instead of placing a second upstream order.
func (s *OrderService) keepUpstreamID(ctx context.Context, id, externalID string) {
	_, err := s.db.ExecContext(context.WithoutCancel(ctx), `
		UPDATE orders SET provider_order_id = $1 WHERE id = $2 AND status = 'pending'`, externalID, id)
	if err != nil {
		log.Printf("[ORDER] recording upstream order %s on %s: %v", externalID, id, err)
	}
}

// dispatchCode reserves a code and assigns it in one transaction, then
// consumes it and closes the order in a second one. A failed delivery puts
// the code back exactly once.
func (s *OrderService) dispatchCode(ctx context.Context, o *models.Order) error {
	entry, err := s.pricing.Entry(o.ServiceRef)
	if err != nil {
		return err
	}

	var code *models.CodeEntry
	if o.CodeID != nil {
		code, err = s.codes.ReservedEntry(ctx, *o.CodeID, o.ID)
	} else {
		code, err = s.reserveForOrder(ctx, o, entry.PoolKey)
	}
	if err != nil {
		return err
	}

	plain, err := s.codes.Open(code)
	if err != nil {
		s.returnCode(ctx, o, code)
		return fmt.Errorf("open code: %w", err)
	}

	if err := s.deliverCode(ctx, o, code.ID, plain); err != nil {
		s.returnCode(ctx, o, code)
		return err
	}
	metrics.CodePool(entry.PoolKey, "consumed")
	return nil
}

func (s *OrderService) reserveForOrder(ctx context.Context, o *models.Order, poolKey string) (*models.CodeEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	code, err := s.codes.ReserveTx(ctx, tx, poolKey, o.ID)
	if err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET code_id = $1, updated_at = $2
		WHERE id = $3 AND status = 'pending' AND code_id IS NULL`,
		code.ID, time.Now(), o.ID)
	if err != nil {
		return nil, fmt.Errorf("assign code: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: order changed during dispatch", ErrInvalidTransition)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	o.CodeID = &code.ID
	return code, nil
}

func (s *OrderService) deliverCode(ctx context.Context, o *models.Order, codeID, plain string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.codes.ConsumeTx(ctx, tx, codeID, o.ID); err != nil {
		return err
	}
	if err := s.setStatusTx(ctx, tx, o, models.StatusDone); err != nil {
		return err
	}
	if _, err := s.notices.EmitTx(ctx, tx, NoticeInput{
		Audience:      models.AudienceUser,
		TargetUID:     o.UID,
		Title:         "Your code is ready",
		Body:          fmt.Sprintf("Code for %s: %s", o.ServiceRef, plain),
		OrderID:       o.ID,
		Code:          plain,
		CorrelationID: correlationID(o.ID, models.StatusDone),
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// returnCode is the inverse of reserveForOrder.
func (s *OrderService) returnCode(ctx context.Context, o *models.Order, code *models.CodeEntry) {
	ctx = context.WithoutCancel(ctx)
	codeID := code.ID
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Printf("[ORDER] returning code %s of %s: %v", codeID, o.ID, err)
		return
	}
	defer tx.Rollback()

	if err := s.codes.ReleaseTx(ctx, tx, codeID, o.ID); err != nil {
		log.Printf("[ORDER] returning code %s of %s: %v", codeID, o.ID, err)
		return
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET code_id = NULL, updated_at = $1 WHERE id = $2 AND status = 'pending'`,
		time.Now(), o.ID); err != nil {
		log.Printf("[ORDER] unassigning code of %s: %v", o.ID, err)
		return
	}
	if err := tx.Commit(); err != nil {
		log.Printf("[ORDER] returning code %s of %s: %v", codeID, o.ID, err)
		return
	}
	o.CodeID = nil
	metrics.CodePool(code.PoolKey, "released")
}

func (s *OrderService) startManual(ctx context.Context, o *models.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.setStatusTx(ctx, tx, o, models.StatusProcessing); err != nil {
		return err
	}
	if _, err := s.notices.EmitTx(ctx, tx, NoticeInput{
		Audience:      models.AudienceUser,
		TargetUID:     o.UID,
		Title:         "Order accepted",
		Body:          fmt.Sprintf("Your order for %s was accepted and is being fulfilled.", o.ServiceRef),
		OrderID:       o.ID,
		CorrelationID: correlationID(o.ID, models.StatusProcessing),
	}); err != nil {
		return err
	}
	return tx.Commit()
}

// Reject refunds the price, returns any reserved code and closes the order
// in one transaction. Terminal orders are refused without any credit.
func (s *OrderService) Reject(ctx context.Context, id, actor, reason string) (order *models.Order, err error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "orders.Reject")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", id))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	o, err := s.lockOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	from := o.Status
	if from.Terminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, from)
	}
	if o.Dispatching(time.Now()) {
		return nil, fmt.Errorf("%w: dispatch in progress", ErrInvalidTransition)
	}

	refunded, err := s.ledger.RefundTx(ctx, tx, o.UID, o.ID, o.Price, models.Metadata{"actor": actor, "reason": reason})
	if err != nil {
		return nil, err
	}

	if o.CodeID != nil {
		switch err := s.codes.ReleaseTx(ctx, tx, *o.CodeID, o.ID); {
		case errors.Is(err, ErrNotReserved):
			log.Printf("[ORDER] %s: code %s was no longer reserved", o.ID, *o.CodeID)
		case err != nil:
			return nil, err
		}
		o.CodeID = nil
	}

	o.Note = reason
	if err := s.setStatusTx(ctx, tx, o, models.StatusRejected); err != nil {
		return nil, err
	}

	body := fmt.Sprintf("Your order for %s was rejected.", o.ServiceRef)
	if refunded {
		body += fmt.Sprintf(" %s was returned to your balance.", o.Price.StringFixed(2))
	}
	if reason != "" {
		body += " Reason: " + reason
	}
	if _, err := s.notices.EmitTx(ctx, tx, NoticeInput{
		Audience:      models.AudienceUser,
		TargetUID:     o.UID,
		Title:         "Order rejected",
		Body:          body,
		OrderID:       o.ID,
		CorrelationID: correlationID(o.ID, models.StatusRejected),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.recordTransition(o, from, actor)
	return o, nil
}

// Complete moves a processing order to done. Completing an order that is
// already done is a no-op and emits nothing.
func (s *OrderService) Complete(ctx context.Context, id, actor string) (order *models.Order, err error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "orders.Complete")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", id))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	o, err := s.lockOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == models.StatusDone {
		s.audit.LogIgnored("COMPLETE", o.ID, "order already done")
		return o, nil
	}
	if o.Status != models.StatusProcessing {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, o.Status)
	}

	if err := s.setStatusTx(ctx, tx, o, models.StatusDone); err != nil {
		return nil, err
	}
	if _, err := s.notices.EmitTx(ctx, tx, NoticeInput{
		Audience:      models.AudienceUser,
		TargetUID:     o.UID,
		Title:         "Order completed",
		Body:          fmt.Sprintf("Your order for %d x %s is complete.", o.Quantity, o.ServiceRef),
		OrderID:       o.ID,
		CorrelationID: correlationID(o.ID, models.StatusDone),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.recordTransition(o, models.StatusProcessing, actor)
	return o, nil
}

// Refund closes a processing order whose delivery will not happen and
// returns the price. A second refund is a no-op.
func (s *OrderService) Refund(ctx context.Context, id, actor, reason string) (order *models.Order, err error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "orders.Refund")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", id))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	o, err := s.lockOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == models.StatusRefunded {
		s.audit.LogIgnored("REFUND", o.ID, "order already refunded")
		return o, nil
	}
	if o.Status != models.StatusProcessing {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, o.Status)
	}

	if _, err := s.ledger.RefundTx(ctx, tx, o.UID, o.ID, o.Price, models.Metadata{"actor": actor, "reason": reason}); err != nil {
		return nil, err
	}
	o.Note = reason
	if err := s.setStatusTx(ctx, tx, o, models.StatusRefunded); err != nil {
		return nil, err
	}
	if _, err := s.notices.EmitTx(ctx, tx, NoticeInput{
		Audience:      models.AudienceUser,
		TargetUID:     o.UID,
		Title:         "Order refunded",
		Body:          fmt.Sprintf("Your order for %s was refunded. %s was returned to your balance.", o.ServiceRef, o.Price.StringFixed(2)),
		OrderID:       o.ID,
		CorrelationID: correlationID(o.ID, models.StatusRefunded),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	s.recordTransition(o, models.StatusProcessing, actor)
	return o, nil
}

// Reprice overrides the price and quantity of one open order. The
// difference is charged or credited in the same transaction and the change
// is kept in order_repricings.
func (s *OrderService) Reprice(ctx context.Context, id, actor string, req models.RepriceOrderRequest) (order *models.Order, err error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "orders.Reprice")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", id))

	newPrice := req.Price.Round(2)
	if !newPrice.IsPositive() {
		return nil, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	o, err := s.lockOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		return nil, fmt.Errorf("%w: order is %s", ErrInvalidTransition, o.Status)
	}
	if o.Dispatching(time.Now()) {
		return nil, fmt.Errorf("%w: dispatch in progress", ErrInvalidTransition)
	}

	oldPrice, oldQty := o.Price, o.Quantity
	meta := models.Metadata{"order_id": o.ID, "actor": actor, "reprice": true}
	switch diff := newPrice.Sub(oldPrice); {
	case diff.IsPositive():
		_, err = s.ledger.DebitTx(ctx, tx, o.UID, diff, models.ReasonOrderCharge, &o.ID, meta)
	case diff.IsNegative():
		_, err = s.ledger.CreditTx(ctx, tx, o.UID, diff.Neg(), models.ReasonOrderCharge, &o.ID, meta)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET price = $1, quantity = $2, updated_at = $3 WHERE id = $4`,
		newPrice, req.Quantity, now, o.ID); err != nil {
		return nil, fmt.Errorf("reprice order: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_repricings (order_id, old_price, new_price, old_quantity, new_quantity, actor, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, oldPrice, newPrice, oldQty, req.Quantity, actor, req.Reason, now); err != nil {
		return nil, fmt.Errorf("record repricing: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	o.Price, o.Quantity, o.UpdatedAt = newPrice, req.Quantity, now
	s.audit.LogReprice(o.ID, actor, oldPrice.StringFixed(2), newPrice.StringFixed(2), req.Reason)
	return o, nil
}

// Repricings lists the re-price history of an order, oldest first.
func (s *OrderService) Repricings(ctx context.Context, id string) ([]models.OrderRepricing, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrOrderNotFound
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, old_price, new_price, old_quantity, new_quantity, actor, reason, created_at
		FROM order_repricings WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("list repricings: %w", err)
	}
	defer rows.Close()

	out := []models.OrderRepricing{}
	for rows.Next() {
		var r models.OrderRepricing
		if err := rows.Scan(&r.OrderID, &r.OldPrice, &r.NewPrice, &r.OldQuantity, &r.NewQuantity, &r.Actor, &r.Reason, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *OrderService) Get(ctx context.Context, id string) (*models.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrOrderNotFound
	}
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// GetForUser hides orders of other users behind ErrOrderNotFound.
func (s *OrderService) GetForUser(ctx context.Context, uid, id string) (*models.Order, error) {
	o, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UID != uid {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *OrderService) ListByUser(ctx context.Context, uid string, limit int) ([]models.Order, error) {
	return s.list(ctx, `WHERE uid = $1 ORDER BY created_at DESC LIMIT $2`, uid, clampLimit(limit))
}

func (s *OrderService) ListByStatus(ctx context.Context, status models.OrderStatus, limit int) ([]models.Order, error) {
	return s.list(ctx, `WHERE status = $1 ORDER BY created_at ASC LIMIT $2`, status, clampLimit(limit))
}

// AwaitingUpstream lists provider orders that upstream has not finished.
func (s *OrderService) AwaitingUpstream(ctx context.Context, limit int) ([]models.Order, error) {
	return s.list(ctx, `WHERE status = 'processing' AND kind = 'provider' AND provider_order_id IS NOT NULL
		ORDER BY updated_at ASC LIMIT $1`, clampLimit(limit))
}

// CodeDelivery returns the code delivered for a done code order of uid.
func (s *OrderService) CodeDelivery(ctx context.Context, uid, id string) (*models.CodeDelivery, error) {
	o, err := s.GetForUser(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	if o.Kind != models.KindCode || o.Status != models.StatusDone || o.CodeID == nil {
		return nil, ErrNotDelivered
	}
	code, err := s.codes.Reveal(ctx, *o.CodeID, o.ID)
	if err != nil {
		return nil, err
	}
	return &models.CodeDelivery{OrderID: o.ID, Code: code}, nil
}

func (s *OrderService) list(ctx context.Context, where string, args ...any) ([]models.Order, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+orderColumns+` FROM orders `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func (s *OrderService) lockOrder(ctx context.Context, tx *sql.Tx, id string) (*models.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrOrderNotFound
	}
	o, err := scanOrder(tx.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock order: %w", err)
	}
	return o, nil
}

// setStatusTx is the single status write. It re-checks the lifecycle and
// the stored status so a concurrent writer cannot be overwritten.
func (s *OrderService) setStatusTx(ctx context.Context, tx *sql.Tx, o *models.Order, to models.OrderStatus) error {
	if !o.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, provider_order_id = $2, code_id = $3, note = $4, dispatch_lease_until = NULL, updated_at = $5
		WHERE id = $6 AND status = $7`,
		to, o.ProviderOrderID, o.CodeID, o.Note, now, o.ID, o.Status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: order changed concurrently", ErrInvalidTransition)
	}

	o.Status = to
	o.UpdatedAt = now
	o.DispatchLeaseUntil = nil
	return nil
}

func (s *OrderService) recordTransition(o *models.Order, from models.OrderStatus, actor string) {
	metrics.OrderTransition(string(o.Kind), string(o.Status))
	s.audit.LogTransition(o.ID, o.UID, string(from), string(o.Status), actor)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var (
		o                models.Order
		providerID, code sql.NullString
		lease            sql.NullTime
	)
	err := row.Scan(&o.ID, &o.UID, &o.Kind, &o.ServiceRef, &o.Link, &o.Quantity, &o.Price, &o.Status,
		&providerID, &code, &lease, &o.Note, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.ProviderOrderID = stringPtr(providerID)
	o.CodeID = stringPtr(code)
	if lease.Valid {
		o.DispatchLeaseUntil = &lease.Time
	}
	return &o, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
