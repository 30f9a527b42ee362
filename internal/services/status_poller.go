package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/smmwallet/backend/internal/models"
	"github.com/smmwallet/backend/internal/provider"
)

// StatusPoller asks upstream about provider orders left in processing and
// completes the ones upstream reports as delivered. Canceled and partial
// jobs only raise an owner notice; refunds stay an operator decision.
type StatusPoller struct {
	orders   *OrderService
	gateway  provider.Gateway
	interval time.Duration
	batch    int
}

func NewStatusPoller(orders *OrderService, gateway provider.Gateway, interval time.Duration) *StatusPoller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &StatusPoller{
		orders:   orders,
		gateway:  gateway,
		interval: interval,
		batch:    50,
	}
}

// Run polls until ctx is done.
func (p *StatusPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	log.Printf("[POLLER] checking upstream every %s", p.interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := p.PollOnce(ctx); err != nil {
				log.Printf("[POLLER] poll failed: %v", err)
			}
		}
	}
}

// PollOnce checks one batch and returns how many orders it completed.
func (p *StatusPoller) PollOnce(ctx context.Context) (int, error) {
	orders, err := p.orders.AwaitingUpstream(ctx, p.batch)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, o := range orders {
		if ctx.Err() != nil {
			return completed, ctx.Err()
		}

		status, err := p.gateway.GetStatus(ctx, *o.ProviderOrderID)
		if err != nil {
			log.Printf("[POLLER] status of %s (upstream %s): %v", o.ID, *o.ProviderOrderID, err)
			continue
		}

		switch status {
		case provider.StatusCompleted:
			if _, err := p.orders.Complete(ctx, o.ID, "poller"); err != nil {
				log.Printf("[POLLER] completing %s: %v", o.ID, err)
				continue
			}
			completed++
		case provider.StatusCanceled, provider.StatusPartial:
			if err := p.flag(ctx, o, status); err != nil {
				log.Printf("[POLLER] flagging %s: %v", o.ID, err)
			}
		}
	}
	return completed, nil
}

// flag tells the owner once per order and upstream status.
func (p *StatusPoller) flag(ctx context.Context, o models.Order, status provider.Status) error {
	tx, err := p.orders.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	emitted, err := p.orders.notices.EmitTx(ctx, tx, NoticeInput{
		Audience:      models.AudienceOwner,
		Title:         "Upstream order needs attention",
		Body:          fmt.Sprintf("Upstream reports %s for order %s (%d x %s).", status, o.ID, o.Quantity, o.ServiceRef),
		OrderID:       o.ID,
		CorrelationID: "order:" + o.ID + ":upstream_" + string(status),
	})
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if emitted {
		log.Printf("[POLLER] order %s flagged: upstream %s", o.ID, status)
	}
	return nil
}
