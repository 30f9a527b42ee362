package client

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/smmwallet/backend/internal/models"
	"github.com/smmwallet/backend/internal/notify"
	"github.com/smmwallet/backend/internal/pricecache"
	"golang.org/x/sync/errgroup"
)

// DefaultNoticeOverlap is how far before the newest merged notice a notice
// poll starts. Notices are stamped before their transaction commits, so a
// notice can become visible after a newer one was already fetched.
const DefaultNoticeOverlap = 2 * time.Minute

// Intervals sets how often each feed is polled. Zero disables a feed.
type Intervals struct {
	Balance time.Duration
	Notices time.Duration
	Orders  time.Duration
	Pricing time.Duration

	// NoticeOverlap defaults to DefaultNoticeOverlap.
	NoticeOverlap time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{
		Balance: 15 * time.Second,
		Notices: 10 * time.Second,
		Orders:  20 * time.Second,
		Pricing: time.Minute,

		NoticeOverlap: DefaultNoticeOverlap,
	}
}

// Snapshot is the latest state seen by a Watcher.
type Snapshot struct {
	Balance   *models.User
	Orders    []models.Order
	Pricing   map[string]map[string]models.EffectivePolicy
	Unseen    int
	UpdatedAt time.Time
}

// Watcher keeps a client view current by polling each feed in its own loop.
// Polls are plain reads, so a failed one is logged and retried next tick.
type Watcher struct {
	client    *Client
	feed      *notify.Synchronizer
	pricing   *pricecache.Cache
	scopes    []string
	intervals Intervals
	onChange  func(Snapshot)

	mu    sync.RWMutex
	state Snapshot
}

type WatcherOption func(*Watcher)

// WithScopes selects the pricing scopes kept warm. Default: all three.
func WithScopes(scopes ...string) WatcherOption {
	return func(w *Watcher) { w.scopes = scopes }
}

// OnChange is called after every successful poll with the new snapshot.
func OnChange(fn func(Snapshot)) WatcherOption {
	return func(w *Watcher) { w.onChange = fn }
}

func NewWatcher(client *Client, feed *notify.Synchronizer, pricing *pricecache.Cache, intervals Intervals, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		client:    client,
		feed:      feed,
		pricing:   pricing,
		scopes:    []string{models.ScopeServices, models.ScopeCodes, models.ScopePackages},
		intervals: intervals,
		state:     Snapshot{Pricing: map[string]map[string]models.EffectivePolicy{}},
	}
	if w.intervals.NoticeOverlap <= 0 {
		w.intervals.NoticeOverlap = DefaultNoticeOverlap
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is done. Every loop polls once immediately.
func (w *Watcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	w.loop(ctx, g, "balance", w.intervals.Balance, w.PollBalance)
	w.loop(ctx, g, "notices", w.intervals.Notices, w.PollNotices)
	w.loop(ctx, g, "orders", w.intervals.Orders, w.PollOrders)
	w.loop(ctx, g, "pricing", w.intervals.Pricing, w.PollPricing)

	return g.Wait()
}

func (w *Watcher) loop(ctx context.Context, g *errgroup.Group, name string, every time.Duration, poll func(context.Context) error) {
	if every <= 0 {
		return
	}
	g.Go(func() error {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			if err := poll(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[WATCHER] %s poll failed: %v", name, err)
			}
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})
}

func (w *Watcher) PollBalance(ctx context.Context) error {
	user, err := w.client.Balance(ctx)
	if err != nil {
		return err
	}
	w.update(func(s *Snapshot) { s.Balance = user })
	return nil
}

// PollNotices re-reads a window before the newest merged notice so late
// commits are still picked up. Merge drops the repeats.
func (w *Watcher) PollNotices(ctx context.Context) error {
	since := w.feed.Newest(models.AudienceUser)
	if !since.IsZero() {
		since = since.Add(-w.intervals.NoticeOverlap)
	}
	notices, err := w.client.Notices(ctx, since)
	if err != nil {
		return err
	}
	w.feed.Merge(models.AudienceUser, notices)
	unseen := w.feed.Unseen(models.AudienceUser)
	w.update(func(s *Snapshot) { s.Unseen = unseen })
	return nil
}

func (w *Watcher) PollOrders(ctx context.Context) error {
	orders, err := w.client.Orders(ctx, 50)
	if err != nil {
		return err
	}
	w.update(func(s *Snapshot) { s.Orders = orders })
	return nil
}

// PollPricing refreshes every scope through the cache, which refetches
// only when the server version moved or the entry expired.
func (w *Watcher) PollPricing(ctx context.Context) error {
	fetched := make(map[string]map[string]models.EffectivePolicy, len(w.scopes))
	for _, scope := range w.scopes {
		policies, err := w.pricing.Get(ctx, pricecache.NewKey(scope))
		if err != nil {
			return err
		}
		fetched[scope] = policies
	}
	w.update(func(s *Snapshot) {
		for scope, policies := range fetched {
			s.Pricing[scope] = policies
		}
	})
	return nil
}

func (w *Watcher) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := w.state
	out.Orders = append([]models.Order(nil), w.state.Orders...)
	out.Pricing = make(map[string]map[string]models.EffectivePolicy, len(w.state.Pricing))
	for scope, policies := range w.state.Pricing {
		out.Pricing[scope] = policies
	}
	return out
}

func (w *Watcher) update(apply func(*Snapshot)) {
	w.mu.Lock()
	apply(&w.state)
	w.state.UpdatedAt = time.Now()
	w.mu.Unlock()

	if w.onChange != nil {
		w.onChange(w.Snapshot())
	}
}
