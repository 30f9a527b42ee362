package client

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/smmwallet/backend/internal/models"
	"github.com/smmwallet/backend/internal/notify"
	"github.com/smmwallet/backend/internal/pricecache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func walletServer(t *testing.T, created time.Time) (chi.Router, func() []string) {
	var (
		mu     sync.Mutex
		sinces []string
	)
	correlation := "order:o1:done"

	r := chi.NewRouter()
	r.Get("/api/v1/me/balance", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.User{UID: "u1", Balance: decimal.RequireFromString("4.75")})
	})
	r.Get("/api/v1/me/orders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []models.Order{{ID: "o1", UID: "u1", Status: models.StatusDone}})
	})
	r.Get("/api/v1/notices", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		sinces = append(sinces, r.URL.Query().Get("since"))
		mu.Unlock()
		writeJSON(w, http.StatusOK, []models.Notice{{
			ID: "n1", Audience: models.AudienceUser, Title: "Order completed",
			CorrelationID: &correlation, CreatedAt: created,
		}})
	})
	r.Get("/api/v1/pricing/{scope}/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.PricingVersion{Scope: chi.URLParam(r, "scope"), Version: 1})
	})
	r.Get("/api/v1/pricing/{scope}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, models.PricingBulk{Scope: chi.URLParam(r, "scope"), Version: 1,
			Policies: map[string]models.EffectivePolicy{}})
	})

	return r, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), sinces...)
	}
}

func TestWatcher_PollNotices(t *testing.T) {
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	r, sinces := walletServer(t, created)
	c := newTestClient(t, r)
	feed := notify.NewSynchronizer()
	w := NewWatcher(c, feed, pricecache.New(c, nil), Intervals{})
	ctx := context.Background()

	require.NoError(t, w.PollNotices(ctx))
	require.NoError(t, w.PollNotices(ctx))

	// the second poll re-reads a window before the newest merged notice
	// and the repeated notice is merged once
	got := sinces()
	require.Len(t, got, 2)
	assert.Empty(t, got[0])
	assert.Equal(t, created.Add(-DefaultNoticeOverlap).Format(time.RFC3339Nano), got[1])
	assert.Len(t, feed.Notices(models.AudienceUser), 1)
	assert.Equal(t, 1, w.Snapshot().Unseen)
}

func TestWatcher_PollNoticesPicksUpLateCommits(t *testing.T) {
	late := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	early := late.Add(time.Second)
	lateCorr, earlyCorr := "order:o1:pending", "order:o2:pending"
	lateNotice := models.Notice{ID: "n1", Audience: models.AudienceUser, Title: "New order",
		CorrelationID: &lateCorr, CreatedAt: late}
	earlyNotice := models.Notice{ID: "n2", Audience: models.AudienceUser, Title: "New order",
		CorrelationID: &earlyCorr, CreatedAt: early}

	var (
		mu     sync.Mutex
		polls  int
		sinces []string
	)
	r := chi.NewRouter()
	r.Get("/api/v1/notices", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		polls++
		sinces = append(sinces, r.URL.Query().Get("since"))
		// n1 is stamped first but its transaction commits after the first read
		if polls == 1 {
			writeJSON(w, http.StatusOK, []models.Notice{earlyNotice})
			return
		}
		writeJSON(w, http.StatusOK, []models.Notice{lateNotice, earlyNotice})
	})

	c := newTestClient(t, r)
	feed := notify.NewSynchronizer()
	w := NewWatcher(c, feed, pricecache.New(c, nil), Intervals{NoticeOverlap: time.Minute})
	ctx := context.Background()

	require.NoError(t, w.PollNotices(ctx))
	require.NoError(t, w.PollNotices(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sinces, 2)
	assert.Equal(t, early.Add(-time.Minute).Format(time.RFC3339Nano), sinces[1])

	merged := feed.Notices(models.AudienceUser)
	require.Len(t, merged, 2)
	assert.Equal(t, "n1", merged[0].ID)
	assert.Equal(t, "n2", merged[1].ID)
	assert.Equal(t, 2, w.Snapshot().Unseen)
}

func TestWatcher_RunUntilCanceled(t *testing.T) {
	r, _ := walletServer(t, time.Now().UTC())
	c := newTestClient(t, r)
	w := NewWatcher(c, notify.NewSynchronizer(), pricecache.New(c, nil), Intervals{
		Balance: 5 * time.Millisecond,
		Notices: 5 * time.Millisecond,
		Orders:  5 * time.Millisecond,
		Pricing: 5 * time.Millisecond,
	}, WithScopes(models.ScopeCodes))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		s := w.Snapshot()
		_, priced := s.Pricing[models.ScopeCodes]
		return s.Balance != nil && len(s.Orders) == 1 && priced && s.Unseen == 1
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}

	snap := w.Snapshot()
	assert.Equal(t, "4.75", snap.Balance.Balance.StringFixed(2))
}
