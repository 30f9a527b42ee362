// Package notify keeps the client side notification feeds. Each audience has
// its own feed and its own read marker.
package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/smmwallet/backend/internal/models"
)

type feed struct {
	notices  []models.Notice
	index    map[string]struct{}
	lastSeen time.Time
	cleared  time.Time
}

type Synchronizer struct {
	mu    sync.Mutex
	feeds map[models.Audience]*feed
}

func NewSynchronizer() *Synchronizer {
	return &Synchronizer{feeds: make(map[models.Audience]*feed)}
}

// identity is the dedupe key of a notice: the correlation id when the
// server set one, otherwise title, body and timestamp.
func identity(n models.Notice) string {
	if n.CorrelationID != nil && *n.CorrelationID != "" {
		return "c:" + *n.CorrelationID
	}
	return "t:" + n.Title + "\x00" + n.Body + "\x00" + n.CreatedAt.UTC().Format(time.RFC3339Nano)
}

func (s *Synchronizer) feedFor(a models.Audience) *feed {
	f, ok := s.feeds[a]
	if !ok {
		f = &feed{index: make(map[string]struct{})}
		s.feeds[a] = f
	}
	return f
}

// Merge unions remote into the audience feed and returns the merged feed
// ordered by timestamp. Merging the same list twice changes nothing, and
// merging never marks anything as read.
func (s *Synchronizer) Merge(a models.Audience, remote []models.Notice) []models.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.feedFor(a)
	for _, n := range remote {
		if n.Audience != "" && n.Audience != a {
			continue
		}
		if !f.cleared.IsZero() && !n.CreatedAt.After(f.cleared) {
			continue
		}
		id := identity(n)
		if _, dup := f.index[id]; dup {
			continue
		}
		f.index[id] = struct{}{}
		f.notices = append(f.notices, n)
	}

	sort.SliceStable(f.notices, func(i, j int) bool {
		return f.notices[i].CreatedAt.Before(f.notices[j].CreatedAt)
	})
	return append([]models.Notice(nil), f.notices...)
}

// Notices returns a copy of the audience feed.
func (s *Synchronizer) Notices(a models.Audience) []models.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Notice(nil), s.feedFor(a).notices...)
}

// Unseen counts notices newer than the audience's last open.
func (s *Synchronizer) Unseen(a models.Audience) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.feedFor(a)
	count := 0
	for _, n := range f.notices {
		if n.CreatedAt.After(f.lastSeen) {
			count++
		}
	}
	return count
}

// Open marks the audience feed as read up to its newest notice.
func (s *Synchronizer) Open(a models.Audience) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.feedFor(a)
	if n := len(f.notices); n > 0 && f.notices[n-1].CreatedAt.After(f.lastSeen) {
		f.lastSeen = f.notices[n-1].CreatedAt
	}
}

// LastSeen returns the read marker of the audience.
func (s *Synchronizer) LastSeen(a models.Audience) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.feedFor(a).lastSeen
}

// Clear empties the audience feed. Notices up to the newest cleared one are
// not merged back in by later fetches.
func (s *Synchronizer) Clear(a models.Audience) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.feedFor(a)
	if n := len(f.notices); n > 0 {
		newest := f.notices[n-1].CreatedAt
		if newest.After(f.cleared) {
			f.cleared = newest
		}
		if newest.After(f.lastSeen) {
			f.lastSeen = newest
		}
	}
	f.notices = nil
	f.index = make(map[string]struct{})
}

// Newest returns the timestamp of the newest merged notice, or the clear
// marker when the feed is empty. Pollers fetch from there.
func (s *Synchronizer) Newest(a models.Audience) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.feedFor(a)
	if n := len(f.notices); n > 0 {
		return f.notices[n-1].CreatedAt
	}
	return f.cleared
}
