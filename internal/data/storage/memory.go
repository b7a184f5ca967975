package storage

import (
	"context"
	"sync"
	"time"

	"github.com/blocksignal/blocksignal/internal/data"
	"github.com/blocksignal/blocksignal/internal/models"
	"github.com/blocksignal/blocksignal/internal/scorecard"
)

// MemoryStore is an in-process ScorecardStore for tests and database-less
// deployments. It mirrors the Postgres semantics: the scorecard log is
// append-only and freshness is filtered at read time.
type MemoryStore struct {
	mu       sync.Mutex
	records  []data.CacheRecord
	requests []models.RequestRecord
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// SetClock overrides the store's clock. Tests use this to simulate
// record aging.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Save implements ScorecardStore interface
func (s *MemoryStore) Save(_ context.Context, card *scorecard.Scorecard, snapshot *models.MarketSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, data.CacheRecord{
		Card:        card,
		Snapshot:    snapshot,
		GeneratedAt: card.GeneratedAt,
	})
	return nil
}

// Lookup implements ScorecardStore interface
func (s *MemoryStore) Lookup(_ context.Context, ticker string, ttl time.Duration) (*data.CacheRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)

	// Newest matching row wins; the log is append-ordered.
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if rec.Card.Ticker == ticker && rec.GeneratedAt.After(cutoff) {
			return &rec, nil
		}
	}
	return nil, data.ErrNotFound
}

// RecordRequest implements ScorecardStore interface
func (s *MemoryStore) RecordRequest(_ context.Context, rec *models.RequestRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, *rec)
	return nil
}

// Stats implements ScorecardStore interface
func (s *MemoryStore) Stats(_ context.Context) (*models.RequestStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &models.RequestStats{ByTicker: make(map[string]int)}
	for _, rec := range s.requests {
		stats.TotalRequests++
		if rec.CacheHit {
			stats.CacheHits++
		}
		stats.ByTicker[rec.Ticker]++
	}
	return stats, nil
}
