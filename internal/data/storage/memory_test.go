package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksignal/blocksignal/internal/data"
	"github.com/blocksignal/blocksignal/internal/models"
	"github.com/blocksignal/blocksignal/internal/scorecard"
)

func cardAt(t *testing.T, ticker string, generatedAt time.Time, score int) *scorecard.Scorecard {
	t.Helper()
	card := scorecard.New(ticker)
	card.GeneratedAt = generatedAt
	require.NoError(t, card.AddScore("Adoption & Partnerships", score, "r", nil))
	return card
}

func TestMemoryStore_LookupTTL(t *testing.T) {
	now := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store := NewMemoryStore()
	store.SetClock(func() time.Time { return now })

	fresh := cardAt(t, "BTC", now.Add(-10*time.Minute), 5)
	stale := cardAt(t, "ETH", now.Add(-40*time.Minute), 4)

	require.NoError(t, store.Save(ctx, stale, &models.MarketSnapshot{Name: "Ethereum"}))
	require.NoError(t, store.Save(ctx, fresh, &models.MarketSnapshot{Name: "Bitcoin"}))

	// A record stored 10 minutes ago is served within a 30-minute TTL.
	rec, err := store.Lookup(ctx, "BTC", 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "Bitcoin", rec.Snapshot.Name)
	assert.Equal(t, 5, rec.Card.TotalScore())

	// A record stored 40 minutes ago is a miss.
	_, err = store.Lookup(ctx, "ETH", 30*time.Minute)
	assert.ErrorIs(t, err, data.ErrNotFound)

	// Unknown ticker is a miss.
	_, err = store.Lookup(ctx, "XRP", 30*time.Minute)
	assert.ErrorIs(t, err, data.ErrNotFound)
}

func TestMemoryStore_LookupNewestWins(t *testing.T) {
	now := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	store := NewMemoryStore()
	store.SetClock(func() time.Time { return now })

	// Append-only: a newer generation supersedes the older one without
	// touching it.
	older := cardAt(t, "BTC", now.Add(-20*time.Minute), 3)
	newer := cardAt(t, "BTC", now.Add(-5*time.Minute), 5)
	require.NoError(t, store.Save(ctx, older, &models.MarketSnapshot{}))
	require.NoError(t, store.Save(ctx, newer, &models.MarketSnapshot{}))

	rec, err := store.Lookup(ctx, "BTC", 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 5, rec.Card.TotalScore())
}

func TestMemoryStore_Stats(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	records := []models.RequestRecord{
		{UserID: "u1", Ticker: "BTC", CacheHit: false, Outcome: "ok"},
		{UserID: "u2", Ticker: "BTC", CacheHit: true, Outcome: "ok"},
		{UserID: "u1", Ticker: "ETH", CacheHit: false, Outcome: "not_found"},
	}
	for i := range records {
		require.NoError(t, store.RecordRequest(ctx, &records[i]))
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalRequests)
	assert.Equal(t, 1, stats.CacheHits)
	assert.Equal(t, map[string]int{"BTC": 2, "ETH": 1}, stats.ByTicker)
}

func TestMemoryStore_StatsEmpty(t *testing.T) {
	stats, err := NewMemoryStore().Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRequests)
	assert.Empty(t, stats.ByTicker)
}
