package coingecko

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksignal/blocksignal/internal/data"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string) *Client {
	c := NewClient(time.Second, time.Second, testLogger())
	c.baseURL = baseURL
	return c
}

func TestClient_Search(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantID   string
		wantMiss bool
	}{
		{
			name:   "first match wins",
			status: http.StatusOK,
			body:   `{"coins":[{"id":"bitcoin","symbol":"btc","name":"Bitcoin"},{"id":"bitcoin-cash","symbol":"bch","name":"Bitcoin Cash"}]}`,
			wantID: "bitcoin",
		},
		{
			name:     "no matches",
			status:   http.StatusOK,
			body:     `{"coins":[]}`,
			wantMiss: true,
		},
		{
			name:     "rate limited upstream",
			status:   http.StatusTooManyRequests,
			body:     `{"error":"throttled"}`,
			wantMiss: true,
		},
		{
			name:     "malformed payload",
			status:   http.StatusOK,
			body:     `{"coins":`,
			wantMiss: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/search", r.URL.Path)
				assert.Equal(t, "BTC", r.URL.Query().Get("query"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			id, err := testClient(srv.URL).Search(context.Background(), "BTC")
			if tt.wantMiss {
				require.ErrorIs(t, err, data.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestClient_FetchDetails(t *testing.T) {
	body := `{
		"name": "Bitcoin",
		"symbol": "btc",
		"market_cap_rank": 1,
		"market_data": {
			"current_price": {"usd": 67000.5},
			"market_cap": {"usd": 1320000000000},
			"total_volume": {"usd": 35000000000},
			"price_change_percentage_24h": 2.31,
			"price_change_percentage_7d": -1.2,
			"price_change_percentage_30d": 8.4,
			"circulating_supply": 19000000,
			"max_supply": 21000000
		},
		"community_data": {
			"twitter_followers": 6500000,
			"reddit_subscribers": 4800000,
			"telegram_channel_user_count": null
		},
		"developer_data": {
			"stars": 72000,
			"commit_count_4_weeks": 320
		}
	}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins/bitcoin", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("market_data"))
		assert.Equal(t, "true", r.URL.Query().Get("community_data"))
		assert.Equal(t, "true", r.URL.Query().Get("developer_data"))
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	snap, err := testClient(srv.URL).FetchDetails(context.Background(), "bitcoin")
	require.NoError(t, err)

	assert.Equal(t, "Bitcoin", snap.Name)
	assert.Equal(t, "btc", snap.Symbol)
	assert.Equal(t, 1, snap.MarketCapRank)
	assert.Equal(t, 67000.5, snap.CurrentPrice)
	assert.Equal(t, 1_320_000_000_000.0, snap.MarketCap)
	assert.Equal(t, 35_000_000_000.0, snap.Volume24h)
	assert.Equal(t, 2.31, snap.PriceChange24h)
	assert.Equal(t, -1.2, snap.PriceChange7d)
	assert.Equal(t, 8.4, snap.PriceChange30d)
	assert.Equal(t, 19_000_000.0, snap.CirculatingSupply)
	require.NotNil(t, snap.MaxSupply)
	assert.Equal(t, 21_000_000.0, *snap.MaxSupply)
	assert.Equal(t, 6_500_000, snap.TwitterFollowers)
	assert.Equal(t, 4_800_000, snap.RedditSubscribers)
	assert.Zero(t, snap.TelegramUsers)
	assert.Equal(t, 72_000, snap.DeveloperStars)
	assert.Equal(t, 320, snap.CommitCount4Weeks)
	assert.False(t, snap.FetchedAt.IsZero())
}

func TestClient_FetchDetailsUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchDetails(context.Background(), "bitcoin")
	assert.ErrorIs(t, err, data.ErrNotFound)
}

func TestNormalizeDefaults(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "everything missing", body: `{"name":"Mystery","symbol":"myst"}`},
		{name: "empty sections", body: `{"name":"Mystery","symbol":"myst","market_data":{},"community_data":{},"developer_data":{}}`},
		{name: "null rank", body: `{"name":"Mystery","symbol":"myst","market_cap_rank":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw coinResponse
			require.NoError(t, json.Unmarshal([]byte(tt.body), &raw))

			// Absent fields never panic; they default to zero values.
			snap := normalize(&raw)
			assert.Equal(t, "Mystery", snap.Name)
			assert.Zero(t, snap.MarketCapRank)
			assert.Zero(t, snap.CurrentPrice)
			assert.Zero(t, snap.MarketCap)
			assert.Zero(t, snap.TwitterFollowers)
			assert.Zero(t, snap.DeveloperStars)
			assert.Nil(t, snap.MaxSupply)
		})
	}
}
