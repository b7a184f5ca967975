package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/blocksignal/blocksignal/internal/data"
	"github.com/blocksignal/blocksignal/internal/models"
	"github.com/blocksignal/blocksignal/internal/utils/request"
)

const (
	defaultBaseURL        = "https://api.coingecko.com/api/v3"
	defaultSearchTimeout  = 5 * time.Second
	defaultDetailsTimeout = 10 * time.Second
)

type Logger interface {
	Error(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
}

// Client fetches coin data from the CoinGecko REST API. Transport
// failures, non-200 responses and malformed payloads all collapse into
// data.ErrNotFound; callers never see a raw transport error.
type Client struct {
	baseURL        string
	searchTimeout  time.Duration
	detailsTimeout time.Duration
	httpClient     *resty.Client
	logger         Logger
}

func NewClient(searchTimeout, detailsTimeout time.Duration, logger Logger) *Client {
	if searchTimeout <= 0 {
		searchTimeout = defaultSearchTimeout
	}
	if detailsTimeout <= 0 {
		detailsTimeout = defaultDetailsTimeout
	}
	return &Client{
		baseURL:        defaultBaseURL,
		searchTimeout:  searchTimeout,
		detailsTimeout: detailsTimeout,
		httpClient:     request.Request,
		logger:         logger,
	}
}

func (c *Client) Name() string {
	return "coingecko"
}

// Search implements data.MarketDataClient, resolving the first match
// from the full-text coin search.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.searchTimeout)
	defer cancel()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("query", query).
		Get(c.baseURL + "/search")
	if err != nil {
		c.logger.Error("coin search request failed", "query", query, "error", err)
		return "", data.ErrNotFound
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Error("coin search returned non-200", "query", query, "status", resp.StatusCode())
		return "", data.ErrNotFound
	}

	var result struct {
		Coins []struct {
			ID     string `json:"id"`
			Symbol string `json:"symbol"`
			Name   string `json:"name"`
		} `json:"coins"`
	}

	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		c.logger.Error("failed to decode search response", "query", query, "error", err)
		return "", data.ErrNotFound
	}

	if len(result.Coins) == 0 {
		return "", data.ErrNotFound
	}

	return result.Coins[0].ID, nil
}

// coinResponse mirrors the subset of the coins/{id} payload we read.
// Pointer fields distinguish absent values from zeros.
type coinResponse struct {
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	MarketCapRank *int   `json:"market_cap_rank"`
	MarketData    *struct {
		CurrentPrice             map[string]float64 `json:"current_price"`
		MarketCap                map[string]float64 `json:"market_cap"`
		TotalVolume              map[string]float64 `json:"total_volume"`
		PriceChangePercentage24h *float64           `json:"price_change_percentage_24h"`
		PriceChangePercentage7d  *float64           `json:"price_change_percentage_7d"`
		PriceChangePercentage30d *float64           `json:"price_change_percentage_30d"`
		CirculatingSupply        *float64           `json:"circulating_supply"`
		MaxSupply                *float64           `json:"max_supply"`
	} `json:"market_data"`
	CommunityData *struct {
		TwitterFollowers         *int `json:"twitter_followers"`
		RedditSubscribers        *int `json:"reddit_subscribers"`
		TelegramChannelUserCount *int `json:"telegram_channel_user_count"`
	} `json:"community_data"`
	DeveloperData *struct {
		Stars             *int `json:"stars"`
		CommitCount4Weeks *int `json:"commit_count_4_weeks"`
	} `json:"developer_data"`
}

// FetchDetails implements data.MarketDataClient. Market, community and
// developer data come back in one call; missing fields default to zero
// so downstream scoring never needs null guards.
func (c *Client) FetchDetails(ctx context.Context, coinID string) (*models.MarketSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.detailsTimeout)
	defer cancel()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"localization":   "false",
			"tickers":        "false",
			"market_data":    "true",
			"community_data": "true",
			"developer_data": "true",
		}).
		Get(fmt.Sprintf("%s/coins/%s", c.baseURL, coinID))
	if err != nil {
		c.logger.Error("coin details request failed", "coin_id", coinID, "error", err)
		return nil, data.ErrNotFound
	}

	if resp.StatusCode() != http.StatusOK {
		c.logger.Error("coin details returned non-200", "coin_id", coinID, "status", resp.StatusCode())
		return nil, data.ErrNotFound
	}

	var raw coinResponse
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		c.logger.Error("failed to decode details response", "coin_id", coinID, "error", err)
		return nil, data.ErrNotFound
	}

	return normalize(&raw), nil
}

func normalize(raw *coinResponse) *models.MarketSnapshot {
	snap := &models.MarketSnapshot{
		Symbol:        raw.Symbol,
		Name:          raw.Name,
		MarketCapRank: intOrZero(raw.MarketCapRank),
		FetchedAt:     time.Now(),
	}

	if md := raw.MarketData; md != nil {
		snap.CurrentPrice = md.CurrentPrice["usd"]
		snap.MarketCap = md.MarketCap["usd"]
		snap.Volume24h = md.TotalVolume["usd"]
		snap.PriceChange24h = floatOrZero(md.PriceChangePercentage24h)
		snap.PriceChange7d = floatOrZero(md.PriceChangePercentage7d)
		snap.PriceChange30d = floatOrZero(md.PriceChangePercentage30d)
		snap.CirculatingSupply = floatOrZero(md.CirculatingSupply)
		snap.MaxSupply = md.MaxSupply
	}

	if cd := raw.CommunityData; cd != nil {
		snap.TwitterFollowers = intOrZero(cd.TwitterFollowers)
		snap.RedditSubscribers = intOrZero(cd.RedditSubscribers)
		snap.TelegramUsers = intOrZero(cd.TelegramChannelUserCount)
	}

	if dd := raw.DeveloperData; dd != nil {
		snap.DeveloperStars = intOrZero(dd.Stars)
		snap.CommitCount4Weeks = intOrZero(dd.CommitCount4Weeks)
	}

	return snap
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func floatOrZero(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
