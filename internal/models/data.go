package models

import "time"

// MarketSnapshot 归一化后的市场数据快照
// Numeric fields default to zero when the upstream payload omits them;
// MaxSupply stays nil for uncapped assets.
type MarketSnapshot struct {
	Symbol            string    `json:"symbol"`
	Name              string    `json:"name"`
	CurrentPrice      float64   `json:"current_price"`
	MarketCap         float64   `json:"market_cap"`
	MarketCapRank     int       `json:"market_cap_rank"`
	Volume24h         float64   `json:"volume_24h"`
	PriceChange24h    float64   `json:"price_change_24h"`
	PriceChange7d     float64   `json:"price_change_7d"`
	PriceChange30d    float64   `json:"price_change_30d"`
	CirculatingSupply float64   `json:"circulating_supply"`
	MaxSupply         *float64  `json:"max_supply"`
	DeveloperStars    int       `json:"developer_stars"`
	CommitCount4Weeks int       `json:"commit_count_4_weeks"`
	TwitterFollowers  int       `json:"twitter_followers"`
	RedditSubscribers int       `json:"reddit_subscribers"`
	TelegramUsers     int       `json:"telegram_users"`
	FetchedAt         time.Time `json:"fetched_at"`
}

// RequestRecord 请求日志记录
type RequestRecord struct {
	UserID    string    `json:"user_id"`
	Ticker    string    `json:"ticker"`
	CacheHit  bool      `json:"cache_hit"`
	Outcome   string    `json:"outcome"` // ok, not_found, error
	CreatedAt time.Time `json:"created_at"`
}

// RequestStats 请求聚合统计
type RequestStats struct {
	TotalRequests int            `json:"total_requests"`
	CacheHits     int            `json:"cache_hits"`
	ByTicker      map[string]int `json:"by_ticker"`
}
