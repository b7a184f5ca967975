package data

import (
	"context"
	"errors"
	"time"

	"github.com/blocksignal/blocksignal/internal/models"
	"github.com/blocksignal/blocksignal/internal/scorecard"
)

// ErrNotFound marks a ticker that could not be resolved, a missing
// cache record, or an upstream failure collapsed into "no data".
var ErrNotFound = errors.New("not found")

// MarketDataClient 负责从上游行情源获取数据
type MarketDataClient interface {
	// Search resolves a free-text query to an upstream coin identifier,
	// taking the first ranked match.
	Search(ctx context.Context, query string) (string, error)

	// FetchDetails retrieves market, community and developer data for a
	// coin identifier in one call and flattens it into a snapshot.
	FetchDetails(ctx context.Context, coinID string) (*models.MarketSnapshot, error)
}

// CacheRecord is one persisted scorecard generation.
type CacheRecord struct {
	Card        *scorecard.Scorecard
	Snapshot    *models.MarketSnapshot
	GeneratedAt time.Time
}

// ScorecardStore 处理评分卡与请求日志的持久化
type ScorecardStore interface {
	// Save appends a generated scorecard together with the snapshot it
	// was scored from. Records are never updated in place.
	Save(ctx context.Context, card *scorecard.Scorecard, snapshot *models.MarketSnapshot) error

	// Lookup returns the newest record for the ticker generated within
	// ttl of now, or ErrNotFound.
	Lookup(ctx context.Context, ticker string, ttl time.Duration) (*CacheRecord, error)

	// RecordRequest appends one request-log entry.
	RecordRequest(ctx context.Context, rec *models.RequestRecord) error

	// Stats aggregates the request log.
	Stats(ctx context.Context) (*models.RequestStats, error)
}
