package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/singleflight"

	"github.com/blocksignal/blocksignal/internal/data"
	"github.com/blocksignal/blocksignal/internal/models"
	"github.com/blocksignal/blocksignal/internal/ratelimit"
	"github.com/blocksignal/blocksignal/internal/scorecard"
	"github.com/blocksignal/blocksignal/internal/scoring"
)

var (
	// ErrInvalidTicker marks a request whose ticker fails format
	// validation before anything else runs.
	ErrInvalidTicker = errors.New("invalid ticker format")

	// ErrInternal is the generic failure returned to users when the
	// real cause only belongs in the operator log.
	ErrInternal = errors.New("internal error")
)

// RateLimitError rejects a request that arrived inside the user's
// cooldown window.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %ds", e.RetryAfter)
}

type Logger interface {
	Error(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Service orchestrates one ticker request: rate gate, cache lookup,
// then fetch, score, persist and render on a miss.
type Service struct {
	client   data.MarketDataClient
	store    data.ScorecardStore
	engine   *scoring.Engine
	limiter  *ratelimit.Limiter
	cacheTTL time.Duration
	logger   Logger

	// group collapses concurrent cache misses for the same ticker into
	// a single upstream fetch.
	group singleflight.Group
}

func New(
	client data.MarketDataClient,
	store data.ScorecardStore,
	engine *scoring.Engine,
	limiter *ratelimit.Limiter,
	cacheTTL time.Duration,
	logger Logger,
) *Service {
	return &Service{
		client:   client,
		store:    store,
		engine:   engine,
		limiter:  limiter,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// ProcessTicker handles one "process ticker request for user X"
// operation and returns the rendered report. Failures come back as
// typed errors; UserMessage maps them to chat-ready strings. A single
// bad request must never take the process down, so any panic below is
// converted into ErrInternal here.
func (s *Service) ProcessTicker(ctx context.Context, userID, ticker string) (report string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while processing request", "user_id", userID, "ticker", ticker, "panic", r)
			report, err = "", ErrInternal
		}
	}()

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if !validTicker(ticker) {
		return "", ErrInvalidTicker
	}

	if ok, retryAfter := s.limiter.Allow(userID); !ok {
		// Rejected before identity matters; nothing is logged to the
		// request log on this path.
		return "", &RateLimitError{RetryAfter: retryAfter}
	}

	rec, cacheHit, err := s.lookupOrGenerate(ctx, ticker)
	s.recordRequest(ctx, userID, ticker, cacheHit, err)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			return "", err
		}
		s.logger.Error("failed to generate scorecard", "user_id", userID, "ticker", ticker, "error", err)
		return "", ErrInternal
	}

	return rec.Card.Report(rec.Snapshot), nil
}

// Stats aggregates the request log for the operator surface.
func (s *Service) Stats(ctx context.Context) (*models.RequestStats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) lookupOrGenerate(ctx context.Context, ticker string) (*data.CacheRecord, bool, error) {
	rec, err := s.store.Lookup(ctx, ticker, s.cacheTTL)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, data.ErrNotFound) {
		// A broken cache read degrades to a miss.
		s.logger.Warn("cache lookup failed, treating as miss", "ticker", ticker, "error", err)
	}

	v, err, _ := s.group.Do(ticker, func() (interface{}, error) {
		return s.generate(ctx, ticker)
	})
	if err != nil {
		return nil, false, err
	}
	return v.(*data.CacheRecord), false, nil
}

func (s *Service) generate(ctx context.Context, ticker string) (*data.CacheRecord, error) {
	coinID, err := s.client.Search(ctx, ticker)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.client.FetchDetails(ctx, coinID)
	if err != nil {
		return nil, err
	}

	card := scorecard.New(ticker)
	for _, res := range s.engine.Evaluate(snapshot) {
		if res.Err != nil {
			s.logger.Error("category scoring failed", "ticker", ticker, "category", res.Category, "error", res.Err)
			_ = card.AddScore(res.Category, 1, "scoring error", nil)
			continue
		}
		if err := card.AddScore(res.Category, res.Score, res.Reasoning, res.Sources); err != nil {
			s.logger.Error("category score rejected", "ticker", ticker, "category", res.Category, "error", err)
			_ = card.AddScore(res.Category, 1, "scoring error", nil)
		}
	}

	// Caching is best-effort; a failed write never blocks the report.
	if err := s.store.Save(ctx, card, snapshot); err != nil {
		s.logger.Warn("failed to cache scorecard", "ticker", ticker, "error", err)
	}

	return &data.CacheRecord{
		Card:        card,
		Snapshot:    snapshot,
		GeneratedAt: card.GeneratedAt,
	}, nil
}

func (s *Service) recordRequest(ctx context.Context, userID, ticker string, cacheHit bool, reqErr error) {
	outcome := "ok"
	switch {
	case errors.Is(reqErr, data.ErrNotFound):
		outcome = "not_found"
	case reqErr != nil:
		outcome = "error"
	}

	rec := &models.RequestRecord{
		UserID:    userID,
		Ticker:    ticker,
		CacheHit:  cacheHit,
		Outcome:   outcome,
		CreatedAt: time.Now(),
	}
	if err := s.store.RecordRequest(ctx, rec); err != nil {
		s.logger.Warn("failed to record request", "user_id", userID, "ticker", ticker, "error", err)
	}
}

func validTicker(ticker string) bool {
	if len(ticker) < 3 || len(ticker) > 10 {
		return false
	}
	for _, r := range ticker {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// UserMessage maps a ProcessTicker error to the text shown to the chat
// user. Internal detail stays in the operator log.
func UserMessage(ticker string, err error) string {
	var rl *RateLimitError
	switch {
	case errors.Is(err, ErrInvalidTicker):
		return "Send a ticker of 3-10 letters or digits, e.g. BTC"
	case errors.As(err, &rl):
		return fmt.Sprintf("Slow down! Try again in %d seconds", rl.RetryAfter)
	case errors.Is(err, data.ErrNotFound):
		return fmt.Sprintf("Could not find %s", ticker)
	default:
		return "Something went wrong on our side, please try again later"
	}
}
