package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/blocksignal/blocksignal/internal/data"
	"github.com/blocksignal/blocksignal/internal/models"
	"github.com/blocksignal/blocksignal/internal/scorecard"

	_ "github.com/lib/pq"
)

// PostgresStore persists scorecards as an append-only log and keeps the
// request log for aggregate statistics. Cached records are never
// updated or deleted; freshness is a filter at read time.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: db, now: time.Now}

	if err := s.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return s, nil
}

// Save implements ScorecardStore interface
func (s *PostgresStore) Save(ctx context.Context, card *scorecard.Scorecard, snapshot *models.MarketSnapshot) error {
	scores, err := json.Marshal(card.Scores)
	if err != nil {
		return fmt.Errorf("failed to encode scores: %w", err)
	}

	snap, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	query := `
        INSERT INTO scorecards (
            ticker, total_score, scores, snapshot, generated_at
        ) VALUES (
            $1, $2, $3, $4, $5
        )
    `

	_, err = s.db.ExecContext(ctx, query,
		card.Ticker,
		card.TotalScore(),
		scores,
		snap,
		card.GeneratedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save scorecard: %w", err)
	}

	return nil
}

// Lookup implements ScorecardStore interface
func (s *PostgresStore) Lookup(ctx context.Context, ticker string, ttl time.Duration) (*data.CacheRecord, error) {
	query := `
        SELECT ticker, scores, snapshot, generated_at
        FROM scorecards
        WHERE ticker = $1 AND generated_at > $2
        ORDER BY generated_at DESC
        LIMIT 1
    `

	cutoff := s.now().Add(-ttl)

	var (
		gotTicker   string
		scoresRaw   []byte
		snapRaw     []byte
		generatedAt time.Time
	)

	err := s.db.QueryRowContext(ctx, query, ticker, cutoff).Scan(
		&gotTicker, &scoresRaw, &snapRaw, &generatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, data.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query scorecard: %w", err)
	}

	card := &scorecard.Scorecard{
		Ticker:      gotTicker,
		GeneratedAt: generatedAt,
		Scores:      make(map[string]scorecard.ScoreDetail),
	}
	if err := json.Unmarshal(scoresRaw, &card.Scores); err != nil {
		return nil, fmt.Errorf("failed to decode scores: %w", err)
	}

	var snapshot models.MarketSnapshot
	if err := json.Unmarshal(snapRaw, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return &data.CacheRecord{
		Card:        card,
		Snapshot:    &snapshot,
		GeneratedAt: generatedAt,
	}, nil
}

// RecordRequest implements ScorecardStore interface
func (s *PostgresStore) RecordRequest(ctx context.Context, rec *models.RequestRecord) error {
	query := `
        INSERT INTO request_log (
            user_id, ticker, cache_hit, outcome, created_at
        ) VALUES (
            $1, $2, $3, $4, $5
        )
    `

	_, err := s.db.ExecContext(ctx, query,
		rec.UserID,
		rec.Ticker,
		rec.CacheHit,
		rec.Outcome,
		rec.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}

	return nil
}

// Stats implements ScorecardStore interface
func (s *PostgresStore) Stats(ctx context.Context) (*models.RequestStats, error) {
	stats := &models.RequestStats{ByTicker: make(map[string]int)}

	totalsQuery := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE cache_hit)
        FROM request_log
    `

	err := s.db.QueryRowContext(ctx, totalsQuery).Scan(&stats.TotalRequests, &stats.CacheHits)
	if err != nil {
		return nil, fmt.Errorf("failed to query request totals: %w", err)
	}

	byTickerQuery := `
        SELECT ticker, COUNT(*)
        FROM request_log
        GROUP BY ticker
    `

	rows, err := s.db.QueryContext(ctx, byTickerQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query per-ticker counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ticker string
		var count int
		if err := rows.Scan(&ticker, &count); err != nil {
			return nil, fmt.Errorf("failed to scan ticker count: %w", err)
		}
		stats.ByTicker[ticker] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticker counts: %w", err)
	}

	return stats, nil
}

func (s *PostgresStore) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS scorecards (
			id SERIAL PRIMARY KEY,
			ticker VARCHAR(20) NOT NULL,
			total_score INT NOT NULL,
			scores JSONB NOT NULL,
			snapshot JSONB NOT NULL,
			generated_at TIMESTAMP NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_scorecards_ticker_generated
			ON scorecards (ticker, generated_at DESC)`,

		`CREATE TABLE IF NOT EXISTS request_log (
			id SERIAL PRIMARY KEY,
			user_id VARCHAR(100) NOT NULL,
			ticker VARCHAR(20) NOT NULL,
			cache_hit BOOLEAN NOT NULL,
			outcome VARCHAR(20) NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, query := range queries {
		_, err := s.db.Exec(query)
		if err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}
