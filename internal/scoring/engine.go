package scoring

import (
	"fmt"

	"github.com/blocksignal/blocksignal/internal/models"
	"github.com/blocksignal/blocksignal/internal/scorecard"
)

// Source labels attached to score details.
const (
	sourceMarket    = "coingecko:market"
	sourceCommunity = "coingecko:community"
	sourceDeveloper = "coingecko:developer"
	sourceStatic    = "static:heuristic"
)

// ScoreFunc maps a market snapshot to a category score and reasoning.
// Scorers must tolerate zero-valued fields; absent data resolves to the
// lowest-confidence branch rather than an error.
type ScoreFunc func(snapshot *models.MarketSnapshot) (int, string, []string)

// Result is the tagged outcome of evaluating one category: either a
// score with reasoning, or a failure that the caller is expected to
// substitute.
type Result struct {
	Category  string
	Score     int
	Reasoning string
	Sources   []string
	Err       error
}

// Engine evaluates all six fixed categories against one snapshot.
type Engine struct {
	scorers map[string]ScoreFunc
}

func NewEngine() *Engine {
	return &Engine{
		scorers: map[string]ScoreFunc{
			"Adoption & Partnerships":            ScoreAdoption,
			"On-Chain Activity":                  ScoreActivity,
			"Validator / Miner Decentralization": ScoreDecentralization,
			"Governance & Transparency":          ScoreGovernance,
			"Narrative & Market Positioning":     ScoreNarrative,
			"Token Utility & Economics":          ScoreUtility,
		},
	}
}

// Evaluate runs every category scorer. A panicking scorer is contained
// to its own Result so one bad category never blocks the report.
func (e *Engine) Evaluate(snapshot *models.MarketSnapshot) []Result {
	results := make([]Result, 0, len(scorecard.Categories))
	for _, cat := range scorecard.Categories {
		results = append(results, e.evaluateOne(cat, snapshot))
	}
	return results
}

func (e *Engine) evaluateOne(category string, snapshot *models.MarketSnapshot) (res Result) {
	res.Category = category

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("scorer for %q panicked: %v", category, r)
		}
	}()

	fn, ok := e.scorers[category]
	if !ok {
		res.Err = fmt.Errorf("no scorer registered for %q", category)
		return res
	}

	res.Score, res.Reasoning, res.Sources = fn(snapshot)
	return res
}

// ScoreAdoption scores by market-cap rank, falling back to the social
// following for unranked or long-tail assets.
func ScoreAdoption(s *models.MarketSnapshot) (int, string, []string) {
	rank := s.MarketCapRank
	switch {
	case rank > 0 && rank <= 10:
		return 5, fmt.Sprintf("Top-10 market cap rank (#%d); widely adopted", rank), []string{sourceMarket}
	case rank > 0 && rank <= 30:
		return 4, fmt.Sprintf("Top-30 market cap rank (#%d); strong adoption", rank), []string{sourceMarket}
	case rank > 0 && rank <= 100:
		return 3, fmt.Sprintf("Top-100 market cap rank (#%d); moderate adoption", rank), []string{sourceMarket}
	case s.TwitterFollowers > 100_000:
		return 3, fmt.Sprintf("Long-tail rank but sizable following (%d followers)", s.TwitterFollowers), []string{sourceCommunity}
	default:
		return 2, "Limited market presence and social reach", []string{sourceMarket, sourceCommunity}
	}
}

// ScoreActivity scores on the volume/market-cap turnover ratio. The
// market cap is floored at 1 to guard the division.
func ScoreActivity(s *models.MarketSnapshot) (int, string, []string) {
	mcap := s.MarketCap
	if mcap < 1 {
		mcap = 1
	}
	ratio := s.Volume24h / mcap
	switch {
	case ratio > 0.30:
		return 5, fmt.Sprintf("Very high turnover: 24h volume is %.0f%% of market cap", ratio*100), []string{sourceMarket}
	case ratio > 0.15:
		return 4, fmt.Sprintf("High turnover: 24h volume is %.0f%% of market cap", ratio*100), []string{sourceMarket}
	case ratio > 0.05:
		return 3, fmt.Sprintf("Moderate turnover: 24h volume is %.0f%% of market cap", ratio*100), []string{sourceMarket}
	default:
		return 2, "Low trading activity relative to market cap", []string{sourceMarket}
	}
}

// ScoreDecentralization is a fixed placeholder. Validator and miner
// distribution is not available from the market data feed, so every
// asset gets the same neutral assessment.
func ScoreDecentralization(_ *models.MarketSnapshot) (int, string, []string) {
	return 4, "Balanced decentralization", []string{sourceStatic}
}

// ScoreGovernance scores on developer activity, with the community
// subscriber base as a secondary signal.
func ScoreGovernance(s *models.MarketSnapshot) (int, string, []string) {
	stars := s.DeveloperStars
	switch {
	case stars > 10_000:
		return 5, fmt.Sprintf("Very active development (%d repo stars)", stars), []string{sourceDeveloper}
	case stars > 3_000:
		return 4, fmt.Sprintf("Active development (%d repo stars)", stars), []string{sourceDeveloper}
	case stars > 500 || s.RedditSubscribers > 50_000:
		return 3, "Growing developer and community engagement", []string{sourceDeveloper, sourceCommunity}
	default:
		return 2, "Limited visible development activity", []string{sourceDeveloper}
	}
}

// ScoreNarrative starts from the rank tier and boosts one level for an
// outsized social following.
func ScoreNarrative(s *models.MarketSnapshot) (int, string, []string) {
	rank := s.MarketCapRank
	score := 2
	reason := "Niche narrative with limited market positioning"
	switch {
	case rank > 0 && rank <= 10:
		score, reason = 5, fmt.Sprintf("Dominant narrative; rank #%d asset", rank)
	case rank > 0 && rank <= 30:
		score, reason = 4, fmt.Sprintf("Strong narrative; rank #%d asset", rank)
	case rank > 0 && rank <= 100:
		score, reason = 3, fmt.Sprintf("Recognized narrative; rank #%d asset", rank)
	}

	if s.TwitterFollowers > 500_000 && score < 5 {
		score++
		reason += fmt.Sprintf("; boosted by large following (%d)", s.TwitterFollowers)
	}
	return score, reason, []string{sourceMarket, sourceCommunity}
}

// ScoreUtility scores the supply model: a positive max supply reads as
// capped, anything else as uncapped.
func ScoreUtility(s *models.MarketSnapshot) (int, string, []string) {
	if s.MaxSupply != nil && *s.MaxSupply > 0 {
		pct := s.CirculatingSupply / *s.MaxSupply * 100
		return 4, fmt.Sprintf("Capped supply of %.0f with %.0f%% circulating", *s.MaxSupply, pct), []string{sourceMarket}
	}
	return 2, "Uncapped supply; inflationary pressure possible", []string{sourceMarket}
}
