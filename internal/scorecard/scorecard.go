package scorecard

import (
	"fmt"
	"strings"
	"time"

	"github.com/blocksignal/blocksignal/internal/models"
)

// Categories 固定的六个评分维度, 报告按此顺序渲染
var Categories = []string{
	"Adoption & Partnerships",
	"On-Chain Activity",
	"Validator / Miner Decentralization",
	"Governance & Transparency",
	"Narrative & Market Positioning",
	"Token Utility & Economics",
}

const maxCategoryScore = 5

// ScoreDetail holds one category's score together with the reasoning
// behind it.
type ScoreDetail struct {
	Score       int       `json:"score"`
	Reasoning   string    `json:"reasoning"`
	Sources     []string  `json:"sources"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// NewScoreDetail validates the score range before constructing the detail.
func NewScoreDetail(score int, reasoning string, sources []string) (ScoreDetail, error) {
	if score < 0 || score > maxCategoryScore {
		return ScoreDetail{}, fmt.Errorf("score %d out of range [0,%d]", score, maxCategoryScore)
	}
	if sources == nil {
		sources = []string{}
	}
	return ScoreDetail{
		Score:       score,
		Reasoning:   reasoning,
		Sources:     sources,
		EvaluatedAt: time.Now(),
	}, nil
}

// Scorecard aggregates per-category scores for one ticker.
type Scorecard struct {
	Ticker      string                 `json:"ticker"`
	GeneratedAt time.Time              `json:"generated_at"`
	Scores      map[string]ScoreDetail `json:"scores"`
}

func New(ticker string) *Scorecard {
	return &Scorecard{
		Ticker:      strings.ToUpper(ticker),
		GeneratedAt: time.Now(),
		Scores:      make(map[string]ScoreDetail),
	}
}

// AddScore records a score for one of the fixed categories. Unknown
// category names are ignored; a repeated category overwrites the
// previous entry.
func (s *Scorecard) AddScore(category string, score int, reasoning string, sources []string) error {
	if !isKnownCategory(category) {
		return nil
	}
	detail, err := NewScoreDetail(score, reasoning, sources)
	if err != nil {
		return err
	}
	s.Scores[category] = detail
	return nil
}

func isKnownCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// TotalScore sums the recorded categories; categories without a score
// contribute 0.
func (s *Scorecard) TotalScore() int {
	total := 0
	for _, d := range s.Scores {
		total += d.Score
	}
	return total
}

func (s *Scorecard) MaxPossibleScore() int {
	return len(Categories) * maxCategoryScore
}

// Interpretation bands the total/max ratio into a verdict.
func (s *Scorecard) Interpretation() string {
	ratio := float64(s.TotalScore()) / float64(s.MaxPossibleScore())
	switch {
	case ratio >= 0.83:
		return "Serious long-term player"
	case ratio >= 0.5:
		return "Promising but risky"
	default:
		return "Probably hype / weak fundamentals"
	}
}

func scoreTag(score int) string {
	switch {
	case score == maxCategoryScore:
		return "Excellent"
	case score >= 4:
		return "Good"
	default:
		return "Fair"
	}
}

func humanUSD(v float64) string {
	if v >= 1_000_000_000 {
		return fmt.Sprintf("$%.2fB", v/1_000_000_000)
	}
	return fmt.Sprintf("$%.2fM", v/1_000_000)
}

func direction(change float64) string {
	switch {
	case change > 0:
		return "Up"
	case change < 0:
		return "Down"
	default:
		return "Flat"
	}
}

// Report renders the full scorecard as chat-ready text. Category order
// follows the fixed Categories list so identical inputs always render
// identically.
func (s *Scorecard) Report(snapshot *models.MarketSnapshot) string {
	var lines []string

	name := s.Ticker
	if snapshot != nil && snapshot.Name != "" {
		name = snapshot.Name
	}
	lines = append(lines, fmt.Sprintf("*%s (%s) Scorecard*", name, s.Ticker))

	if snapshot != nil {
		lines = append(lines, fmt.Sprintf("Price: $%.2f %s %+.2f%% (24h)",
			snapshot.CurrentPrice, direction(snapshot.PriceChange24h), snapshot.PriceChange24h))
		if snapshot.MarketCap > 0 || snapshot.Volume24h > 0 {
			lines = append(lines, fmt.Sprintf("Market Cap: %s | 24h Volume: %s",
				humanUSD(snapshot.MarketCap), humanUSD(snapshot.Volume24h)))
		}
	}
	lines = append(lines, "")

	for _, cat := range Categories {
		d, ok := s.Scores[cat]
		if !ok {
			continue
		}
		lines = append(lines,
			fmt.Sprintf("**%s**", cat),
			fmt.Sprintf("Score: %d/5 %s", d.Score, scoreTag(d.Score)),
			fmt.Sprintf("_%s_", d.Reasoning),
			"")
	}

	total := s.TotalScore()
	max := s.MaxPossibleScore()
	lines = append(lines,
		"---",
		fmt.Sprintf("**Total**: %d/%d (%.1f%%)", total, max, 100*float64(total)/float64(max)),
		fmt.Sprintf("**Verdict**: %s", s.Interpretation()))

	return strings.Join(lines, "\n")
}
