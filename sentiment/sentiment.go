// Package sentiment turns free text (news, posts) into a score in [-1,1]
// usable by the risk engine, with a one sentence summary.
package sentiment

import (
	"context"
	"math"
	"strings"
)

// Result is the outcome of analyzing a text.
type Result struct {
	Score   float64 `json:"score"`   // Score is in [-1,1], negative is bearish.
	Summary string  `json:"summary"` // Summary is a single sentence.
}

// Analyzer scores a text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (Result, error)
}

// EmptyText replaces blank inputs so that analyzers always have material.
const EmptyText = "No content available. Market data could not be retrieved."

// Label names the zone of a score as used by the order drafting thresholds.
func Label(score float64) string {
	switch {
	case score > 0.3:
		return "bullish"
	case score < -0.3:
		return "bearish"
	default:
		return "neutral"
	}
}

// Heuristic is a keyword based Analyzer. It needs no network and never fails.
type Heuristic struct{}

var (
	positiveWords = []string{"good", "excellent", "bullish"}
	negativeWords = []string{"sell", "bad", "bearish"}
)

// Score returns the keyword score of text.
func (Heuristic) Score(text string) float64 {
	txt := strings.ToLower(text)
	score := 0.0
	if containsAny(txt, positiveWords) {
		score += 0.6
	}
	if strings.Contains(txt, "buy") {
		score += 0.3
	}
	if containsAny(txt, negativeWords) {
		score -= 0.6
	}
	return clamp(score)
}

// Analyze implements Analyzer.
func (h Heuristic) Analyze(_ context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		text = EmptyText
	}
	return Result{Score: h.Score(text), Summary: excerpt(text)}, nil
}

// Aggregate analyzes each text and returns the mean score, 0 for no text.
// Texts that cannot be analyzed are skipped.
func Aggregate(ctx context.Context, a Analyzer, texts []string) (float64, error) {
	var sum float64
	var n int
	for _, text := range texts {
		r, err := a.Analyze(ctx, text)
		if err != nil {
			if ctx.Err() != nil {
				return 0, ctx.Err()
			}
			continue
		}
		sum += r.Score
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// excerpt returns the first 100 characters of text on a single line.
func excerpt(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > 100 {
		return string(r[:100]) + "..."
	}
	return text
}

func clamp(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(-1, math.Min(1, score))
}
