package sentifolio

import (
	"context"
	"math"
)

const (
	// BullishThreshold is the score above which a buy is drafted.
	BullishThreshold = 0.3
	// BearishThreshold is the score below which a held position is trimmed.
	BearishThreshold = -0.3
	// LiquidationThreshold is the score below which a held position is sold entirely.
	LiquidationThreshold = -0.7

	// NeutralRiskLevel is the risk level matching a zero sentiment average.
	NeutralRiskLevel = 0.5
)

// RiskState is the smoothed sentiment and the risk level derived from it.
type RiskState struct {
	SentimentEMA float64 // SentimentEMA is the exponential moving average of sentiment scores.
	RiskLevel    float64 // RiskLevel is the fraction of cash allowed on a single bullish signal, in [0,1].
	Alpha        float64 // Alpha is the weight of a new observation in the average, in (0,1].
}

// RiskEngine turns a stream of sentiment scores into a risk level.
//
// The risk level is a pure function of the moving average, except after
// SetLevel which overrides it until the next observation.
type RiskEngine struct {
	state RiskState
}

// NewRiskEngine creates an engine with a given smoothing factor, a current
// moving average and risk level.
func NewRiskEngine(alpha, ema, level float64) *RiskEngine {
	return &RiskEngine{state: RiskState{
		SentimentEMA: clampScore(ema),
		RiskLevel:    clamp(level, 0, 1),
		Alpha:        alpha,
	}}
}

// State returns the current risk state.
func (r *RiskEngine) State() RiskState { return r.state }

// Level returns the current risk level.
func (r *RiskEngine) Level() float64 { return r.state.RiskLevel }

// Update folds a new sentiment score into the moving average and recomputes
// the risk level. Scores are clamped to [-1,1].
func (r *RiskEngine) Update(score float64) RiskState {
	score = clampScore(score)
	a := r.state.Alpha
	r.state.SentimentEMA = a*score + (1-a)*r.state.SentimentEMA
	r.state.RiskLevel = riskLevel(r.state.SentimentEMA)
	return r.state
}

// SetLevel overrides the risk level, clamped to [0,1]. NaN is 0.
func (r *RiskEngine) SetLevel(level float64) RiskState {
	r.state.RiskLevel = clamp(level, 0, 1)
	return r.state
}

// riskLevel maps a sentiment average in [-1,1] to a risk level in [0,1], 0.5 being neutral.
func riskLevel(ema float64) float64 {
	return clamp(NeutralRiskLevel+ema/2, 0, 1)
}

// draftOrder sizes an order for symbol from a sentiment score, the ledger's
// cash and position, and a risk level. It never mutates the ledger.
func draftOrder(ctx context.Context, l *Ledger, level float64, symbol string, score float64) (Order, error) {
	score = clampScore(score)
	magnitude := math.Min(1, math.Abs(score))

	switch {
	case score > BullishThreshold:
		price, err := l.Price(ctx, symbol)
		if err != nil {
			return Order{}, err
		}
		cash := l.Cash()
		target := cash.Scale(level).Scale(magnitude).DivPrice(price)
		affordable := cash.DivPrice(price)
		quantity := target.Min(affordable).Round(2)
		if quantity.GreaterThan(affordable) {
			// rounding up must not spend more than the cash.
			quantity = target.Min(affordable).RoundDown(2)
		}
		if !quantity.IsPositive() {
			return HoldOrder(symbol), nil
		}
		return NewOrder(symbol, Buy, quantity), nil

	case score < BearishThreshold:
		pos, ok := l.Position(symbol)
		if !ok {
			return HoldOrder(symbol), nil
		}
		quantity := pos.Shares
		if score >= LiquidationThreshold {
			quantity = pos.Shares.Scale(magnitude)
		}
		return NewOrder(symbol, Sell, quantity), nil

	default:
		return HoldOrder(symbol), nil
	}
}

// clampScore bounds a sentiment score to [-1,1]. NaN is neutral.
func clampScore(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return clamp(score, -1, 1)
}

// clamp bounds v to [lo,hi]. NaN is lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
