package sentifolio

import (
	"context"
	"maps"
	"slices"
)

// Snapshot is a read-only summary of a portfolio at a point in time.
type Snapshot struct {
	Cash         Money
	Positions    map[string]Quantity // shares per symbol
	RiskLevel    float64
	SentimentEMA float64
	TotalValue   Money
	TradesCount  int
}

// Snapshot summarizes the portfolio. Positions are valued at current prices.
func (p *Portfolio) Snapshot(ctx context.Context) (Snapshot, error) {
	value, err := p.ledger.TotalValue(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	positions := make(map[string]Quantity)
	for pos := range p.ledger.Positions() {
		positions[pos.Symbol] = pos.Shares
	}
	risk := p.risk.State()
	return Snapshot{
		Cash:         p.ledger.Cash(),
		Positions:    positions,
		RiskLevel:    risk.RiskLevel,
		SentimentEMA: risk.SentimentEMA,
		TotalValue:   value,
		TradesCount:  p.ledger.TradesCount(),
	}, nil
}

// MarshalJSON writes the snapshot with positions sorted by symbol. Positions
// are omitted when there are none.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var positions jsonObjectWriter
	for _, symbol := range slices.Sorted(maps.Keys(s.Positions)) {
		positions.Append(symbol, s.Positions[symbol])
	}

	var w jsonObjectWriter
	w.Append("cash", s.Cash)
	w.Append("total_value", s.TotalValue)
	w.Append("risk_level", s.RiskLevel)
	w.Append("sentiment_ema", s.SentimentEMA)
	w.Append("trades", s.TradesCount)
	w.AppendIf(len(s.Positions) > 0, "positions", &positions)
	return w.MarshalJSON()
}
