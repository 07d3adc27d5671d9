package sentifolio

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// fixedPrices is a PriceProvider with a price per symbol.
type fixedPrices map[string]float64

func (f fixedPrices) Price(_ context.Context, symbol string) (float64, error) {
	p, ok := f[symbol]
	if !ok {
		return 0, fmt.Errorf("no price for %q", symbol)
	}
	return p, nil
}

// recorder is an Observer keeping every event.
type recorder struct {
	trades []Trade
	risks  []RiskState
	errs   []error
}

func (r *recorder) TradeExecuted(t Trade)    { r.trades = append(r.trades, t) }
func (r *recorder) RiskUpdated(st RiskState) { r.risks = append(r.risks, st) }
func (r *recorder) PersistFailed(err error)  { r.errs = append(r.errs, err) }

// newTestPortfolio creates an in-memory portfolio with some cash, a risk
// level and fixed prices, or mock prices if nil. Trades are stamped with a fixed time.
func newTestPortfolio(t *testing.T, cash, risk float64, prices fixedPrices) (*Portfolio, *MemoryRepository) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.InitialCash = cash
	cfg.DefaultRiskLevel = risk
	var provider PriceProvider = MockPrices{}
	if prices != nil {
		provider = prices
	}
	repo := &MemoryRepository{}
	p, err := Open(cfg, repo, provider)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	p.ledger.now = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	return p, repo
}

func mustApply(t *testing.T, p *Portfolio, order Order, price float64) *Trade {
	t.Helper()
	trade, err := p.ApplyOrderAt(order, 0, USD(price))
	if err != nil {
		t.Fatalf("ApplyOrderAt(%v) error = %v", order, err)
	}
	return trade
}
