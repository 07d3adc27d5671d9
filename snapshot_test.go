package sentifolio

import (
	"context"
	"testing"
)

func TestSnapshot_EmptyPortfolio(t *testing.T) {
	p, _ := newTestPortfolio(t, 5000, 1, fixedPrices{})

	snap, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if !snap.Cash.Equal(USD(5000)) || !snap.TotalValue.Equal(USD(5000)) {
		t.Errorf("Snapshot() = cash %v, total %v, want 5000 for both", snap.Cash, snap.TotalValue)
	}
	if len(snap.Positions) != 0 || snap.TradesCount != 0 {
		t.Errorf("Snapshot() = %d positions, %d trades, want none", len(snap.Positions), snap.TradesCount)
	}
	if snap.RiskLevel != 1 || snap.SentimentEMA != 0 {
		t.Errorf("Snapshot() risk = %v/%v, want 1/0", snap.RiskLevel, snap.SentimentEMA)
	}
}

func TestSnapshot_ValuesAtCurrentPrice(t *testing.T) {
	prices := fixedPrices{"AAPL": 100}
	p, _ := newTestPortfolio(t, 5000, 1, prices)
	mustApply(t, p, NewOrder("AAPL", Buy, Q(10)), 100)

	prices["AAPL"] = 130
	snap, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	// 4000 + 10*130
	if want := USD(5300); !snap.TotalValue.Equal(want) {
		t.Errorf("TotalValue = %v, want %v", snap.TotalValue, want)
	}
}

func TestSnapshot_PriceFailure(t *testing.T) {
	prices := fixedPrices{"AAPL": 100}
	p, _ := newTestPortfolio(t, 5000, 1, prices)
	mustApply(t, p, NewOrder("AAPL", Buy, Q(10)), 100)

	delete(prices, "AAPL")
	if _, err := p.Snapshot(context.Background()); err == nil {
		t.Error("Snapshot() must fail when a held position cannot be priced")
	}
}
