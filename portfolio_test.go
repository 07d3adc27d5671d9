package sentifolio

import (
	"context"
	"errors"
	"math"
	"testing"
)

// failingRepo is a Repository whose writes always fail.
type failingRepo struct {
	MemoryRepository
	loadErr error
}

var errDiskFull = errors.New("disk full")

func (r *failingRepo) Load() (State, error)    { return r.State, r.loadErr }
func (r *failingRepo) Save(State) error        { return errDiskFull }
func (r *failingRepo) AppendTrade(Trade) error { return errDiskFull }

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		edit    func(*Config)
		wantErr bool
	}{
		{name: "default", edit: func(c *Config) {}},
		{name: "no cash", edit: func(c *Config) { c.InitialCash = 0 }},
		{name: "negative cash", edit: func(c *Config) { c.InitialCash = -1 }, wantErr: true},
		{name: "NaN cash", edit: func(c *Config) { c.InitialCash = math.NaN() }, wantErr: true},
		{name: "infinite cash", edit: func(c *Config) { c.InitialCash = math.Inf(1) }, wantErr: true},
		{name: "negative infinite cash", edit: func(c *Config) { c.InitialCash = math.Inf(-1) }, wantErr: true},
		{name: "NaN risk", edit: func(c *Config) { c.DefaultRiskLevel = math.NaN() }, wantErr: true},
		{name: "infinite risk", edit: func(c *Config) { c.DefaultRiskLevel = math.Inf(1) }, wantErr: true},
		{name: "NaN alpha", edit: func(c *Config) { c.EMAAlpha = math.NaN() }, wantErr: true},
		{name: "risk above one", edit: func(c *Config) { c.DefaultRiskLevel = 1.1 }, wantErr: true},
		{name: "negative risk", edit: func(c *Config) { c.DefaultRiskLevel = -0.1 }, wantErr: true},
		{name: "zero alpha", edit: func(c *Config) { c.EMAAlpha = 0 }, wantErr: true},
		{name: "alpha one", edit: func(c *Config) { c.EMAAlpha = 1 }},
		{name: "alpha above one", edit: func(c *Config) { c.EMAAlpha = 1.5 }, wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.edit(&cfg)
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
			if _, err := New(cfg, nil); (err != nil) != tc.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestOpen_ReconcilesCashWithoutAccount(t *testing.T) {
	repo := &MemoryRepository{State: State{
		Positions: []Position{
			{Symbol: "AAPL", Shares: Q(10), CostBasis: USD(150)},
			{Symbol: "MSFT", Shares: Q(5), CostBasis: USD(300)},
		},
	}}
	p, err := Open(DefaultConfig(), repo, MockPrices{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	// 100000 - 10*150 - 5*300
	if want := USD(97000); !p.Cash().Equal(want) {
		t.Errorf("Cash = %v, want %v", p.Cash(), want)
	}
	pos, ok := p.Ledger().Position("AAPL")
	if !ok || !pos.Shares.Equal(Q(10)) || !pos.CostBasis.Equal(USD(150)) {
		t.Errorf("Position(AAPL) = %v, %v; want 10 shares at $150.00", pos, ok)
	}
}

func TestOpen_IgnoresInvalidPositions(t *testing.T) {
	repo := &MemoryRepository{State: State{
		Positions: []Position{
			{Symbol: "AAPL", Shares: Q(10), CostBasis: USD(150)},
			{Symbol: "AAPL", Shares: Q(5), CostBasis: USD(150)},
			{Symbol: "MSFT", Shares: Q(5), CostBasis: USD(-300)},
		},
	}}
	p, err := Open(DefaultConfig(), repo, MockPrices{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	// only the first AAPL row is reconciled.
	if want := USD(98500); !p.Cash().Equal(want) {
		t.Errorf("Cash = %v, want %v", p.Cash(), want)
	}
	if pos, ok := p.Ledger().Position("AAPL"); !ok || !pos.Shares.Equal(Q(10)) {
		t.Errorf("Position(AAPL) = %+v, %v, want 10 shares", pos, ok)
	}
	if _, ok := p.Ledger().Position("MSFT"); ok {
		t.Error("a position with a negative cost basis must be ignored")
	}
}

func TestOpen_TrustsAccount(t *testing.T) {
	repo := &MemoryRepository{State: State{
		Account: &Account{Cash: USD(1234.5), RiskLevel: 0.4, SentimentEMA: -0.2},
		Positions: []Position{
			{Symbol: "AAPL", Shares: Q(10), CostBasis: USD(150)},
			{Symbol: "DEAD", Shares: Q(0), CostBasis: USD(1)},
		},
		Trades: []Trade{{Order: NewOrder("AAPL", Buy, Q(10)), Price: USD(150)}},
	}}
	p, err := Open(DefaultConfig(), repo, MockPrices{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if want := USD(1234.5); !p.Cash().Equal(want) {
		t.Errorf("Cash = %v, want %v", p.Cash(), want)
	}
	if got := p.Risk(); got.RiskLevel != 0.4 || got.SentimentEMA != -0.2 || got.Alpha != 0.2 {
		t.Errorf("Risk() = %+v, want level 0.4, ema -0.2, alpha 0.2", got)
	}
	if _, ok := p.Ledger().Position("DEAD"); ok {
		t.Errorf("a position without shares was loaded")
	}
	if got := p.Ledger().TradesCount(); got != 1 {
		t.Errorf("TradesCount() = %d, want 1", got)
	}
}

func TestOpen_UnreadableStateUsesDefaults(t *testing.T) {
	repo := &failingRepo{loadErr: errors.New("format error in \"account.json\"")}
	p, err := Open(DefaultConfig(), repo, MockPrices{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if want := USD(100000); !p.Cash().Equal(want) {
		t.Errorf("Cash = %v, want %v", p.Cash(), want)
	}
	if got := p.Risk().RiskLevel; got != DefaultRiskLevel {
		t.Errorf("RiskLevel = %v, want %v", got, DefaultRiskLevel)
	}
}

func TestPortfolio_Observer(t *testing.T) {
	p, repo := newTestPortfolio(t, 10000, 1, fixedPrices{"AAPL": 100})
	rec := &recorder{}
	p.Observer = rec
	ctx := context.Background()

	if _, err := p.ApplyOrder(ctx, NewOrder("AAPL", Buy, Q(10)), 0.5); err != nil {
		t.Fatalf("ApplyOrder() error = %v", err)
	}
	// no-ops are not reported.
	if _, err := p.ApplyOrder(ctx, NewOrder("AAPL", Buy, Q(1000)), 0.5); err != nil {
		t.Fatalf("ApplyOrder() error = %v", err)
	}
	if _, err := p.ApplyOrder(ctx, HoldOrder("AAPL"), 0.5); err != nil {
		t.Fatalf("ApplyOrder() error = %v", err)
	}
	p.UpdateRisk(0.5)

	if len(rec.trades) != 1 {
		t.Fatalf("got %d trade events, want 1", len(rec.trades))
	}
	if got := rec.trades[0]; got.Sentiment != 0.5 || !got.Value().Equal(USD(1000)) {
		t.Errorf("trade event = %+v, want sentiment 0.5 and value $1,000.00", got)
	}
	if len(rec.risks) != 1 || !almostEqual(rec.risks[0].SentimentEMA, 0.1) {
		t.Errorf("risk events = %+v, want one with ema 0.1", rec.risks)
	}
	if len(rec.errs) != 0 {
		t.Errorf("persist errors = %v, want none", rec.errs)
	}

	if len(repo.State.Trades) != 1 {
		t.Errorf("persisted %d trades, want 1", len(repo.State.Trades))
	}
	if acc := repo.State.Account; acc == nil || !acc.Cash.Equal(USD(9000)) {
		t.Errorf("persisted account = %+v, want cash $9,000.00", acc)
	}
}

func TestPortfolio_PersistFailureKeepsState(t *testing.T) {
	p, err := Open(DefaultConfig(), &failingRepo{}, fixedPrices{"AAPL": 100})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	rec := &recorder{}
	p.Observer = rec

	trade, err := p.ApplyOrder(context.Background(), NewOrder("AAPL", Buy, Q(10)), 0)
	if err != nil {
		t.Fatalf("ApplyOrder() error = %v, persistence failures must not fail the trade", err)
	}
	if trade == nil {
		t.Fatalf("ApplyOrder() = nil, want a trade")
	}
	if want := USD(99000); !p.Cash().Equal(want) {
		t.Errorf("Cash = %v, want %v", p.Cash(), want)
	}
	// one for the activity log, one for the state.
	if len(rec.errs) != 2 {
		t.Fatalf("got %d persist errors, want 2: %v", len(rec.errs), rec.errs)
	}
	for _, err := range rec.errs {
		if !errors.Is(err, errDiskFull) {
			t.Errorf("persist error %v does not wrap %v", err, errDiskFull)
		}
	}
}

func TestPortfolio_ApplyOrderAtRejectsPrice(t *testing.T) {
	p, _ := newTestPortfolio(t, 1000, 1, nil)
	for _, price := range []float64{0, -1} {
		_, err := p.ApplyOrderAt(NewOrder("AAPL", Buy, Q(1)), 0, USD(price))
		if !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("ApplyOrderAt(price=%v) error = %v, want %v", price, err, ErrInvalidOrder)
		}
	}
}

func TestPortfolio_NoPriceForNoOp(t *testing.T) {
	// fixedPrices fails for unknown symbols: a no-op must not ask for a price.
	p, _ := newTestPortfolio(t, 1000, 1, fixedPrices{})
	ctx := context.Background()
	for _, order := range []Order{HoldOrder("AAPL"), NewOrder("AAPL", Sell, Q(3))} {
		trade, err := p.ApplyOrder(ctx, order, 0)
		if err != nil || trade != nil {
			t.Errorf("ApplyOrder(%v) = %v, %v; want nil, nil", order, trade, err)
		}
	}
}

func TestPortfolio_Snapshot(t *testing.T) {
	p, _ := newTestPortfolio(t, 10000, 1, fixedPrices{"AAPL": 100, "MSFT": 200})
	mustApply(t, p, NewOrder("AAPL", Buy, Q(10)), 90)
	mustApply(t, p, NewOrder("MSFT", Buy, Q(5)), 200)
	p.UpdateRisk(-1)

	snap, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if want := USD(8100); !snap.Cash.Equal(want) {
		t.Errorf("Cash = %v, want %v", snap.Cash, want)
	}
	// 8100 + 10*100 + 5*200
	if want := USD(10100); !snap.TotalValue.Equal(want) {
		t.Errorf("TotalValue = %v, want %v", snap.TotalValue, want)
	}
	if len(snap.Positions) != 2 || !snap.Positions["AAPL"].Equal(Q(10)) || !snap.Positions["MSFT"].Equal(Q(5)) {
		t.Errorf("Positions = %v, want AAPL:10 MSFT:5", snap.Positions)
	}
	if snap.TradesCount != 2 {
		t.Errorf("TradesCount = %d, want 2", snap.TradesCount)
	}
	if !almostEqual(snap.SentimentEMA, -0.2) || !almostEqual(snap.RiskLevel, 0.4) {
		t.Errorf("risk = %v/%v, want ema -0.2 and risk 0.4", snap.SentimentEMA, snap.RiskLevel)
	}

	// snapshots are copies.
	snap.Positions["AAPL"] = Q(0)
	if pos, _ := p.Ledger().Position("AAPL"); !pos.Shares.Equal(Q(10)) {
		t.Errorf("Snapshot() aliases the ledger")
	}
}
