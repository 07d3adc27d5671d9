package sentifolio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, dir, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestFileRepository_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	p, err := Open(DefaultConfig(), NewFileRepository(dir, ""), fixedPrices{"AAPL": 100, "MSFT": 250})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := p.ApplyOrder(ctx, NewOrder("AAPL", Buy, Q(10)), 0.8); err != nil {
		t.Fatal(err)
	}
	if _, err := p.ApplyOrder(ctx, NewOrder("MSFT", Buy, Q(2.5)), 0.4); err != nil {
		t.Fatal(err)
	}
	if _, err := p.ApplyOrder(ctx, NewOrder("AAPL", Sell, Q(4)), -0.5); err != nil {
		t.Fatal(err)
	}
	p.UpdateRisk(0.6)

	q, err := Open(DefaultConfig(), NewFileRepository(dir, ""), fixedPrices{"AAPL": 100, "MSFT": 250})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if !q.Cash().Equal(p.Cash()) {
		t.Errorf("reloaded Cash = %v, want %v", q.Cash(), p.Cash())
	}
	if q.Risk() != p.Risk() {
		t.Errorf("reloaded Risk = %+v, want %+v", q.Risk(), p.Risk())
	}
	for pos := range p.Ledger().Positions() {
		got, ok := q.Ledger().Position(pos.Symbol)
		if !ok || !got.Shares.Equal(pos.Shares) || !got.CostBasis.Equal(pos.CostBasis) {
			t.Errorf("reloaded Position(%s) = %v, %v; want %v", pos.Symbol, got, ok, pos)
		}
	}
	want, got := p.Trades(0), q.Trades(0)
	if len(got) != len(want) {
		t.Fatalf("reloaded %d trades, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Symbol != want[i].Symbol || got[i].Action != want[i].Action ||
			!got[i].Quantity.Equal(want[i].Quantity) || !got[i].Price.Equal(want[i].Price) ||
			got[i].Sentiment != want[i].Sentiment || !got[i].Timestamp.Equal(want[i].Timestamp.Truncate(time.Second)) {
			t.Errorf("trade %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	// the activity log has a single header.
	log := readFile(t, dir, ActivityFilename)
	if n := strings.Count(log, "symbol,action"); n != 1 {
		t.Errorf("activity log has %d headers, want 1:\n%s", n, log)
	}
	if n := strings.Count(log, "\n"); n != 4 {
		t.Errorf("activity log has %d lines, want 4:\n%s", n, log)
	}
}

func TestFileRepository_Files(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository(dir, "")
	st := State{
		Account: &Account{Cash: USD(1500.25), RiskLevel: 0.7, SentimentEMA: 0.4},
		Positions: []Position{
			{Symbol: "AAPL", Shares: Q(10), CostBasis: USD(150.5)},
		},
	}
	if err := repo.Save(st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := repo.AppendTrade(Trade{
		Order:     NewOrder("AAPL", Buy, Q(10)),
		Price:     USD(150.5),
		Timestamp: time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC),
		Sentiment: 0.9,
	}); err != nil {
		t.Fatalf("AppendTrade() error = %v", err)
	}

	if got, want := readFile(t, dir, AccountFilename), `{"cash":1500.25,"risk_level":0.7,"sentiment_ema":0.4}`; got != want {
		t.Errorf("%s = %s, want %s", AccountFilename, got, want)
	}
	wantHoldings := "Symbol,Shares,CostBasis,TotalCost\nAAPL,10,150.5,1505\n"
	if got := readFile(t, dir, HoldingsFilename); got != wantHoldings {
		t.Errorf("%s =\n%s\nwant\n%s", HoldingsFilename, got, wantHoldings)
	}
	wantActivity := "symbol,action,quantity,price,timestamp,sentiment,value\nAAPL,buy,10,150.5,2025-03-14T10:00:00Z,0.9,1505\n"
	if got := readFile(t, dir, ActivityFilename); got != wantActivity {
		t.Errorf("%s =\n%s\nwant\n%s", ActivityFilename, got, wantActivity)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("data directory has %d entries, want 3 (no temporary file left)", len(entries))
	}
}

func TestFileRepository_MissingFiles(t *testing.T) {
	st, err := NewFileRepository(filepath.Join(t.TempDir(), "none"), "").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.Account != nil || len(st.Positions) != 0 || len(st.Trades) != 0 {
		t.Errorf("Load() = %+v, want an empty state", st)
	}
}

func TestFileRepository_MalformedFiles(t *testing.T) {
	testCases := []struct {
		name     string
		file     string
		content  string
		wantCash Money
	}{
		{name: "account not json", file: AccountFilename, content: "{cash", wantCash: USD(100000)},
		{name: "account without cash", file: AccountFilename, content: `{"risk_level":0.2}`, wantCash: USD(100000)},
		{name: "holdings missing column", file: HoldingsFilename, content: "Symbol,Shares\nAAPL,1\n", wantCash: USD(100000)},
		{name: "holdings bad number", file: HoldingsFilename, content: "Symbol,Shares,CostBasis\nAAPL,ten,1\n", wantCash: USD(100000)},
		{name: "holdings negative cost basis", file: HoldingsFilename, content: "Symbol,Shares,CostBasis\nAAPL,10,-5\n", wantCash: USD(100000)},
		{name: "holdings duplicate symbol", file: HoldingsFilename, content: "Symbol,Shares,CostBasis\nAAPL,10,100\nAAPL,5,100\n", wantCash: USD(100000)},
		{name: "holdings without symbol", file: HoldingsFilename, content: "Symbol,Shares,CostBasis\n,10,100\n", wantCash: USD(100000)},
		{name: "activity bad action", file: ActivityFilename, content: "symbol,action,quantity,price,timestamp,sentiment\nAAPL,short,1,1,2025-03-14T10:00:00Z,0\n", wantCash: USD(100000)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, tc.file, tc.content)

			repo := NewFileRepository(dir, "")
			if _, err := repo.Load(); err == nil || !strings.Contains(err.Error(), tc.file) {
				t.Errorf("Load() error = %v, want a format error in %s", err, tc.file)
			}

			p, err := Open(DefaultConfig(), repo, MockPrices{})
			if err != nil {
				t.Fatalf("Open() error = %v, unreadable files must not prevent opening", err)
			}
			if !p.Cash().Equal(tc.wantCash) {
				t.Errorf("Cash = %v, want %v", p.Cash(), tc.wantCash)
			}
			if p.Ledger().TradesCount() != 0 {
				t.Errorf("TradesCount() = %d, want 0", p.Ledger().TradesCount())
			}
		})
	}
}

func TestFileRepository_LegacyFiles(t *testing.T) {
	dir := t.TempDir()
	// an account record without risk data, and an activity log with naive timestamps.
	writeFile(t, dir, AccountFilename, `{"cash": 5000}`)
	writeFile(t, dir, HoldingsFilename, "Symbol,Shares,CostBasis,TotalCost\nAAPL,2,100,200\n")
	writeFile(t, dir, ActivityFilename, "symbol,action,quantity,price,timestamp,sentiment,value\nAAPL,buy,2,100,2025-03-14T10:00:00.123456,0.5,200\n")

	p, err := Open(DefaultConfig(), NewFileRepository(dir, ""), MockPrices{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if want := USD(5000); !p.Cash().Equal(want) {
		t.Errorf("Cash = %v, want %v", p.Cash(), want)
	}
	if got := p.Risk(); got.RiskLevel != DefaultRiskLevel || got.SentimentEMA != 0 {
		t.Errorf("Risk() = %+v, want the default risk level and a zero average", got)
	}
	trades := p.Trades(0)
	if len(trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(trades))
	}
	if want := time.Date(2025, 3, 14, 10, 0, 0, 123456000, time.Local); !trades[0].Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", trades[0].Timestamp, want)
	}
}

func TestFileRepository_SubSecondTimestamps(t *testing.T) {
	dir := t.TempDir()
	repo := NewFileRepository(dir, "")
	first := time.Date(2025, 3, 14, 10, 0, 0, 123456000, time.UTC)
	for _, ts := range []time.Time{first, first.Add(250 * time.Millisecond)} {
		trade := Trade{Order: NewOrder("AAPL", Buy, Q(1)), Price: USD(100), Timestamp: ts}
		if err := repo.AppendTrade(trade); err != nil {
			t.Fatalf("AppendTrade() error = %v", err)
		}
	}

	st, err := repo.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(st.Trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(st.Trades))
	}
	if !st.Trades[0].Timestamp.Equal(first) {
		t.Errorf("Timestamp = %v, want %v", st.Trades[0].Timestamp, first)
	}
	if !st.Trades[0].Timestamp.Before(st.Trades[1].Timestamp) {
		t.Errorf("trades of the same second must keep their order: %v, %v", st.Trades[0].Timestamp, st.Trades[1].Timestamp)
	}
}

func TestFileRepository_HoldingsWithoutAccount(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, HoldingsFilename, "Symbol,Shares,CostBasis\nAAPL,10,150\n")

	p, err := Open(DefaultConfig(), NewFileRepository(dir, ""), MockPrices{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if want := USD(98500); !p.Cash().Equal(want) {
		t.Errorf("Cash = %v, want %v", p.Cash(), want)
	}

	// the reconciliation happens once: the account record is written on the next save.
	p.UpdateRisk(0)
	q, err := Open(DefaultConfig(), NewFileRepository(dir, ""), MockPrices{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if want := USD(98500); !q.Cash().Equal(want) {
		t.Errorf("reopened Cash = %v, want %v", q.Cash(), want)
	}
}
