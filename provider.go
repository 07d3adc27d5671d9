package sentifolio

import (
	"context"
	"hash/fnv"
)

// PriceProvider returns the current price of a symbol.
//
// Implementations must never return a price <= 0 without an error.
type PriceProvider interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// Quote holds the latest price of a symbol and its change since the previous close.
type Quote struct {
	Symbol        string
	Price         float64
	Change        float64 // Change is the absolute change since previous close.
	PercentChange float64 // PercentChange is Change relative to the previous close, in percent.
}

// Quoter is implemented by providers able to report the daily change, for display only.
type Quoter interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
}

// MockPrices is a deterministic price provider: every symbol gets a stable
// price in [100, 150) derived from its name. It makes the system usable
// without market data and tests reproducible.
type MockPrices struct{}

// Price implements PriceProvider.
func (MockPrices) Price(_ context.Context, symbol string) (float64, error) {
	return mockPrice(symbol), nil
}

// Quote implements Quoter. Mock prices never move.
func (MockPrices) Quote(_ context.Context, symbol string) (Quote, error) {
	return Quote{Symbol: symbol, Price: mockPrice(symbol)}, nil
}

func mockPrice(symbol string) float64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return 100 + float64(h.Sum32()%50)
}
