package sentifolio

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"time"
)

// Ledger holds the cash account, the open positions and the history of
// executed trades.
//
// The ledger is mutated only by applying orders or by manual position
// updates. It never holds a position with zero or negative shares.
type Ledger struct {
	cash      Money
	positions map[string]*Position // index positions by symbol
	trades    []Trade              // in execution order
	prices    PriceProvider
	now       func() time.Time
}

// NewLedger creates a ledger with some cash and no positions.
func NewLedger(cash Money, prices PriceProvider) *Ledger {
	if prices == nil {
		prices = MockPrices{}
	}
	return &Ledger{
		cash:      cash,
		positions: make(map[string]*Position),
		trades:    make([]Trade, 0),
		prices:    prices,
		now:       time.Now,
	}
}

// Cash returns the unallocated cash.
func (l *Ledger) Cash() Money { return l.cash }

// Position returns the open position for symbol, if any.
func (l *Ledger) Position(symbol string) (Position, bool) {
	pos, ok := l.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions iterates over open positions in symbol order.
func (l *Ledger) Positions() iter.Seq[Position] {
	return func(yield func(Position) bool) {
		symbols := slices.Collect(maps.Keys(l.positions))
		slices.Sort(symbols)
		for _, symbol := range symbols {
			if !yield(*l.positions[symbol]) {
				return
			}
		}
	}
}

// Trades returns the most recent trades, oldest first. A limit <= 0 returns
// the whole history.
func (l *Ledger) Trades(limit int) []Trade {
	trades := l.trades
	if limit > 0 && len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}
	return slices.Clone(trades)
}

// TradesCount returns the number of executed trades.
func (l *Ledger) TradesCount() int { return len(l.trades) }

// Price returns the current price of symbol from the ledger's price provider.
func (l *Ledger) Price(ctx context.Context, symbol string) (Money, error) {
	p, err := l.prices.Price(ctx, symbol)
	if err != nil {
		return Money{}, fmt.Errorf("could not get price of %q: %w", symbol, err)
	}
	if p <= 0 {
		return Money{}, fmt.Errorf("price provider returned a non positive price for %q: %v", symbol, p)
	}
	return M(p, l.cash.Currency()), nil
}

// TotalValue returns cash plus the market value of all positions.
func (l *Ledger) TotalValue(ctx context.Context) (Money, error) {
	value := l.cash
	for pos := range l.Positions() {
		price, err := l.Price(ctx, pos.Symbol)
		if err != nil {
			return Money{}, err
		}
		value = value.Add(pos.MarketValue(price))
	}
	return value, nil
}

// apply executes a validated order at price. It returns the executed trade,
// or nil if the order was a no-op: hold, unaffordable buy, or sell without
// position.
func (l *Ledger) apply(order Order, sentiment float64, price Money) *Trade {
	switch order.Action {
	case Buy:
		cost := price.Mul(order.Quantity)
		if cost.GreaterThan(l.cash) {
			return nil
		}
		l.cash = l.cash.Sub(cost)
		pos, ok := l.positions[order.Symbol]
		if !ok {
			pos = &Position{Symbol: order.Symbol}
			l.positions[order.Symbol] = pos
		}
		pos.buy(order.Quantity, cost)

	case Sell:
		pos, ok := l.positions[order.Symbol]
		if !ok {
			return nil
		}
		// overselling is clamped to a full liquidation.
		order.Quantity = order.Quantity.Min(pos.Shares)
		l.cash = l.cash.Add(price.Mul(order.Quantity))
		pos.Shares = pos.Shares.Sub(order.Quantity)
		if !pos.Shares.IsPositive() {
			delete(l.positions, order.Symbol)
		}

	default:
		return nil
	}

	trade := Trade{
		Order:     order,
		Price:     price,
		Timestamp: l.now(),
		Sentiment: clampScore(sentiment),
	}
	l.trades = append(l.trades, trade)
	return &trade
}

// setPosition replaces the position for symbol, or removes it if quantity is
// not positive. The cash is rebalanced by the difference of total cost so
// that the edit is budget neutral.
func (l *Ledger) setPosition(symbol string, quantity Quantity, costBasis Money) {
	var oldCost Money
	if pos, ok := l.positions[symbol]; ok {
		oldCost = pos.TotalCost()
		delete(l.positions, symbol)
	}
	var newCost Money
	if quantity.IsPositive() {
		pos := &Position{Symbol: symbol, Shares: quantity, CostBasis: costBasis}
		l.positions[symbol] = pos
		newCost = pos.TotalCost()
	}
	l.cash = l.cash.Add(oldCost).Sub(newCost)
}
