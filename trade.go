package sentifolio

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Action is a typed string for the kind of order.
type Action string

const (
	Buy  Action = "buy"
	Sell Action = "sell"
	Hold Action = "hold"
)

// ParseAction parses a string into an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case Buy, Sell, Hold:
		return a, nil
	default:
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidOrder, s)
	}
}

// ErrInvalidOrder is returned for malformed orders: unknown action, negative
// quantity, non positive manual price. Business conditions like an
// unaffordable buy are not errors.
var ErrInvalidOrder = errors.New("invalid order")

// Order is an instruction to buy, sell or hold a quantity of a symbol.
//
// Orders produced by DraftOrder are proposals, nothing happens until they are
// applied.
type Order struct {
	Symbol   string   `json:"symbol"`
	Action   Action   `json:"action"`
	Quantity Quantity `json:"quantity"`
}

// NewOrder creates an order.
func NewOrder(symbol string, action Action, quantity Quantity) Order {
	return Order{Symbol: symbol, Action: action, Quantity: quantity}
}

// HoldOrder returns the neutral order for symbol.
func HoldOrder(symbol string) Order { return Order{Symbol: symbol, Action: Hold} }

func (o Order) String() string {
	if o.Action == Hold {
		return fmt.Sprintf("hold %s", o.Symbol)
	}
	return fmt.Sprintf("%s %s %s", o.Action, o.Quantity, o.Symbol)
}

// MarshalJSON implements the json.Marshaler interface for Order.
func (o Order) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("symbol", o.Symbol)
	w.Append("action", o.Action)
	w.Append("quantity", o.Quantity)
	return w.MarshalJSON()
}

// Trade is an executed order. Trades are immutable once recorded.
type Trade struct {
	Order
	Price     Money     // Price is the execution price per share.
	Timestamp time.Time // Timestamp is when the order was applied.
	Sentiment float64   // Sentiment is the score that motivated the trade, in [-1,1].
}

// Value returns the cash amount exchanged by this trade.
func (t Trade) Value() Money { return t.Price.Mul(t.Quantity) }

// MarshalJSON implements the json.Marshaler interface for Trade.
func (t Trade) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.EmbedFrom(t.Order)
	w.Append("price", t.Price)
	w.Append("timestamp", t.Timestamp.Format(time.RFC3339Nano))
	w.Append("sentiment", t.Sentiment)
	w.Append("value", t.Value())
	return w.MarshalJSON()
}

// UnmarshalJSON implements the json.Unmarshaler interface for Trade.
func (t *Trade) UnmarshalJSON(data []byte) error {
	var temp struct {
		Symbol    string   `json:"symbol"`
		Action    Action   `json:"action"`
		Quantity  Quantity `json:"quantity"`
		Price     Money    `json:"price"`
		Timestamp string   `json:"timestamp"`
		Sentiment float64  `json:"sentiment"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	ts, err := parseTimestamp(temp.Timestamp)
	if err != nil {
		return err
	}
	*t = Trade{
		Order:     NewOrder(temp.Symbol, temp.Action, temp.Quantity),
		Price:     temp.Price,
		Timestamp: ts,
		Sentiment: temp.Sentiment,
	}
	return nil
}

// parseTimestamp accepts RFC3339 and the offset-less ISO format of older
// activity logs.
func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	ts, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return ts, nil
}
