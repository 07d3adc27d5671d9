package renderer

import (
	"context"
	"fmt"

	"github.com/etnz/sentifolio"
	"github.com/etnz/sentifolio/sentiment"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// PositionLine is an open position valued at a market price.
type PositionLine struct {
	sentifolio.Position
	Price sentifolio.Money
}

// Value returns the market value of the position.
func (p PositionLine) Value() sentifolio.Money { return p.MarketValue(p.Price) }

// Gain returns the unrealized gain of the position.
func (p PositionLine) Gain() sentifolio.Money { return p.Value().Sub(p.TotalCost()) }

// Status is the view of a portfolio at a point in time.
type Status struct {
	Snapshot  sentifolio.Snapshot
	Positions []PositionLine
}

// NewStatus values every position of p at its current price.
func NewStatus(ctx context.Context, p *sentifolio.Portfolio) (*Status, error) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	s := &Status{Snapshot: snap}
	for pos := range p.Ledger().Positions() {
		price, err := p.Price(ctx, pos.Symbol)
		if err != nil {
			return nil, err
		}
		s.Positions = append(s.Positions, PositionLine{Position: pos, Price: price})
	}
	return s, nil
}

// PositionsTable renders the positions as a markdown table.
func (s *Status) PositionsTable() string {
	t := newTable(2, 3, 4, 5, 6)
	t.AppendHeader(table.Row{"Symbol", "Shares", "Cost Basis", "Price", "Value", "Gain"})
	for _, p := range s.Positions {
		t.AppendRow(table.Row{p.Symbol, p.Shares, p.CostBasis, p.Price, p.Value(), p.Gain().SignedString()})
	}
	return t.RenderMarkdown()
}

// Execution is a drafted order and its outcome.
type Execution struct {
	Order sentifolio.Order
	Price sentifolio.Money
	Trade *sentifolio.Trade // Trade is nil when the order was a no-op.
}

// Draft is the analysis of a text and the order it leads to.
type Draft struct {
	Symbol string
	Result sentiment.Result
	Order  sentifolio.Order
	Price  sentifolio.Money
	Risk   sentifolio.RiskState
}

// Label returns the zone of the score.
func (d *Draft) Label() string { return sentiment.Label(d.Result.Score) }

// Cost returns the cash needed or freed by the drafted order.
func (d *Draft) Cost() sentifolio.Money { return d.Price.Mul(d.Order.Quantity) }

// Round is one step of a simulation: a news text, its analysis, the risk
// update and the orders drafted for each watched symbol.
type Round struct {
	Number     int
	Text       string
	Result     sentiment.Result
	Risk       sentifolio.RiskState
	Executions []Execution
	Status     *Status
}

// Label returns the zone of the score.
func (r *Round) Label() string { return sentiment.Label(r.Result.Score) }

// ExecutionsTable renders the executions as a markdown table.
func (r *Round) ExecutionsTable() string {
	t := newTable(3, 4, 5)
	t.AppendHeader(table.Row{"Symbol", "Order", "Quantity", "Price", "Value", "Status"})
	for _, e := range r.Executions {
		status, value := "skipped", "-"
		if e.Trade != nil {
			status, value = "executed", e.Trade.Value().String()
		}
		t.AppendRow(table.Row{e.Order.Symbol, e.Order.Action, e.Order.Quantity, e.Price, value, status})
	}
	return t.RenderMarkdown()
}

type tradeList []sentifolio.Trade

func (l tradeList) Len() int { return len(l) }

func (l tradeList) Table() string {
	t := newTable(4, 5, 6, 7)
	t.AppendHeader(table.Row{"Time", "Symbol", "Action", "Quantity", "Price", "Sentiment", "Value"})
	for _, tr := range l {
		t.AppendRow(table.Row{
			tr.Timestamp.Format("2006-01-02 15:04:05"),
			tr.Symbol,
			tr.Action,
			tr.Quantity,
			tr.Price,
			fmt.Sprintf("%+.2f", tr.Sentiment),
			tr.Value(),
		})
	}
	return t.RenderMarkdown()
}

type quoteList []sentifolio.Quote

func (l quoteList) Table() string {
	t := newTable(2, 3, 4)
	t.AppendHeader(table.Row{"Symbol", "Price", "Change", "Change %"})
	for _, q := range l {
		t.AppendRow(table.Row{
			q.Symbol,
			fmt.Sprintf("%.2f", q.Price),
			fmt.Sprintf("%+.2f", q.Change),
			fmt.Sprintf("%+.2f%%", q.PercentChange),
		})
	}
	return t.RenderMarkdown()
}

// newTable returns a table writer whose given columns (1-based) are right aligned.
func newTable(rightAligned ...int) table.Writer {
	t := table.NewWriter()
	configs := make([]table.ColumnConfig, 0, len(rightAligned))
	for _, n := range rightAligned {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	t.SetColumnConfigs(configs)
	return t
}
