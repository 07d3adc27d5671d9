package sentifolio

// Position is an open holding of a symbol.
//
// CostBasis is the volume weighted average price paid per share across all
// buys since the position was opened. Sells never change it.
type Position struct {
	Symbol    string
	Shares    Quantity
	CostBasis Money
}

// TotalCost returns shares x cost basis.
func (p Position) TotalCost() Money { return p.CostBasis.Mul(p.Shares) }

// MarketValue returns the value of the position at a given price.
func (p Position) MarketValue(price Money) Money { return price.Mul(p.Shares) }

// buy adds quantity to the position for a total cost and updates the
// weighted average cost basis.
func (p *Position) buy(quantity Quantity, cost Money) {
	shares := p.Shares.Add(quantity)
	p.CostBasis = p.TotalCost().Add(cost).Div(shares)
	p.Shares = shares
}
