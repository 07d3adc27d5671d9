package sentifolio

import (
	"context"
	"fmt"
	"log"
	"math"
	"slices"
)

// Config holds the settings of a new portfolio.
type Config struct {
	InitialCash      float64 // InitialCash is the cash of a portfolio without an account record.
	Currency         string  // Currency of the cash account.
	DefaultRiskLevel float64 // DefaultRiskLevel is the risk level before any sentiment observation.
	EMAAlpha         float64 // EMAAlpha is the smoothing factor of the sentiment average.
}

// DefaultConfig returns the configuration used when nothing else is specified.
//
// The default risk level is fully aggressive (1.0) as it always was, even
// though a neutral sentiment maps to 0.5.
func DefaultConfig() Config {
	return Config{
		InitialCash:      100000,
		Currency:         DefaultCurrency,
		DefaultRiskLevel: DefaultRiskLevel,
		EMAAlpha:         0.2,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if !(c.InitialCash >= 0) || math.IsInf(c.InitialCash, 1) {
		return fmt.Errorf("initial cash must be a finite non negative amount, got %v", c.InitialCash)
	}
	if !(c.DefaultRiskLevel >= 0 && c.DefaultRiskLevel <= 1) {
		return fmt.Errorf("default risk level must be in [0,1], got %v", c.DefaultRiskLevel)
	}
	if !(c.EMAAlpha > 0 && c.EMAAlpha <= 1) {
		return fmt.Errorf("EMA alpha must be in (0,1], got %v", c.EMAAlpha)
	}
	return nil
}

// Observer is notified of portfolio events. It is typically a metrics recorder.
type Observer interface {
	TradeExecuted(Trade)
	RiskUpdated(RiskState)
	PersistFailed(error)
}

// Portfolio is the aggregate of a Ledger and a RiskEngine. It is the only
// mutator of both, and saves its state to a Repository after each change.
//
// A Portfolio is meant for a single session: it is not safe for concurrent use.
type Portfolio struct {
	ledger *Ledger
	risk   *RiskEngine
	repo   Repository

	// Observer, if not nil, is notified of trades, risk updates and persistence failures.
	Observer Observer
}

// Open loads a portfolio from repo. Unreadable persisted state is logged and
// replaced by defaults, so only an invalid configuration is an error.
func Open(cfg Config, repo Repository, prices PriceProvider) (*Portfolio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultCurrency
	}
	if repo == nil {
		repo = &MemoryRepository{}
	}

	st, err := repo.Load()
	if err != nil {
		log.Printf("load-state err (using defaults where unreadable): %v", err)
	}

	cash := M(cfg.InitialCash, cfg.Currency)
	ema, level := 0.0, cfg.DefaultRiskLevel
	if st.Account != nil {
		cash = st.Account.Cash
		ema, level = st.Account.SentimentEMA, st.Account.RiskLevel
	}

	ledger := NewLedger(cash, prices)
	for _, pos := range st.Positions {
		if !pos.Shares.IsPositive() {
			continue
		}
		if _, dup := ledger.positions[pos.Symbol]; dup || pos.CostBasis.IsNegative() {
			log.Printf("load-state err: invalid position %q ignored", pos.Symbol)
			continue
		}
		ledger.positions[pos.Symbol] = &pos
		if st.Account == nil {
			// holdings without account: the invested capital was never taken from the cash.
			ledger.cash = ledger.cash.Sub(pos.TotalCost())
		}
	}
	ledger.trades = append(ledger.trades, st.Trades...)

	return &Portfolio{
		ledger: ledger,
		risk:   NewRiskEngine(cfg.EMAAlpha, ema, level),
		repo:   repo,
	}, nil
}

// New creates an empty in-memory portfolio.
func New(cfg Config, prices PriceProvider) (*Portfolio, error) {
	return Open(cfg, &MemoryRepository{}, prices)
}

// Ledger returns the portfolio's ledger for read access.
func (p *Portfolio) Ledger() *Ledger { return p.ledger }

// Cash returns the unallocated cash.
func (p *Portfolio) Cash() Money { return p.ledger.Cash() }

// Risk returns the current risk state.
func (p *Portfolio) Risk() RiskState { return p.risk.State() }

// Price returns the current price of symbol.
func (p *Portfolio) Price(ctx context.Context, symbol string) (Money, error) {
	return p.ledger.Price(ctx, symbol)
}

// TotalValue returns cash plus the market value of all positions.
func (p *Portfolio) TotalValue(ctx context.Context) (Money, error) {
	return p.ledger.TotalValue(ctx)
}

// Trades returns the last limit trades, or all of them if limit <= 0.
func (p *Portfolio) Trades(limit int) []Trade { return p.ledger.Trades(limit) }

// UpdateRisk folds a sentiment observation into the risk state.
func (p *Portfolio) UpdateRisk(score float64) RiskState {
	st := p.risk.Update(score)
	p.notifyRisk(st)
	p.save()
	return st
}

// SetBaseRiskLevel overrides the risk level until the next sentiment observation.
func (p *Portfolio) SetBaseRiskLevel(level float64) RiskState {
	st := p.risk.SetLevel(level)
	p.notifyRisk(st)
	p.save()
	return st
}

// DraftOrder proposes an order for symbol given a sentiment score. It reads
// the current cash, position and price, and changes nothing: a draft should
// be recomputed if it is not applied right away.
func (p *Portfolio) DraftOrder(ctx context.Context, symbol string, score float64) (Order, error) {
	return draftOrder(ctx, p.ledger, p.risk.Level(), symbol, score)
}

// ApplyOrder executes order at the current price.
//
// It returns the executed trade, or nil when the order is a no-op: hold,
// buy costing more than the cash, sell without position. Only malformed
// orders are errors (ErrInvalidOrder), or a failing price provider.
func (p *Portfolio) ApplyOrder(ctx context.Context, order Order, sentiment float64) (*Trade, error) {
	order, err := order.Validate()
	if err != nil {
		return nil, err
	}
	if !p.executable(order) {
		return nil, nil
	}
	price, err := p.ledger.Price(ctx, order.Symbol)
	if err != nil {
		return nil, err
	}
	return p.apply(order, sentiment, price), nil
}

// ApplyOrderAt is ApplyOrder with a manual execution price.
func (p *Portfolio) ApplyOrderAt(order Order, sentiment float64, price Money) (*Trade, error) {
	order, err := order.Validate()
	if err != nil {
		return nil, err
	}
	if !price.IsPositive() {
		return nil, fmt.Errorf("%w: price must be positive, got %v", ErrInvalidOrder, price)
	}
	if !p.executable(order) {
		return nil, nil
	}
	return p.apply(order, sentiment, price), nil
}

// executable tells if order may change the ledger, so that no price is
// fetched for a no-op.
func (p *Portfolio) executable(order Order) bool {
	switch order.Action {
	case Buy:
		return true
	case Sell:
		_, held := p.ledger.Position(order.Symbol)
		return held
	default:
		return false
	}
}

func (p *Portfolio) apply(order Order, sentiment float64, price Money) *Trade {
	trade := p.ledger.apply(order, sentiment, price)
	if trade == nil {
		return nil
	}
	if p.Observer != nil {
		p.Observer.TradeExecuted(*trade)
	}
	if err := p.repo.AppendTrade(*trade); err != nil {
		p.persistFailed(fmt.Errorf("append trade: %w", err))
	}
	p.save()
	return trade
}

// ManuallyUpdatePosition sets the position of symbol outside of any trade.
// A quantity <= 0 removes the position. The cash absorbs the difference of
// total cost, and no trade is recorded.
func (p *Portfolio) ManuallyUpdatePosition(symbol string, quantity Quantity, costBasis Money) error {
	if symbol == "" {
		return fmt.Errorf("%w: symbol is missing", ErrInvalidOrder)
	}
	if costBasis.IsNegative() {
		return fmt.Errorf("%w: negative cost basis %v", ErrInvalidOrder, costBasis)
	}
	p.ledger.setPosition(symbol, quantity, costBasis)
	p.save()
	return nil
}

// State returns the persistable state, without the trade history.
func (p *Portfolio) State() State {
	risk := p.risk.State()
	return State{
		Account: &Account{
			Cash:         p.ledger.Cash(),
			RiskLevel:    risk.RiskLevel,
			SentimentEMA: risk.SentimentEMA,
		},
		Positions: slices.Collect(p.ledger.Positions()),
	}
}

// save persists the state. Failures are reported, never returned: the
// in-memory state stays the reference.
func (p *Portfolio) save() {
	if err := p.repo.Save(p.State()); err != nil {
		p.persistFailed(fmt.Errorf("save state: %w", err))
	}
}

func (p *Portfolio) persistFailed(err error) {
	log.Printf("persist err (ignored): %v", err)
	if p.Observer != nil {
		p.Observer.PersistFailed(err)
	}
}

func (p *Portfolio) notifyRisk(st RiskState) {
	if p.Observer != nil {
		p.Observer.RiskUpdated(st)
	}
}
