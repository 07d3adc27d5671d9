package sentifolio

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// This file contains the persistence of a portfolio in a folder, in files that
// remain human readable and spreadsheet friendly:
//
//   account.json      {"cash":..., "risk_level":..., "sentiment_ema":...}
//   holdings.csv      Symbol,Shares,CostBasis,TotalCost
//   activity_log.csv  symbol,action,quantity,price,timestamp,sentiment,value
//
// account.json and holdings.csv are rewritten atomically on every save, the
// activity log is append only.

const (
	AccountFilename  = "account.json"
	HoldingsFilename = "holdings.csv"
	ActivityFilename = "activity_log.csv"
)

// DefaultRiskLevel is the risk level of a new portfolio, and of an account
// record that does not have one.
const DefaultRiskLevel = 1.0

var (
	holdingsHeader = []string{"Symbol", "Shares", "CostBasis", "TotalCost"}
	activityHeader = []string{"symbol", "action", "quantity", "price", "timestamp", "sentiment", "value"}
)

// Account is the persisted cash and risk record.
type Account struct {
	Cash         Money
	RiskLevel    float64
	SentimentEMA float64
}

// State is everything a Repository persists about a portfolio.
type State struct {
	Account   *Account // Account is nil when no account record exists yet.
	Positions []Position
	Trades    []Trade
}

// Repository persists portfolio state.
type Repository interface {
	// Load returns the persisted state. Unreadable parts are reported in the
	// error and left empty in the state, missing parts are not errors.
	Load() (State, error)
	// Save replaces the account record and the holdings.
	Save(State) error
	// AppendTrade appends one trade to the activity log.
	AppendTrade(Trade) error
}

// FileRepository is a Repository storing a portfolio in a directory.
type FileRepository struct {
	Dir      string
	Currency string
}

// NewFileRepository returns a repository in dir, for a cash account in currency.
func NewFileRepository(dir, currency string) *FileRepository {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &FileRepository{Dir: dir, Currency: currency}
}

func (r *FileRepository) path(name string) string { return filepath.Join(r.Dir, name) }

// Load implements Repository.
func (r *FileRepository) Load() (State, error) {
	var st State
	var errs error

	acc, err := r.loadAccount()
	if err != nil {
		errs = errors.Join(errs, err)
	}
	st.Account = acc

	if st.Positions, err = r.loadHoldings(); err != nil {
		errs = errors.Join(errs, err)
	}
	if st.Trades, err = r.loadActivity(); err != nil {
		errs = errors.Join(errs, err)
	}
	return st, errs
}

// Save implements Repository.
func (r *FileRepository) Save(st State) error {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("cannot create data directory %q: %w", r.Dir, err)
	}
	if st.Account != nil {
		data, err := encodeAccount(*st.Account)
		if err != nil {
			return fmt.Errorf("cannot encode account: %w", err)
		}
		if err := writeFileAtomic(r.path(AccountFilename), data, 0o644); err != nil {
			return fmt.Errorf("cannot write %q: %w", AccountFilename, err)
		}
	}

	var buf bytes.Buffer
	if err := encodeHoldings(&buf, st.Positions); err != nil {
		return fmt.Errorf("cannot encode holdings: %w", err)
	}
	if err := writeFileAtomic(r.path(HoldingsFilename), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("cannot write %q: %w", HoldingsFilename, err)
	}
	return nil
}

// AppendTrade implements Repository.
func (r *FileRepository) AppendTrade(t Trade) error {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("cannot create data directory %q: %w", r.Dir, err)
	}
	filename := r.path(ActivityFilename)
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("cannot open %q for appending: %w", filename, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(activityHeader); err != nil {
			return err
		}
	}
	if err := w.Write(encodeTrade(t)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (r *FileRepository) loadAccount() (*Account, error) {
	data, err := os.ReadFile(r.path(AccountFilename))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	acc, err := decodeAccount(data, r.Currency)
	if err != nil {
		return nil, fmt.Errorf("format error in %q: %w", AccountFilename, err)
	}
	return acc, nil
}

func (r *FileRepository) loadHoldings() ([]Position, error) {
	f, err := os.Open(r.path(HoldingsFilename))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	positions, err := decodeHoldings(f, r.Currency)
	if err != nil {
		return nil, fmt.Errorf("format error in %q: %w", HoldingsFilename, err)
	}
	return positions, nil
}

func (r *FileRepository) loadActivity() ([]Trade, error) {
	f, err := os.Open(r.path(ActivityFilename))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	trades, err := decodeActivity(f, r.Currency)
	if err != nil {
		return nil, fmt.Errorf("format error in %q: %w", ActivityFilename, err)
	}
	return trades, nil
}

func encodeAccount(acc Account) ([]byte, error) {
	var w jsonObjectWriter
	w.Append("cash", acc.Cash)
	w.Append("risk_level", acc.RiskLevel)
	w.Append("sentiment_ema", acc.SentimentEMA)
	return w.MarshalJSON()
}

func decodeAccount(data []byte, currency string) (*Account, error) {
	var jacc struct {
		Cash         *decimal.Decimal `json:"cash"`
		RiskLevel    *float64         `json:"risk_level"`
		SentimentEMA float64          `json:"sentiment_ema"`
	}
	if err := json.Unmarshal(data, &jacc); err != nil {
		return nil, err
	}
	if jacc.Cash == nil {
		return nil, errors.New("missing the property \"cash\"")
	}
	acc := &Account{
		Cash:         M(*jacc.Cash, currency),
		RiskLevel:    DefaultRiskLevel,
		SentimentEMA: jacc.SentimentEMA,
	}
	if jacc.RiskLevel != nil {
		acc.RiskLevel = *jacc.RiskLevel
	}
	return acc, nil
}

func encodeHoldings(w io.Writer, positions []Position) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(holdingsHeader); err != nil {
		return err
	}
	for _, pos := range positions {
		row := []string{
			pos.Symbol,
			pos.Shares.String(),
			pos.CostBasis.value.String(),
			pos.TotalCost().value.String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func decodeHoldings(r io.Reader, currency string) ([]Position, error) {
	rows, err := readTable(r, "Symbol", "Shares", "CostBasis")
	if err != nil {
		return nil, err
	}
	positions := make([]Position, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for i, row := range rows {
		symbol := row["Symbol"]
		if symbol == "" {
			return nil, fmt.Errorf("row %d: symbol is missing", i+1)
		}
		if seen[symbol] {
			return nil, fmt.Errorf("row %d: duplicate symbol %q", i+1, symbol)
		}
		seen[symbol] = true
		shares, err := decimal.NewFromString(row["Shares"])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid shares: %w", i+1, err)
		}
		cost, err := decimal.NewFromString(row["CostBasis"])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid cost basis: %w", i+1, err)
		}
		if cost.IsNegative() {
			return nil, fmt.Errorf("row %d: negative cost basis %v", i+1, cost)
		}
		positions = append(positions, Position{
			Symbol:    symbol,
			Shares:    Q(shares),
			CostBasis: M(cost, currency),
		})
	}
	return positions, nil
}

func encodeTrade(t Trade) []string {
	return []string{
		t.Symbol,
		string(t.Action),
		t.Quantity.String(),
		t.Price.value.String(),
		t.Timestamp.Format(time.RFC3339Nano),
		strconv.FormatFloat(t.Sentiment, 'f', -1, 64),
		t.Value().value.String(),
	}
}

func decodeActivity(r io.Reader, currency string) ([]Trade, error) {
	rows, err := readTable(r, "symbol", "action", "quantity", "price", "timestamp", "sentiment")
	if err != nil {
		return nil, err
	}
	trades := make([]Trade, 0, len(rows))
	for i, row := range rows {
		action, err := ParseAction(row["action"])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		quantity, err := decimal.NewFromString(row["quantity"])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid quantity: %w", i+1, err)
		}
		price, err := decimal.NewFromString(row["price"])
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid price: %w", i+1, err)
		}
		ts, err := parseTimestamp(row["timestamp"])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		sentiment, err := strconv.ParseFloat(row["sentiment"], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid sentiment: %w", i+1, err)
		}
		trades = append(trades, Trade{
			Order:     NewOrder(row["symbol"], action, Q(quantity)),
			Price:     M(price, currency),
			Timestamp: ts,
			Sentiment: sentiment,
		})
	}
	return trades, nil
}

// readTable reads a csv with a header line and returns each row indexed by
// column name. Every required column must be present in the header.
func readTable(r io.Reader, required ...string) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	header := records[0]
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("row %d: got %d fields, want %d", i+1, len(rec), len(header))
		}
		row := make(map[string]string, len(header))
		for name, j := range index {
			row[name] = rec[j]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// writeFileAtomic writes data to path atomically (tmp file + fsync + rename).
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// MemoryRepository keeps the state in memory. It is meant for dry runs and tests.
type MemoryRepository struct {
	State State
}

// Load implements Repository.
func (r *MemoryRepository) Load() (State, error) { return r.State, nil }

// Save implements Repository.
func (r *MemoryRepository) Save(st State) error {
	r.State.Account = st.Account
	r.State.Positions = st.Positions
	return nil
}

// AppendTrade implements Repository.
func (r *MemoryRepository) AppendTrade(t Trade) error {
	r.State.Trades = append(r.State.Trades, t)
	return nil
}
