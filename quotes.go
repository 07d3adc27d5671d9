package sentifolio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/PaesslerAG/jsonpath"
)

// DefaultQuoteURL is the base URL of the chart API queried by LivePrices.
const DefaultQuoteURL = "https://query1.finance.yahoo.com"

// DefaultQuoteTTL is how long a fetched quote is reused.
const DefaultQuoteTTL = 60 * time.Second

const (
	pathPrice     = "$.chart.result[0].meta.regularMarketPrice"
	pathPrevClose = "$.chart.result[0].meta.chartPreviousClose"
)

/*
The chart API answers with a document like:

	{
	  "chart": {
	    "result": [
	      { "meta": { "symbol": "AAPL", "regularMarketPrice": 227.52, "chartPreviousClose": 224.31, ... }, ... }
	    ],
	    "error": null
	  }
	}
*/

// LivePrices fetches quotes over HTTP and keeps them for a short time.
// The zero value queries DefaultQuoteURL with http.DefaultClient.
//
// When a quote cannot be fetched, the deterministic mock price is used
// instead so that the portfolio remains usable offline.
type LivePrices struct {
	BaseURL string
	Client  *http.Client
	TTL     time.Duration

	cache map[string]cachedQuote
	now   func() time.Time
}

type cachedQuote struct {
	quote Quote
	at    time.Time
}

// NewLivePrices returns a live provider for the chart API at baseURL.
func NewLivePrices(baseURL string) *LivePrices {
	if baseURL == "" {
		baseURL = DefaultQuoteURL
	}
	return &LivePrices{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
		TTL:     DefaultQuoteTTL,
		cache:   make(map[string]cachedQuote),
		now:     time.Now,
	}
}

// Price implements PriceProvider.
func (p *LivePrices) Price(ctx context.Context, symbol string) (float64, error) {
	q, err := p.Quote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return q.Price, nil
}

// Quote implements Quoter.
func (p *LivePrices) Quote(ctx context.Context, symbol string) (Quote, error) {
	p.init()
	if c, ok := p.cache[symbol]; ok && p.now().Sub(c.at) < p.TTL {
		return c.quote, nil
	}

	price, prevClose, err := p.fetch(ctx, symbol)
	if err != nil {
		log.Printf("live-quote err symbol=%q (falling back to mock price): %v", symbol, err)
		price = mockPrice(symbol)
		prevClose = price
	}

	q := Quote{Symbol: symbol, Price: price, Change: price - prevClose}
	if prevClose > 0 {
		q.PercentChange = q.Change / prevClose * 100
	}
	p.cache[symbol] = cachedQuote{quote: q, at: p.now()}
	return q, nil
}

// init completes a LivePrices built as a struct literal.
func (p *LivePrices) init() {
	if p.cache == nil {
		p.cache = make(map[string]cachedQuote)
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.Client == nil {
		p.Client = http.DefaultClient
	}
	if p.BaseURL == "" {
		p.BaseURL = DefaultQuoteURL
	}
	if p.TTL == 0 {
		p.TTL = DefaultQuoteTTL
	}
}

// fetch queries the chart API for the last price and the previous close.
func (p *LivePrices) fetch(ctx context.Context, symbol string) (price, prevClose float64, err error) {
	addr := p.BaseURL + "/v8/finance/chart/" + url.PathEscape(symbol)
	var jobj any
	if err := jwget(ctx, p.Client, addr, &jobj); err != nil {
		return 0, 0, fmt.Errorf("error retrieving %q: %w", symbol, err)
	}
	if price, err = jsonFloat(jobj, pathPrice); err != nil {
		return 0, 0, fmt.Errorf("error parsing %q: %w", symbol, err)
	}
	if price <= 0 {
		return 0, 0, fmt.Errorf("error parsing %q: non positive price %v", symbol, price)
	}
	if prevClose, err = jsonFloat(jobj, pathPrevClose); err != nil {
		// the previous close is for display only.
		prevClose = price
	}
	return price, prevClose, nil
}

// jsonFloat reads a number at path in a decoded JSON document.
func jsonFloat(jobj any, path string) (float64, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", path, err)
	}
	// because jsonpath is never clear about wheter it returns a list of 1 answer, or a single answer:
	// by this call I keep the first one if any
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	val, ok := jval.(float64)
	if !ok {
		return 0, fmt.Errorf("%q: not a number: %v", path, jval)
	}
	return val, nil
}

// jwget performs an HTTP GET request and unmarshals the JSON response into the provided data structure.
func jwget(ctx context.Context, client *http.Client, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	// the chart API rejects requests without a user agent.
	req.Header.Set("User-Agent", "sentifolio/1.0")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	log.Printf("%v %v%v %v", req.Method, req.URL.Host, req.URL.Path, resp.Status)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v%v: %v", req.URL.Host, req.URL.Path, resp.Status)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), data)
}
