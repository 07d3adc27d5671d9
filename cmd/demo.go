package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/sentifolio"
	"github.com/etnz/sentifolio/monitoring"
	"github.com/etnz/sentifolio/renderer"
	"github.com/etnz/sentifolio/sentiment"
	"github.com/google/subcommands"
)

// DemoTexts are the news of the demo simulation, one per round.
var DemoTexts = []string{
	"Company reports excellent earnings, buy now!",
	"Rumors of leadership change, bearish outlook.",
	"Industry trend looks good, investors optimistic.",
	"Sell-off expected after regulatory news.",
	"Market remains neutral, no action recommended.",
}

// DemoSymbols are the symbols traded by the demo simulation.
var DemoSymbols = []string{"AAPL", "GOOGL", "TSLA", "MSFT"}

type demoCmd struct {
	symbols string
}

func (*demoCmd) Name() string     { return "demo" }
func (*demoCmd) Synopsis() string { return "run a simulation on a fresh in-memory portfolio" }
func (*demoCmd) Usage() string {
	return `sfo demo [-symbols AAPL,GOOGL,...]

  Runs a few rounds of news through the sentiment analyzer, updates the risk
  level and trades every watched symbol on each round. The portfolio is kept
  in memory: nothing is written to the data folder.
`
}

func (c *demoCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.symbols, "symbols", strings.Join(DemoSymbols, ","), "Comma separated list of watched symbols.")
}

func (c *demoCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p, err := sentifolio.New(config(), priceProvider())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	rec := monitoring.NewRecorder()
	p.Observer = rec

	var md strings.Builder
	if err := RunDemo(ctx, &md, p, newAnalyzer(ctx), DemoTexts, strings.Split(c.symbols, ",")); err != nil {
		fmt.Fprintf(os.Stderr, "Error running demo: %v\n", err)
		return subcommands.ExitFailure
	}
	rec.UpdateCash(p.Cash())
	printMarkdown(md.String())
	return subcommands.ExitSuccess
}

// RunDemo analyzes each text, updates the risk level and applies the
// drafted order of every symbol, then writes a markdown report of each round
// and of the final portfolio to w.
func RunDemo(ctx context.Context, w io.Writer, p *sentifolio.Portfolio, a sentiment.Analyzer, texts, symbols []string) error {
	fmt.Fprintf(w, "# Sentiment Trading Demo\n\n- Watched Symbols: %s\n- Initial Cash: %v\n\n", strings.Join(symbols, ", "), p.Cash())

	for i, text := range texts {
		result, err := a.Analyze(ctx, text)
		if err != nil {
			return fmt.Errorf("round %d: %w", i+1, err)
		}
		round := &renderer.Round{Number: i + 1, Text: text, Result: result}
		round.Risk = p.UpdateRisk(result.Score)

		for _, symbol := range symbols {
			symbol = strings.TrimSpace(symbol)
			order, err := p.DraftOrder(ctx, symbol, result.Score)
			if err != nil {
				return fmt.Errorf("round %d: %w", i+1, err)
			}
			price, err := p.Price(ctx, symbol)
			if err != nil {
				return fmt.Errorf("round %d: %w", i+1, err)
			}
			if order.Action == sentifolio.Hold {
				continue
			}
			trade, err := p.ApplyOrderAt(order, result.Score, price)
			if err != nil {
				return fmt.Errorf("round %d: %w", i+1, err)
			}
			round.Executions = append(round.Executions, renderer.Execution{Order: order, Price: price, Trade: trade})
		}

		if round.Status, err = renderer.NewStatus(ctx, p); err != nil {
			return fmt.Errorf("round %d: %w", i+1, err)
		}
		fmt.Fprintln(w, renderer.RenderRound(round))
	}

	status, err := renderer.NewStatus(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "# Final Results")
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderer.RenderStatus(status))
	fmt.Fprintln(w, renderer.RenderTrades(p.Trades(0)))
	return nil
}
