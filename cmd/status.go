package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/sentifolio"
	"github.com/etnz/sentifolio/renderer"
	"github.com/google/subcommands"
)

type statusCmd struct {
	json bool
}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "show cash, positions and risk level of the portfolio" }
func (*statusCmd) Usage() string {
	return `sfo status [-json]

  Values every open position at its current price and shows the cash, the
  total value, the risk level and the smoothed sentiment.
`
}

func (c *statusCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.json, "json", false, "Print the snapshot as JSON.")
}

func (c *statusCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p, err := OpenPortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	if c.json {
		snap, err := p.Snapshot(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error valuing portfolio: %v\n", err)
			return subcommands.ExitFailure
		}
		return printJSON(snap)
	}

	status, err := renderer.NewStatus(ctx, p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error valuing portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderStatus(status))
	return subcommands.ExitSuccess
}

type tradesCmd struct {
	tail int
	json bool
}

func (*tradesCmd) Name() string     { return "trades" }
func (*tradesCmd) Synopsis() string { return "list the executed trades" }
func (*tradesCmd) Usage() string {
	return `sfo trades [-n <count>] [-json]

  Lists the trades of the activity log, oldest first.
`
}

func (c *tradesCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.tail, "n", 0, "Show only the last N trades. 0 shows them all.")
	f.BoolVar(&c.json, "json", false, "Print the trades as JSON lines.")
}

func (c *tradesCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.tail < 0 {
		fmt.Fprintln(os.Stderr, "Error: -n must not be negative.")
		return subcommands.ExitUsageError
	}
	p, err := OpenPortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	trades := p.Trades(c.tail)
	if c.json {
		enc := json.NewEncoder(os.Stdout)
		for _, t := range trades {
			if err := enc.Encode(t); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding trade: %v\n", err)
				return subcommands.ExitFailure
			}
		}
		return subcommands.ExitSuccess
	}
	printMarkdown(renderer.RenderTrades(trades))
	return subcommands.ExitSuccess
}

type positionCmd struct{}

func (*positionCmd) Name() string     { return "position" }
func (*positionCmd) Synopsis() string { return "set a position manually" }
func (*positionCmd) Usage() string {
	return `sfo position <symbol> <quantity> <cost_basis>

  Sets the position of a symbol outside of any trade, for instance to declare
  shares bought elsewhere. The cash absorbs the difference of total cost and
  no trade is logged. A quantity of 0 removes the position.
`
}

func (*positionCmd) SetFlags(f *flag.FlagSet) {}

func (*positionCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "Error: expected <symbol> <quantity> <cost_basis>.")
		return subcommands.ExitUsageError
	}
	symbol := f.Arg(0)
	quantity, err := parseFloat("quantity", f.Arg(1))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	cost, err := parseFloat("cost basis", f.Arg(2))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	p, err := OpenPortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := p.ManuallyUpdatePosition(symbol, sentifolio.Q(quantity), sentifolio.M(cost, p.Cash().Currency())); err != nil {
		fmt.Fprintf(os.Stderr, "Error updating position: %v\n", err)
		return subcommands.ExitFailure
	}
	if pos, ok := p.Ledger().Position(symbol); ok {
		fmt.Printf("%s: %v shares at %v, cash %v\n", symbol, pos.Shares, pos.CostBasis, p.Cash())
	} else {
		fmt.Printf("%s: no position, cash %v\n", symbol, p.Cash())
	}
	return subcommands.ExitSuccess
}
