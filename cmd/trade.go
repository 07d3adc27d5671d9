package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/sentifolio"
	"github.com/google/subcommands"
)

// tradeCmd implements both buy and sell.
type tradeCmd struct {
	action    sentifolio.Action
	price     float64
	sentiment float64
}

func (c *tradeCmd) Name() string { return string(c.action) }
func (c *tradeCmd) Synopsis() string {
	return fmt.Sprintf("%s shares of a symbol at the current price", c.action)
}
func (c *tradeCmd) Usage() string {
	return fmt.Sprintf(`sfo %s [-price <price>] [-sentiment <score>] <symbol> <quantity>

  Executes an order to %s <quantity> shares of <symbol>, at the current price
  unless -price is given. The order is skipped, not failed, when it cannot be
  executed: a buy costing more than the cash, or a sell without position.
  A sell larger than the position sells the whole position.
`, c.action, c.action)
}

func (c *tradeCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.price, "price", 0, "Execution price per share. Defaults to the current price.")
	f.Float64Var(&c.sentiment, "sentiment", 0, "Sentiment score recorded with the trade, in [-1,1].")
}

func (c *tradeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Error: expected <symbol> <quantity>.")
		return subcommands.ExitUsageError
	}
	quantity, err := parseFloat("quantity", f.Arg(1))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	order := sentifolio.NewOrder(f.Arg(0), c.action, sentifolio.Q(quantity))

	p, err := OpenPortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	var trade *sentifolio.Trade
	if c.price != 0 {
		trade, err = p.ApplyOrderAt(order, c.sentiment, sentifolio.M(c.price, p.Cash().Currency()))
	} else {
		trade, err = p.ApplyOrder(ctx, order, c.sentiment)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error applying order: %v\n", err)
		return subcommands.ExitFailure
	}
	if trade == nil {
		fmt.Printf("skipped: %v (cash %v)\n", order, p.Cash())
		return subcommands.ExitSuccess
	}
	fmt.Printf("executed: %v @ %v = %v (cash %v)\n", trade.Order, trade.Price, trade.Value(), p.Cash())
	return subcommands.ExitSuccess
}
