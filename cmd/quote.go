package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/sentifolio"
	"github.com/etnz/sentifolio/renderer"
	"github.com/google/subcommands"
)

type quoteCmd struct{}

func (*quoteCmd) Name() string     { return "quote" }
func (*quoteCmd) Synopsis() string { return "show the current price of symbols" }
func (*quoteCmd) Usage() string {
	return `sfo quote <symbol>...

  Shows the price of each symbol and its change since the previous close.
  Prices are deterministic mock prices unless -live is set.
`
}

func (*quoteCmd) SetFlags(f *flag.FlagSet) {}

func (*quoteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: expected at least one symbol.")
		return subcommands.ExitUsageError
	}

	quoter, ok := priceProvider().(sentifolio.Quoter)
	if !ok {
		fmt.Fprintln(os.Stderr, "Error: the price provider cannot quote.")
		return subcommands.ExitFailure
	}
	quotes := make([]sentifolio.Quote, 0, f.NArg())
	for _, symbol := range f.Args() {
		q, err := quoter.Quote(ctx, strings.ToUpper(symbol))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error quoting %s: %v\n", symbol, err)
			return subcommands.ExitFailure
		}
		quotes = append(quotes, q)
	}
	printMarkdown(renderer.RenderQuotes(quotes))
	return subcommands.ExitSuccess
}
