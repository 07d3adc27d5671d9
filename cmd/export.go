package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/sentifolio/export"
	"github.com/google/subcommands"
)

type exportCmd struct {
	output string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export trades and positions to an Excel workbook" }
func (*exportCmd) Usage() string {
	return `sfo export [-o <file.xlsx>]

  Writes the activity log and the open positions to two sheets of an Excel
  workbook.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "portfolio.xlsx", "Output file.")
}

func (c *exportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p, err := OpenPortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := export.SaveXLSX(c.output, p); err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting to %s: %v\n", c.output, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "Exported %d trades to %s\n", len(p.Trades(0)), c.output)
	return subcommands.ExitSuccess
}
