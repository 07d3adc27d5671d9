package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/sentifolio"
	"github.com/etnz/sentifolio/renderer"
	"github.com/etnz/sentifolio/sentiment"
	"github.com/google/subcommands"
)

type draftCmd struct {
	apply bool
}

func (*draftCmd) Name() string     { return "draft" }
func (*draftCmd) Synopsis() string { return "draft the order matching a sentiment score" }
func (*draftCmd) Usage() string {
	return `sfo draft [-apply] <symbol> <score>

  Drafts the order the current risk level and position lead to for a
  sentiment score in [-1,1]. The risk level is not updated: use 'sfo analyze'
  or 'sfo risk -observe' for that. With -apply the drafted order is executed.
`
}

func (c *draftCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.apply, "apply", false, "Execute the drafted order.")
}

func (c *draftCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "Error: expected <symbol> <score>.")
		return subcommands.ExitUsageError
	}
	score, err := parseFloat("score", f.Arg(1))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}

	p, err := OpenPortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	result := sentiment.Result{Score: score, Summary: "Score given on the command line."}
	return draftAndApply(ctx, p, f.Arg(0), result, c.apply)
}

type analyzeCmd struct {
	apply bool
}

func (*analyzeCmd) Name() string     { return "analyze" }
func (*analyzeCmd) Synopsis() string { return "score a news text and draft the matching order" }
func (*analyzeCmd) Usage() string {
	return `sfo analyze [-apply] <symbol> <text>...

  Scores the sentiment of a text (read from stdin when the text is '-'),
  updates the risk level with it, and drafts the order for <symbol>.
  Texts are scored by Gemini when GEMINI_API_KEY is set, and by a keyword
  heuristic otherwise. With -apply the drafted order is executed.
`
}

func (c *analyzeCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.apply, "apply", false, "Execute the drafted order.")
}

func (c *analyzeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: expected <symbol> <text>...")
		return subcommands.ExitUsageError
	}
	text, err := readText(f.Args()[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading text: %v\n", err)
		return subcommands.ExitFailure
	}

	p, err := OpenPortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	result, err := newAnalyzer(ctx).Analyze(ctx, text)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing text: %v\n", err)
		return subcommands.ExitFailure
	}
	p.UpdateRisk(result.Score)
	return draftAndApply(ctx, p, f.Arg(0), result, c.apply)
}

// draftAndApply prints the order drafted for a sentiment result, and executes it if asked to.
func draftAndApply(ctx context.Context, p *sentifolio.Portfolio, symbol string, result sentiment.Result, apply bool) subcommands.ExitStatus {
	order, err := p.DraftOrder(ctx, symbol, result.Score)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error drafting order: %v\n", err)
		return subcommands.ExitFailure
	}
	price, err := p.Price(ctx, symbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting price: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderDraft(&renderer.Draft{
		Symbol: symbol,
		Result: result,
		Order:  order,
		Price:  price,
		Risk:   p.Risk(),
	}))

	if !apply || order.Action == sentifolio.Hold {
		return subcommands.ExitSuccess
	}
	trade, err := p.ApplyOrderAt(order, result.Score, price)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error applying order: %v\n", err)
		return subcommands.ExitFailure
	}
	if trade == nil {
		fmt.Printf("skipped: %v\n", order)
		return subcommands.ExitSuccess
	}
	fmt.Printf("executed: %v @ %v = %v (cash %v)\n", trade.Order, trade.Price, trade.Value(), p.Cash())
	return subcommands.ExitSuccess
}
