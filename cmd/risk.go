package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/sentifolio/renderer"
	"github.com/google/subcommands"
)

type riskCmd struct {
	set     float64
	observe float64
}

func (*riskCmd) Name() string     { return "risk" }
func (*riskCmd) Synopsis() string { return "show or change the risk level" }
func (*riskCmd) Usage() string {
	return `sfo risk [-set <level>] [-observe <score>]

  Shows the risk level and the smoothed sentiment. -observe folds a sentiment
  score in [-1,1] into the average, -set overrides the risk level until the
  next observation. Out of range values are clamped.
`
}

func (c *riskCmd) SetFlags(f *flag.FlagSet) {
	f.Float64Var(&c.set, "set", -1, "Override the risk level, in [0,1].")
	f.Float64Var(&c.observe, "observe", 0, "Fold a sentiment score into the average.")
}

func (c *riskCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	observed, set := false, false
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "observe":
			observed = true
		case "set":
			set = true
		}
	})
	if observed && set {
		fmt.Fprintln(os.Stderr, "Error: -set and -observe cannot be used together.")
		return subcommands.ExitUsageError
	}

	p, err := OpenPortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	st := p.Risk()
	switch {
	case observed:
		st = p.UpdateRisk(c.observe)
	case set:
		st = p.SetBaseRiskLevel(c.set)
	}
	printMarkdown(renderer.RenderRisk(st))
	return subcommands.ExitSuccess
}
