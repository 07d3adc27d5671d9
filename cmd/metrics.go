package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/etnz/sentifolio/monitoring"
	"github.com/google/subcommands"
)

type metricsCmd struct {
	addr string
	path string
}

func (*metricsCmd) Name() string     { return "metrics" }
func (*metricsCmd) Synopsis() string { return "serve the portfolio metrics to Prometheus" }
func (*metricsCmd) Usage() string {
	return `sfo metrics [-addr <host:port>] [-path <path>]

  Replays the activity log into Prometheus metrics (trades, risk level,
  sentiment average, cash) and serves them until interrupted.
`
}

func (c *metricsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", ":9090", "Address to listen on.")
	f.StringVar(&c.path, "path", "/metrics", "Path of the metrics endpoint.")
}

func (c *metricsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	p, err := OpenPortfolio()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	rec := monitoring.NewRecorder()
	for _, t := range p.Trades(0) {
		rec.TradeExecuted(t)
	}
	rec.RiskUpdated(p.Risk())
	rec.UpdateCash(p.Cash())

	mux := http.NewServeMux()
	mux.Handle(c.path, rec.Handler())
	srv := &http.Server{Addr: c.addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			log.Printf("metrics server shutdown: %v", err)
		}
	}()

	fmt.Fprintf(os.Stderr, "Serving metrics on %s%s\n", c.addr, c.path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "Error serving metrics: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
