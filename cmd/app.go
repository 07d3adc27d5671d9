// Package cmd implements the CLI application to run a sentiment driven
// portfolio simulation.
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/sentifolio"
	"github.com/etnz/sentifolio/sentiment"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, g := range groups {
		for _, cmd := range g.commands {
			c.Register(cmd, g.name)
		}
	}
}

// Commands returns every registered subcommand.
func Commands() []subcommands.Command {
	var all []subcommands.Command
	for _, g := range groups {
		all = append(all, g.commands...)
	}
	return all
}

var groups = []struct {
	name     string
	commands []subcommands.Command
}{
	{"portfolio", []subcommands.Command{&statusCmd{}, &tradesCmd{}, &positionCmd{}, &exportCmd{}}},
	{"trading", []subcommands.Command{
		&tradeCmd{action: sentifolio.Buy},
		&tradeCmd{action: sentifolio.Sell},
		&draftCmd{},
		&analyzeCmd{},
		&riskCmd{},
	}},
	{"market", []subcommands.Command{&quoteCmd{}}},
	{"simulation", []subcommands.Command{&demoCmd{}, &metricsCmd{}}},
	{"help", []subcommands.Command{&topicCmd{}}},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	dataDir     = flag.String("data-dir", "data", "Folder holding account.json, holdings.csv and activity_log.csv")
	initialCash = flag.Float64("cash", 100000, "Cash of a new portfolio")
	defaultRisk = flag.Float64("risk", sentifolio.DefaultRiskLevel, "Risk level of a new portfolio, in [0,1]")
	emaAlpha    = flag.Float64("alpha", 0.2, "Weight of a new sentiment score in the moving average, in (0,1]")
	livePrices  = flag.Bool("live", false, "Fetch live quotes instead of the deterministic mock prices")
	quoteURL    = flag.String("quote-url", sentifolio.DefaultQuoteURL, "Base URL of the quote API used with -live")
	offline     = flag.Bool("offline", false, "Score texts with the keyword heuristic even if a Gemini API key is available")
	dryRun      = flag.Bool("dry-run", false, "Load the portfolio but never write it back")
	raw         = flag.Bool("raw", false, "Print markdown as is, without terminal rendering")
	Verbose     = flag.Bool("v", false, "Verbose logs")
)

const (
	EnvDataDir     = "SFO_DATA_DIR"
	EnvInitialCash = "SFO_INITIAL_CASH"
	EnvDefaultRisk = "SFO_DEFAULT_RISK"
	EnvEMAAlpha    = "SFO_EMA_ALPHA"
	EnvLivePrices  = "SFO_LIVE_PRICES"
	EnvQuoteURL    = "SFO_QUOTE_URL"
	EnvVerbose     = "SFO_VERBOSE"
)

// envFlags maps environment variables to the global flag they set.
var envFlags = []struct{ env, flag string }{
	{EnvDataDir, "data-dir"},
	{EnvInitialCash, "cash"},
	{EnvDefaultRisk, "risk"},
	{EnvEMAAlpha, "alpha"},
	{EnvLivePrices, "live"},
	{EnvQuoteURL, "quote-url"},
	{EnvVerbose, "v"},
}

// LoadEnv loads the .env files (the current folder's by default) into the
// environment, then uses SFO_* variables as defaults of the global flags.
// It must be called before parsing the command line, so that flags win.
func LoadEnv(fset *flag.FlagSet, files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("cannot load environment file: %w", err)
	}
	for _, ef := range envFlags {
		v, ok := os.LookupEnv(ef.env)
		if !ok || fset.Lookup(ef.flag) == nil {
			continue
		}
		if err := fset.Set(ef.flag, v); err != nil {
			return fmt.Errorf("invalid %s=%q: %w", ef.env, v, err)
		}
	}
	return nil
}

// SetupLog discards logs unless verbose.
func SetupLog() {
	if !*Verbose {
		log.SetOutput(io.Discard)
	}
}

// config returns the portfolio configuration from the global flags.
func config() sentifolio.Config {
	cfg := sentifolio.DefaultConfig()
	cfg.InitialCash = *initialCash
	cfg.DefaultRiskLevel = *defaultRisk
	cfg.EMAAlpha = *emaAlpha
	return cfg
}

// priceProvider returns the price provider selected by the global flags.
func priceProvider() sentifolio.PriceProvider {
	if *livePrices {
		return sentifolio.NewLivePrices(*quoteURL)
	}
	return sentifolio.MockPrices{}
}

// dryRunRepository reads from a repository and drops every write.
type dryRunRepository struct {
	sentifolio.Repository
}

func (dryRunRepository) Save(sentifolio.State) error {
	log.Printf("dry-run: state not saved")
	return nil
}

func (dryRunRepository) AppendTrade(t sentifolio.Trade) error {
	log.Printf("dry-run: trade not logged: %v", t.Order)
	return nil
}

// OpenPortfolio is the central function to open the portfolio in the data folder.
func OpenPortfolio() (*sentifolio.Portfolio, error) {
	var repo sentifolio.Repository = sentifolio.NewFileRepository(*dataDir, sentifolio.DefaultCurrency)
	if *dryRun {
		repo = dryRunRepository{repo}
	}
	return sentifolio.Open(config(), repo, priceProvider())
}

// newAnalyzer returns the Gemini analyzer when an API key is available, and
// the keyword heuristic otherwise.
func newAnalyzer(ctx context.Context) sentiment.Analyzer {
	if *offline || (os.Getenv("GEMINI_API_KEY") == "" && os.Getenv("GOOGLE_API_KEY") == "") {
		return sentiment.Heuristic{}
	}
	g, err := sentiment.NewGemini(ctx, "")
	if err != nil {
		log.Printf("gemini unavailable (using keywords): %v", err)
		return sentiment.Heuristic{}
	}
	return g
}

// printMarkdown renders markdown for the terminal, or prints it raw.
func printMarkdown(md string) {
	if *raw {
		fmt.Print(md)
		return
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		log.Printf("cannot render markdown: %v", err)
		out = md
	}
	fmt.Print(out)
}

// readText returns the text given as arguments, or read from stdin when the
// only argument is "-".
func readText(args []string) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	return strings.Join(args, " "), nil
}

// printJSON prints v as indented JSON.
func printJSON(v any) subcommands.ExitStatus {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(string(data))
	return subcommands.ExitSuccess
}

func parseFloat(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}
