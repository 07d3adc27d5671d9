// Package renderer renders portfolio views as markdown documents.
//
// Documents are text/template files embedded in the binary, tables are built
// with go-pretty and inserted as markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/etnz/sentifolio"
)

//go:embed templates/*.md
var templatesFS embed.FS

var templates, _ = fs.Sub(templatesFS, "templates")

var funcs = template.FuncMap{
	"percent": func(f float64) string { return fmt.Sprintf("%.0f%%", f*100) },
	"score":   func(f float64) string { return fmt.Sprintf("%+.2f", f) },
	"upper":   strings.ToUpper,
}

// RenderStatus renders the portfolio status: cash, value, risk and positions.
func RenderStatus(s *Status) string { return renderTemplate("status.md", s) }

// RenderTrades renders the trade history, most recent last.
func RenderTrades(trades []sentifolio.Trade) string {
	return renderTemplate("trades.md", tradeList(trades))
}

// RenderDraft renders the analysis of a text and the order drafted from it.
func RenderDraft(d *Draft) string { return renderTemplate("draft.md", d) }

// RenderQuotes renders a list of quotes.
func RenderQuotes(quotes []sentifolio.Quote) string {
	return renderTemplate("quotes.md", quoteList(quotes))
}

// RenderRisk renders the risk state.
func RenderRisk(r sentifolio.RiskState) string { return renderTemplate("risk.md", r) }

// RenderRound renders one round of the demo simulation.
func RenderRound(r *Round) string { return renderTemplate("round.md", r) }

// renderTemplate executes a template file. Failures are rendered in place of
// the document, so that a broken template never hides the rest of an output.
func renderTemplate(file string, data any) string {
	content, err := fs.ReadFile(templates, file)
	if err != nil {
		return fmt.Sprintf("error reading template %q: %v", file, err)
	}
	tmpl, err := template.New(file).Funcs(funcs).Parse(string(content))
	if err != nil {
		return fmt.Sprintf("error parsing template %q: %v", file, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", file, err)
	}
	return b.String()
}
