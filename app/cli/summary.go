package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"

	"github.com/canopy-network/hydrodash/pkg/display"
	"github.com/canopy-network/hydrodash/pkg/production"
)

type summaryCmd struct {
	datasetFlags
	raw bool
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "display the dashboard metrics and rankings of a dataset" }
func (*summaryCmd) Usage() string {
	return `hydroctl summary -source <file|url> [-year N] [-resource R] [-province P] [-company C] [-raw]

  Prints the headline metrics, the monthly series and the province and
  company rankings of the filtered dataset.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	c.datasetFlags.register(f)
	f.BoolVar(&c.raw, "raw", false, "Print the markdown source instead of rendering it.")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	v, err := c.view(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	md := SummaryMarkdown(display.Default(), v)
	if c.raw {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}

	out, err := renderMarkdown(md)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Print(out)
	return subcommands.ExitSuccess
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

// SummaryMarkdown renders v as a markdown report.
func SummaryMarkdown(f *display.Formatter, v production.View) string {
	var b strings.Builder

	b.WriteString("# Producción de Hidrocarburos\n\n")

	b.WriteString("| Métrica | Valor | |\n|---|---:|---|\n")
	for _, m := range f.Metrics(v) {
		unit := m.Unit
		if m.Change != "" {
			unit += " (" + m.Change + ")"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(m.Title), cell(m.Value), cell(unit))
	}

	b.WriteString("\n## Producción Mensual\n\n")
	if len(v.MonthlyTimeSeries) == 0 {
		b.WriteString("Sin datos.\n")
	} else {
		b.WriteString("| Período | Petróleo (m³) | Gas (miles de m³) |\n|---|---:|---:|\n")
		for _, p := range v.MonthlyTimeSeries {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", cell(p.Date), f.Decimal(p.Oil), f.Decimal(p.Gas))
		}
	}

	b.WriteString("\n## Producción por Provincia\n\n")
	if len(v.ProductionByProvince) == 0 {
		b.WriteString("Sin datos.\n")
	} else {
		b.WriteString("| # | Provincia | Producción (m³) |\n|---:|---|---:|\n")
		for i, p := range v.ProductionByProvince {
			fmt.Fprintf(&b, "| %d | %s | %s |\n", i+1, cell(p.Province), f.Decimal(p.Volume))
		}
	}

	b.WriteString("\n## Top 10 Empresas\n\n")
	if len(v.ProductionByCompany) == 0 {
		b.WriteString("Sin datos.\n")
	} else {
		b.WriteString("| # | Empresa | Producción (m³) |\n|---:|---|---:|\n")
		for i, c := range v.ProductionByCompany {
			fmt.Fprintf(&b, "| %d | %s | %s |\n", i+1, cell(c.Company), f.Decimal(c.Volume))
		}
	}

	return b.String()
}

var cellEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`)

// cell escapes text for a markdown table cell.
func cell(text string) string {
	return cellEscaper.Replace(text)
}
