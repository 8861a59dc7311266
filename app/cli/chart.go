package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"github.com/canopy-network/hydrodash/pkg/chart"
)

type chartCmd struct {
	datasetFlags
	kind string
	out  string
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "render a dashboard chart as PNG" }
func (*chartCmd) Usage() string {
	return `hydroctl chart -source <file|url> -kind monthly|provinces|companies -o <file.png> [filters]

  Renders one of the dashboard charts of the filtered dataset.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	c.datasetFlags.register(f)
	f.StringVar(&c.kind, "kind", "monthly", "Chart to render: monthly, provinces or companies.")
	f.StringVar(&c.out, "o", "", "Output PNG file (required).")
}

func (c *chartCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.out == "" {
		fmt.Fprintln(os.Stderr, "-o is required")
		return subcommands.ExitUsageError
	}
	switch c.kind {
	case "monthly", "provinces", "companies":
	default:
		fmt.Fprintf(os.Stderr, "unknown chart %q\n", c.kind)
		return subcommands.ExitUsageError
	}

	v, err := c.view(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	err = writeOutput(c.out, func(w io.Writer) error {
		switch c.kind {
		case "provinces":
			return chart.Provinces(w, v)
		case "companies":
			return chart.Companies(w, v)
		default:
			return chart.Monthly(w, v.MonthlyTimeSeries)
		}
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
