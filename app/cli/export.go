package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"

	"github.com/canopy-network/hydrodash/pkg/production"
)

type exportCmd struct {
	datasetFlags
	format string
	out    string
	search string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the filtered records as CSV or an XLSX workbook" }
func (*exportCmd) Usage() string {
	return `hydroctl export -source <file|url> [-format csv|xlsx] [-o <file>] [-q <term>] [filters]

  Writes the filtered records (CSV) or the whole dashboard view (XLSX).
  Output goes to stdout unless -o is given; -q narrows CSV rows by well,
  company or province.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	c.datasetFlags.register(f)
	f.StringVar(&c.format, "format", "csv", "Output format: csv or xlsx.")
	f.StringVar(&c.out, "o", "", "Output file. Defaults to stdout.")
	f.StringVar(&c.search, "q", "", "Only export rows matching this search term (csv only).")
}

func (c *exportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	format := strings.ToLower(c.format)
	if format != "csv" && format != "xlsx" {
		fmt.Fprintf(os.Stderr, "unknown format %q, must be csv or xlsx\n", c.format)
		return subcommands.ExitUsageError
	}

	v, err := c.view(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	err = writeOutput(c.out, func(w io.Writer) error {
		if format == "xlsx" {
			return production.WriteWorkbook(w, v)
		}
		return production.WriteCSV(w, production.Search(v.FilteredData, c.search))
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// writeOutput runs write against the named file, or stdout when path is empty.
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
