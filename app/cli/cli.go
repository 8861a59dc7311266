// Package cli implements the hydroctl subcommands.
package cli

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/canopy-network/hydrodash/pkg/loader"
	"github.com/canopy-network/hydrodash/pkg/logging"
	"github.com/canopy-network/hydrodash/pkg/production"
	"github.com/canopy-network/hydrodash/pkg/retry"
)

// Commands lists every hydroctl subcommand.
var Commands = []subcommands.Command{
	&summaryCmd{},
	&exportCmd{},
	&chartCmd{},
}

// Register adds the hydroctl subcommands and the standard help commands to c.
func Register(c *subcommands.Commander) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")
	for _, cmd := range Commands {
		c.Register(cmd, "dataset")
	}
}

// datasetFlags selects a dataset and the filter applied to it.
type datasetFlags struct {
	source   string
	timeout  time.Duration
	year     int
	resource string
	province string
	company  string
}

func (d *datasetFlags) register(f *flag.FlagSet) {
	f.StringVar(&d.source, "source", "", "CSV file path or http(s) URL of the production dataset (required).")
	f.DurationVar(&d.timeout, "timeout", 30*time.Second, "Maximum time to fetch the dataset.")
	f.IntVar(&d.year, "year", 0, "Only include this year (0 for all years).")
	f.StringVar(&d.resource, "resource", "", "Only include this resource type.")
	f.StringVar(&d.province, "province", "", "Only include this province.")
	f.StringVar(&d.company, "company", "", "Only include this company.")
}

func (d *datasetFlags) filter() production.Filter {
	return production.Filter{
		Year:         d.year,
		ResourceType: d.resource,
		Province:     d.province,
		Company:      d.company,
	}
}

// view fetches the dataset and aggregates it with the flag filter.
func (d *datasetFlags) view(ctx context.Context) (production.View, error) {
	if d.source == "" {
		return production.View{}, fmt.Errorf("-source is required")
	}

	logger, err := logging.NewWithOutput("hydroctl", "stderr")
	if err != nil {
		return production.View{}, err
	}
	defer func() { _ = logger.Sync() }()

	ldr := loader.New(loader.Config{Timeout: d.timeout, Retry: retry.DefaultConfig()}, &http.Client{}, logger)
	text, err := ldr.Fetch(ctx, d.source)
	if err != nil {
		return production.View{}, err
	}

	records := production.Parse(text)
	logger.Debug("Dataset parsed", zap.String("source", d.source), zap.Int("records", len(records)))
	return production.Aggregate(records, d.filter()), nil
}
