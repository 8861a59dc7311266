// Package display turns aggregate views into the localized strings shown on the dashboard cards.
package display

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/canopy-network/hydrodash/pkg/production"
)

// Locale is the only locale the dashboard formats numbers for.
var Locale = language.MustParse("es-AR")

// Trend of a metric card.
const (
	TrendUp      = "up"
	TrendDown    = "down"
	TrendNeutral = "neutral"
)

// Metric is one dashboard card.
type Metric struct {
	Title  string `json:"title"`
	Value  string `json:"value"`
	Unit   string `json:"unit"`
	Change string `json:"change"`
	Trend  string `json:"trend"`
}

// Formatter formats numbers for a locale.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter returns a Formatter for tag.
func NewFormatter(tag language.Tag) *Formatter {
	return &Formatter{printer: message.NewPrinter(tag)}
}

var defaultFormatter = NewFormatter(Locale)

// Default returns the Formatter for Locale.
func Default() *Formatter { return defaultFormatter }

// Decimal formats v with exactly one fraction digit ("1.234,5").
func (f *Formatter) Decimal(v float64) string {
	return f.printer.Sprintf("%.1f", v)
}

// Integer formats n with digit grouping.
func (f *Formatter) Integer(n int) string {
	return f.printer.Sprintf("%d", n)
}

// Change formats a percentage change with an explicit plus sign when positive ("+12,5%").
func (f *Formatter) Change(pct float64) string {
	sign := ""
	if pct > 0 {
		sign = "+"
	}
	return sign + f.Decimal(pct) + "%"
}

// Millions converts m³ into millions of m³.
func Millions(v float64) float64 {
	return v / 1_000_000
}

// Metrics builds the dashboard cards for v.
func (f *Formatter) Metrics(v production.View) []Metric {
	trend := TrendUp
	if v.MonthlyChange < 0 {
		trend = TrendDown
	}
	return []Metric{
		{
			Title:  "Producción Total",
			Value:  f.Decimal(Millions(v.TotalProduction)),
			Unit:   "Millones m³",
			Change: f.Change(v.MonthlyChange),
			Trend:  trend,
		},
		{
			Title: "Empresas Activas",
			Value: f.Integer(v.ActiveCompanies),
			Unit:  "empresas",
			Trend: TrendNeutral,
		},
		{
			Title: "Provincias",
			Value: f.Integer(v.ActiveProvinces),
			Unit:  "provincias",
			Trend: TrendNeutral,
		},
		{
			Title: "Pozos en Dataset",
			Value: f.Integer(len(v.FilteredData)),
			Unit:  "registros",
			Trend: TrendNeutral,
		},
	}
}

// Metrics builds the dashboard cards for v using the default locale.
func Metrics(v production.View) []Metric {
	return defaultFormatter.Metrics(v)
}

// LoadedBanner is the status line shown once a dataset is active.
func (f *Formatter) LoadedBanner(records int) string {
	return "Dashboard activo - " + f.Integer(records) + " registros cargados"
}
