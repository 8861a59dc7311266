// Package chart renders the dashboard charts as PNG images.
package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/canopy-network/hydrodash/pkg/production"
)

// Default image size.
const (
	Width  = 10 * vg.Inch
	Height = 5 * vg.Inch
)

var (
	oilColor = color.RGBA{R: 34, G: 139, B: 94, A: 255}
	gasColor = color.RGBA{R: 231, G: 111, B: 46, A: 255}
	barColor = color.RGBA{R: 70, G: 130, B: 180, A: 255}
)

// Monthly renders the monthly oil and gas series as a line chart.
func Monthly(w io.Writer, series []production.SeriesPoint) error {
	p := plot.New()
	p.Title.Text = "Producción Mensual"
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Período"
	p.Y.Label.Text = "Volumen"
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	if len(series) > 0 {
		oil := make(plotter.XYs, len(series))
		gas := make(plotter.XYs, len(series))
		labels := make([]string, len(series))
		for i, point := range series {
			oil[i] = plotter.XY{X: float64(i), Y: point.Oil}
			gas[i] = plotter.XY{X: float64(i), Y: point.Gas}
			labels[i] = point.Date
		}

		oilLine, err := plotter.NewLine(oil)
		if err != nil {
			return fmt.Errorf("oil series: %w", err)
		}
		oilLine.Color = oilColor
		oilLine.Width = vg.Points(2)

		gasLine, err := plotter.NewLine(gas)
		if err != nil {
			return fmt.Errorf("gas series: %w", err)
		}
		gasLine.Color = gasColor
		gasLine.Width = vg.Points(2)

		p.Add(oilLine, gasLine)
		p.Legend.Add("Petróleo (m³)", oilLine)
		p.Legend.Add("Gas (miles de m³)", gasLine)
		p.NominalX(labels...)
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}

	return save(w, p)
}

// Ranking renders a ranking (labels and their volumes, same length) as a bar chart.
func Ranking(w io.Writer, title string, labels []string, values []float64) error {
	if len(labels) != len(values) {
		return fmt.Errorf("ranking %q: %d labels for %d values", title, len(labels), len(values))
	}

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.Y.Label.Text = "Producción (m³)"

	if len(values) > 0 {
		bars, err := plotter.NewBarChart(plotter.Values(values), vg.Points(24))
		if err != nil {
			return fmt.Errorf("ranking %q: %w", title, err)
		}
		bars.Color = barColor
		bars.LineStyle.Width = vg.Length(0)
		p.Add(bars)
		p.NominalX(labels...)
		p.X.Tick.Label.Rotation = math.Pi / 6
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	}

	return save(w, p)
}

// Provinces renders the province ranking of v.
func Provinces(w io.Writer, v production.View) error {
	labels := make([]string, 0, len(v.ProductionByProvince))
	values := make([]float64, 0, len(v.ProductionByProvince))
	for _, p := range v.ProductionByProvince {
		labels = append(labels, p.Province)
		values = append(values, p.Volume)
	}
	return Ranking(w, "Producción por Provincia", labels, values)
}

// Companies renders the company ranking of v.
func Companies(w io.Writer, v production.View) error {
	labels := make([]string, 0, len(v.ProductionByCompany))
	values := make([]float64, 0, len(v.ProductionByCompany))
	for _, c := range v.ProductionByCompany {
		labels = append(labels, c.Company)
		values = append(values, c.Volume)
	}
	return Ranking(w, "Top 10 Empresas", labels, values)
}

func save(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(Width, Height, "png")
	if err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	return nil
}
