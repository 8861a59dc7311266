package controller

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/canopy-network/hydrodash/pkg/chart"
	"github.com/canopy-network/hydrodash/pkg/production"
)

var rankingCharts = map[string]func(io.Writer, production.View) error{
	"provinces": chart.Provinces,
	"companies": chart.Companies,
}

// HandleMonthlyChart renders the monthly series as PNG.
func (c *Controller) HandleMonthlyChart(w http.ResponseWriter, r *http.Request) {
	_, v, ok := c.loadedView(w, r)
	if !ok {
		return
	}
	c.sendChart(w, "monthly", func(buf io.Writer) error { return chart.Monthly(buf, v.MonthlyTimeSeries) })
}

// HandleRankingChart renders the provinces or companies ranking as PNG.
func (c *Controller) HandleRankingChart(w http.ResponseWriter, r *http.Request) {
	dimension := mux.Vars(r)["dimension"]
	render, found := rankingCharts[dimension]
	if !found {
		writeError(w, http.StatusNotFound, "unknown chart: "+dimension)
		return
	}

	_, v, ok := c.loadedView(w, r)
	if !ok {
		return
	}
	c.sendChart(w, dimension, func(buf io.Writer) error { return render(buf, v) })
}

func (c *Controller) sendChart(w http.ResponseWriter, name string, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		c.App.Logger.Error("Chart rendering failed", zap.String("chart", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "chart rendering failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
