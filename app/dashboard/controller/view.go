package controller

import (
	"net/http"

	"github.com/canopy-network/hydrodash/pkg/production"
	"github.com/canopy-network/hydrodash/pkg/session"
)

const errNoDataset = "no dataset loaded"

// summaryView is a View without the filtered records.
type summaryView struct {
	TotalProduction      float64                     `json:"totalProduction"`
	MonthlyChange        float64                     `json:"monthlyChange"`
	ActiveCompanies      int                         `json:"activeCompanies"`
	ActiveProvinces      int                         `json:"activeProvinces"`
	MonthlyTimeSeries    []production.SeriesPoint    `json:"monthlyTimeSeries"`
	ProductionByProvince []production.ProvinceVolume `json:"productionByProvince"`
	ProductionByCompany  []production.CompanyVolume  `json:"productionByCompany"`
	FilteredCount        int                         `json:"filteredCount"`
}

func summarize(v production.View) summaryView {
	return summaryView{
		TotalProduction:      v.TotalProduction,
		MonthlyChange:        v.MonthlyChange,
		ActiveCompanies:      v.ActiveCompanies,
		ActiveProvinces:      v.ActiveProvinces,
		MonthlyTimeSeries:    v.MonthlyTimeSeries,
		ProductionByProvince: v.ProductionByProvince,
		ProductionByCompany:  v.ProductionByCompany,
		FilteredCount:        len(v.FilteredData),
	}
}

// loadedView returns the session view, answering 404 when nothing was loaded yet.
func (c *Controller) loadedView(w http.ResponseWriter, r *http.Request) (*session.Session, production.View, bool) {
	s := c.currentSession(w, r)
	v, ok := s.View()
	if !ok {
		writeError(w, http.StatusNotFound, errNoDataset)
		return s, production.View{}, false
	}
	return s, v, true
}

// HandleView returns the aggregate view. ?records=true includes filteredData.
func (c *Controller) HandleView(w http.ResponseWriter, r *http.Request) {
	_, v, ok := c.loadedView(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("records") == "true" {
		writeJSON(w, http.StatusOK, v)
		return
	}
	writeJSON(w, http.StatusOK, summarize(v))
}

// HandleMetrics returns the formatted metric cards.
func (c *Controller) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	_, v, ok := c.loadedView(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.App.Formatter.Metrics(v))
}
