// Package production holds the hydrocarbon production pipeline: decoding delimited well
// production reports into typed records and reducing a record set plus a filter into the
// aggregate view served by the dashboard.
package production

import "fmt"

// GasToCubicMeters converts gas volumes, reported in thousands of m³, into m³.
const GasToCubicMeters = 1000

// Source column names, as published in the production datasets.
const (
	ColumnCompanyID    = "idempresa"
	ColumnYear         = "anio"
	ColumnMonth        = "mes"
	ColumnWellID       = "idpozo"
	ColumnOil          = "prod_pet"
	ColumnGas          = "prod_gas"
	ColumnWater        = "prod_agua"
	ColumnCompanyName  = "empresa"
	ColumnProvince     = "provincia"
	ColumnResourceType = "tipo_de_recurso"
	ColumnBasin        = "cuenca"
	ColumnFormation    = "formacion"
	ColumnReportDate   = "fecha_data"
)

// Record is one well/period production entry.
// Every field is always populated: missing or unparsable cells decode to the zero value.
type Record struct {
	CompanyID    string  `json:"idempresa"`
	Year         int     `json:"anio"`
	Month        int     `json:"mes"`
	WellID       string  `json:"idpozo"`
	OilVolume    float64 `json:"prod_pet"`
	GasVolume    float64 `json:"prod_gas"`
	WaterVolume  float64 `json:"prod_agua"`
	CompanyName  string  `json:"empresa"`
	Province     string  `json:"provincia"`
	ResourceType string  `json:"tipo_de_recurso"`
	Basin        string  `json:"cuenca"`
	Formation    string  `json:"formacion"`
	ReportDate   string  `json:"fecha_data"`
}

// Volume returns the production of the record in m³, with gas normalized to m³.
func (r Record) Volume() float64 {
	return r.OilVolume + r.GasVolume*GasToCubicMeters
}

// Period returns the YYYY-MM key the record contributes to in the monthly series.
func (r Record) Period() string {
	return PeriodKey(r.Year, r.Month)
}

// PeriodKey formats a year and month as a sortable period key ("2023-04").
func PeriodKey(year, month int) string {
	return fmt.Sprintf("%d-%02d", year, month)
}
