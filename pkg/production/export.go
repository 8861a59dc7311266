package production

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Download names of the exported files.
const (
	ExportCSVFilename  = "produccion_hidrocarburos.csv"
	ExportXLSXFilename = "produccion_hidrocarburos.xlsx"
)

// ExportHeader is the header row of the record export, in column order.
var ExportHeader = []string{
	"ID Pozo",
	"Empresa",
	"Provincia",
	"Formación",
	"Producción Petróleo (m³)",
	"Producción Gas (m³)",
	"Año",
	"Mes",
}

func exportRow(r Record) []string {
	return []string{
		r.WellID,
		r.CompanyName,
		r.Province,
		r.Formation,
		formatNumber(r.OilVolume),
		formatNumber(r.GasVolume),
		strconv.Itoa(r.Year),
		strconv.Itoa(r.Month),
	}
}

// formatNumber renders v in its shortest exact decimal form ("10", "10.5").
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes records as comma-separated text with the export header.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(exportRow(r)); err != nil {
			return fmt.Errorf("write export row for well %q: %w", r.WellID, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	return nil
}

// Workbook sheet names.
const (
	SheetRecords   = "Registros"
	SheetMonthly   = "Serie Mensual"
	SheetProvinces = "Por Provincia"
	SheetCompanies = "Por Empresa"
)

// WriteWorkbook writes the view as an XLSX workbook: the filtered records, the monthly series
// and both rankings, one sheet each.
func WriteWorkbook(w io.Writer, v View) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetRecords); err != nil {
		return fmt.Errorf("rename records sheet: %w", err)
	}

	records := make([][]any, 0, len(v.FilteredData))
	for _, r := range v.FilteredData {
		records = append(records, []any{
			r.WellID, r.CompanyName, r.Province, r.Formation,
			r.OilVolume, r.GasVolume, r.Year, r.Month,
		})
	}
	if err := writeSheet(f, SheetRecords, ExportHeader, records); err != nil {
		return err
	}

	monthly := make([][]any, 0, len(v.MonthlyTimeSeries))
	for _, p := range v.MonthlyTimeSeries {
		monthly = append(monthly, []any{p.Date, p.Oil, p.Gas})
	}
	if err := writeSheet(f, SheetMonthly, []string{"Período", "Petróleo (m³)", "Gas (miles de m³)"}, monthly); err != nil {
		return err
	}

	provinces := make([][]any, 0, len(v.ProductionByProvince))
	for _, p := range v.ProductionByProvince {
		provinces = append(provinces, []any{p.Province, p.Volume})
	}
	if err := writeSheet(f, SheetProvinces, []string{"Provincia", "Producción (m³)"}, provinces); err != nil {
		return err
	}

	companies := make([][]any, 0, len(v.ProductionByCompany))
	for _, c := range v.ProductionByCompany {
		companies = append(companies, []any{c.Company, c.Volume})
	}
	if err := writeSheet(f, SheetCompanies, []string{"Empresa", "Producción (m³)"}, companies); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %q: %w", sheet, err)
		}
	}
	for i, title := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return fmt.Errorf("write %q header: %w", sheet, err)
		}
		_ = f.SetColWidth(sheet, columnName(i), columnName(i), 22)
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %q row %d: %w", sheet, r+2, err)
		}
	}
	return nil
}

func columnName(i int) string {
	name, _ := excelize.ColumnNumberToName(i + 1)
	return name
}
