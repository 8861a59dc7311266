package controller

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/canopy-network/hydrodash/pkg/production"
)

// HandleExportCSV downloads the filtered records matching ?q= as CSV.
func (c *Controller) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	_, v, ok := c.loadedView(w, r)
	if !ok {
		return
	}

	rows := production.Search(v.FilteredData, strings.TrimSpace(r.URL.Query().Get("q")))

	var buf bytes.Buffer
	if err := production.WriteCSV(&buf, rows); err != nil {
		c.App.Logger.Error("CSV export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	sendAttachment(w, "text/csv; charset=utf-8", production.ExportCSVFilename, buf.Bytes())
}

// HandleExportXLSX downloads the view as an XLSX workbook.
func (c *Controller) HandleExportXLSX(w http.ResponseWriter, r *http.Request) {
	_, v, ok := c.loadedView(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := production.WriteWorkbook(&buf, v); err != nil {
		c.App.Logger.Error("XLSX export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	sendAttachment(w, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", production.ExportXLSXFilename, buf.Bytes())
}

func sendAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
