package controller

import (
	"net/http"

	"github.com/canopy-network/hydrodash/pkg/production"
)

// HandleRecords returns one page of the filtered records matching ?q=.
func (c *Controller) HandleRecords(w http.ResponseWriter, r *http.Request) {
	params, err := parsePageParams(r, c.App.Config.RowsPerPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, v, ok := c.loadedView(w, r)
	if !ok {
		return
	}

	rows := production.Search(v.FilteredData, params.Query)
	writeJSON(w, http.StatusOK, production.Paginate(rows, params.Page, params.Limit))
}
