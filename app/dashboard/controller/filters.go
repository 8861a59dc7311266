package controller

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-jose/go-jose/v4/json"

	"github.com/canopy-network/hydrodash/pkg/production"
)

// filterAny is the select value clients send for an unconstrained dimension.
const filterAny = "all"

// filterPayload is the wire form of a filter: null means unconstrained.
type filterPayload struct {
	Year         any     `json:"anio"`
	ResourceType *string `json:"tipoRecurso"`
	Province     *string `json:"provincia"`
	Company      *string `json:"empresa"`
}

func toPayload(f production.Filter) filterPayload {
	p := filterPayload{
		ResourceType: textOrNil(f.ResourceType, production.AllResourceTypes),
		Province:     textOrNil(f.Province, production.AllProvinces),
		Company:      textOrNil(f.Company, production.AllCompanies),
	}
	if f.Year != 0 {
		p.Year = f.Year
	}
	return p
}

func (p filterPayload) toFilter() (production.Filter, error) {
	year, err := parseYear(p.Year)
	if err != nil {
		return production.Filter{}, err
	}
	return production.Filter{
		Year:         year,
		ResourceType: textValue(p.ResourceType),
		Province:     textValue(p.Province),
		Company:      textValue(p.Company),
	}, nil
}

func parseYear(v any) (int, error) {
	switch y := v.(type) {
	case nil:
		return 0, nil
	case float64:
		if y != float64(int(y)) || y < 0 {
			return 0, errInvalidYear
		}
		return int(y), nil
	case string:
		y = strings.TrimSpace(y)
		if y == "" || y == filterAny {
			return 0, nil
		}
		n, err := strconv.Atoi(y)
		if err != nil || n < 0 {
			return 0, errInvalidYear
		}
		return n, nil
	default:
		return 0, errInvalidYear
	}
}

func textValue(v *string) string {
	if v == nil || *v == filterAny {
		return ""
	}
	return *v
}

func textOrNil(v, all string) *string {
	if v == "" || v == all {
		return nil
	}
	return &v
}

// HandleGetFilters returns the active filter.
func (c *Controller) HandleGetFilters(w http.ResponseWriter, r *http.Request) {
	s := c.currentSession(w, r)
	writeJSON(w, http.StatusOK, toPayload(s.Filter()))
}

// HandlePutFilters replaces the active filter and returns it.
func (c *Controller) HandlePutFilters(w http.ResponseWriter, r *http.Request) {
	var p filterPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f, err := p.toFilter()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s := c.session(w, r)
	s.SetFilter(r.Context(), f)
	writeJSON(w, http.StatusOK, toPayload(s.Filter()))
}

// HandleResetFilters clears the filter.
func (c *Controller) HandleResetFilters(w http.ResponseWriter, r *http.Request) {
	s := c.session(w, r)
	s.ResetFilter(r.Context())
	writeJSON(w, http.StatusOK, toPayload(s.Filter()))
}

// HandleOptions returns the values each filter dimension can take.
func (c *Controller) HandleOptions(w http.ResponseWriter, r *http.Request) {
	s := c.currentSession(w, r)
	writeJSON(w, http.StatusOK, s.Options())
}
