package controller

import (
	"net/http"
	"strconv"
	"strings"
)

const maxLimit = 100

type pageParams struct {
	Page  int
	Limit int
	Query string
}

// parsePageParams reads ?page=&limit=&q=. Defaults: first page, defaultLimit rows.
func parsePageParams(r *http.Request, defaultLimit int) (pageParams, error) {
	qs := r.URL.Query()

	limit := defaultLimit
	if v := qs.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return pageParams{}, errInvalidLimit
		}
		limit = min(n, maxLimit)
	}

	page := 1
	if v := qs.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return pageParams{}, errInvalidPage
		}
		page = n
	}

	return pageParams{Page: page, Limit: limit, Query: strings.TrimSpace(qs.Get("q"))}, nil
}

var (
	errInvalidLimit = &parseError{msg: "invalid limit"}
	errInvalidPage  = &parseError{msg: "invalid page"}
	errInvalidYear  = &parseError{msg: "invalid anio, must be a year or 'all'"}
)

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }
