package production

import "strings"

// DefaultRowsPerPage is the page size of the records table.
const DefaultRowsPerPage = 20

// Search keeps the records whose well id, company or province contains term, ignoring case.
// An empty term keeps every record.
func Search(records []Record, term string) []Record {
	if term == "" {
		return records
	}
	needle := strings.ToLower(term)
	out := make([]Record, 0)
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.WellID), needle) ||
			strings.Contains(strings.ToLower(r.CompanyName), needle) ||
			strings.Contains(strings.ToLower(r.Province), needle) {
			out = append(out, r)
		}
	}
	return out
}

// Page is one page of the records table.
// Start and End are the 1-based positions of the first and last row shown.
type Page struct {
	Rows       []Record `json:"rows"`
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalPages int      `json:"totalPages"`
	TotalRows  int      `json:"totalRows"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
}

// Paginate returns the requested 1-based page of records.
// The page is clamped to the available range and perPage defaults to DefaultRowsPerPage.
func Paginate(records []Record, page, perPage int) Page {
	if perPage <= 0 {
		perPage = DefaultRowsPerPage
	}
	total := len(records)
	totalPages := (total + perPage - 1) / perPage
	page = max(1, min(page, totalPages))

	from := min((page-1)*perPage, total)
	to := min(from+perPage, total)

	rows := records[from:to]
	if rows == nil {
		rows = []Record{}
	}
	p := Page{
		Rows:       rows,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
		TotalRows:  total,
	}
	if to > from {
		p.Start = from + 1
		p.End = to
	}
	return p
}
