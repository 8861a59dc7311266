package production

// Sentinel select values meaning "no constraint" for the text dimensions.
const (
	AllResourceTypes = "Todos"
	AllProvinces     = "Todas"
	AllCompanies     = "Todas"
)

// Filter is the four-dimension selection applied before aggregation.
// A zero Year and empty (or sentinel) strings leave the dimension unconstrained.
type Filter struct {
	Year         int    `json:"anio"`
	ResourceType string `json:"tipoRecurso"`
	Province     string `json:"provincia"`
	Company      string `json:"empresa"`
}

// IsZero reports whether the filter constrains nothing.
func (f Filter) IsZero() bool {
	return f.Year == 0 &&
		!constrained(f.ResourceType, AllResourceTypes) &&
		!constrained(f.Province, AllProvinces) &&
		!constrained(f.Company, AllCompanies)
}

// Match reports whether r satisfies every constrained dimension.
func (f Filter) Match(r Record) bool {
	if f.Year != 0 && r.Year != f.Year {
		return false
	}
	if constrained(f.ResourceType, AllResourceTypes) && r.ResourceType != f.ResourceType {
		return false
	}
	if constrained(f.Province, AllProvinces) && r.Province != f.Province {
		return false
	}
	if constrained(f.Company, AllCompanies) && r.CompanyName != f.Company {
		return false
	}
	return true
}

// Apply returns the records matching f, in their original order. records is never modified.
func (f Filter) Apply(records []Record) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

func constrained(value, all string) bool {
	return value != "" && value != all
}
