package production

import (
	"cmp"
	"slices"
)

// Options lists the values offered by the dashboard filter selects.
type Options struct {
	Years         []int    `json:"years"`
	ResourceTypes []string `json:"resourceTypes"`
	Provinces     []string `json:"provinces"`
	Companies     []string `json:"companies"`
}

// AvailableOptions collects the distinct filter values present in records.
// Years are newest first; text values are sorted ascending and exclude empty strings.
func AvailableOptions(records []Record) Options {
	years := distinct(records, func(r Record) int { return r.Year })
	slices.SortFunc(years, func(a, b int) int { return cmp.Compare(b, a) })

	return Options{
		Years:         years,
		ResourceTypes: distinctText(records, func(r Record) string { return r.ResourceType }),
		Provinces:     distinctText(records, func(r Record) string { return r.Province }),
		Companies:     distinctText(records, func(r Record) string { return r.CompanyName }),
	}
}

func distinct[T comparable](records []Record, key func(Record) T) []T {
	seen := make(map[T]struct{})
	out := make([]T, 0)
	for _, r := range records {
		k := key(r)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func distinctText(records []Record, key func(Record) string) []string {
	values := distinct(records, key)
	values = slices.DeleteFunc(values, func(v string) bool { return v == "" })
	slices.Sort(values)
	return values
}
