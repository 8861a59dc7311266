package production

import (
	"slices"
	"strings"
)

// RankingSize is the number of groups kept in the province and company rankings.
const RankingSize = 10

// SeriesPoint is one month of the production time series.
// Gas stays in its reported unit (thousands of m³).
type SeriesPoint struct {
	Date string  `json:"date"`
	Oil  float64 `json:"petroleo"`
	Gas  float64 `json:"gas"`
}

// ProvinceVolume is the normalized production of one province.
type ProvinceVolume struct {
	Province string  `json:"provincia"`
	Volume   float64 `json:"produccion"`
}

// CompanyVolume is the normalized production of one company.
type CompanyVolume struct {
	Company string  `json:"empresa"`
	Volume  float64 `json:"produccion"`
}

// View is everything the dashboard derives from a record set and a filter.
// A View is recomputed from scratch on every change and never mutated afterwards.
type View struct {
	TotalProduction      float64          `json:"totalProduction"`
	MonthlyChange        float64          `json:"monthlyChange"`
	ActiveCompanies      int              `json:"activeCompanies"`
	ActiveProvinces      int              `json:"activeProvinces"`
	MonthlyTimeSeries    []SeriesPoint    `json:"monthlyTimeSeries"`
	ProductionByProvince []ProvinceVolume `json:"productionByProvince"`
	ProductionByCompany  []CompanyVolume  `json:"productionByCompany"`
	FilteredData         []Record         `json:"filteredData"`
}

// Aggregate filters records with f and computes the aggregate view of the result.
// It is a pure function: records is never modified and equal inputs give equal views.
func Aggregate(records []Record, f Filter) View {
	filtered := f.Apply(records)

	return View{
		TotalProduction:      totalVolume(filtered),
		MonthlyChange:        monthlyChange(filtered),
		ActiveCompanies:      countDistinct(filtered, func(r Record) string { return r.CompanyName }),
		ActiveProvinces:      countDistinct(filtered, func(r Record) string { return r.Province }),
		MonthlyTimeSeries:    monthlySeries(filtered),
		ProductionByProvince: rankProvinces(filtered),
		ProductionByCompany:  rankCompanies(filtered),
		FilteredData:         filtered,
	}
}

func totalVolume(records []Record) float64 {
	var total float64
	for _, r := range records {
		total += r.Volume()
	}
	return total
}

// monthlyChange compares the latest month number against the one before it.
// Months are compared by number only, so different years sharing a month add up.
func monthlyChange(records []Record) float64 {
	if len(records) == 0 {
		return 0
	}
	latest := records[0].Month
	for _, r := range records[1:] {
		latest = max(latest, r.Month)
	}

	var current, previous float64
	for _, r := range records {
		switch r.Month {
		case latest:
			current += r.Volume()
		case latest - 1:
			previous += r.Volume()
		}
	}
	if previous <= 0 {
		return 0
	}
	return (current - previous) / previous * 100
}

func countDistinct(records []Record, key func(Record) string) int {
	seen := make(map[string]struct{})
	for _, r := range records {
		seen[key(r)] = struct{}{}
	}
	return len(seen)
}

func monthlySeries(records []Record) []SeriesPoint {
	index := make(map[string]int)
	series := make([]SeriesPoint, 0)
	for _, r := range records {
		key := r.Period()
		i, ok := index[key]
		if !ok {
			i = len(series)
			index[key] = i
			series = append(series, SeriesPoint{Date: key})
		}
		series[i].Oil += r.OilVolume
		series[i].Gas += r.GasVolume
	}
	slices.SortFunc(series, func(a, b SeriesPoint) int {
		return strings.Compare(a.Date, b.Date)
	})
	return series
}

// group is a named volume sum, kept in first-seen order so ties rank deterministically.
type group struct {
	name   string
	volume float64
}

func rankBy(records []Record, key func(Record) string) []group {
	index := make(map[string]int)
	groups := make([]group, 0)
	for _, r := range records {
		name := key(r)
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, group{name: name})
		}
		groups[i].volume += r.Volume()
	}
	slices.SortStableFunc(groups, func(a, b group) int {
		switch {
		case a.volume > b.volume:
			return -1
		case a.volume < b.volume:
			return 1
		default:
			return 0
		}
	})
	if len(groups) > RankingSize {
		groups = groups[:RankingSize]
	}
	return groups
}

func rankProvinces(records []Record) []ProvinceVolume {
	groups := rankBy(records, func(r Record) string { return r.Province })
	out := make([]ProvinceVolume, 0, len(groups))
	for _, g := range groups {
		out = append(out, ProvinceVolume{Province: g.name, Volume: g.volume})
	}
	return out
}

func rankCompanies(records []Record) []CompanyVolume {
	groups := rankBy(records, func(r Record) string { return r.CompanyName })
	out := make([]CompanyVolume, 0, len(groups))
	for _, g := range groups {
		out = append(out, CompanyVolume{Company: g.name, Volume: g.volume})
	}
	return out
}
