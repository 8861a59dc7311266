package production

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	lineSeparator  = "\n"
	fieldSeparator = ","
)

// fieldRule decodes one source column into its typed Record field.
// A rule whose column is absent from the header receives an empty cell.
type fieldRule struct {
	column string
	apply  func(r *Record, cell string)
}

var schema = []fieldRule{
	{ColumnCompanyID, func(r *Record, v string) { r.CompanyID = v }},
	{ColumnYear, func(r *Record, v string) { r.Year = parseInt(v) }},
	{ColumnMonth, func(r *Record, v string) { r.Month = parseInt(v) }},
	{ColumnWellID, func(r *Record, v string) { r.WellID = v }},
	{ColumnOil, func(r *Record, v string) { r.OilVolume = parseFloat(v) }},
	{ColumnGas, func(r *Record, v string) { r.GasVolume = parseFloat(v) }},
	{ColumnWater, func(r *Record, v string) { r.WaterVolume = parseFloat(v) }},
	{ColumnCompanyName, func(r *Record, v string) { r.CompanyName = v }},
	{ColumnProvince, func(r *Record, v string) { r.Province = v }},
	{ColumnResourceType, func(r *Record, v string) { r.ResourceType = v }},
	{ColumnBasin, func(r *Record, v string) { r.Basin = v }},
	{ColumnFormation, func(r *Record, v string) { r.Formation = v }},
	{ColumnReportDate, func(r *Record, v string) { r.ReportDate = v }},
}

// boundRule is a fieldRule resolved against a concrete header.
type boundRule struct {
	fieldRule
	index int // -1 when the column is missing
}

// decoder holds the header of a dataset and the schema bound to it.
type decoder struct {
	width int
	rules []boundRule
}

func newDecoder(headerLine string) *decoder {
	names := strings.Split(headerLine, fieldSeparator)
	positions := make(map[string]int, len(names))
	for i, name := range names {
		positions[strings.TrimSpace(name)] = i
	}

	rules := make([]boundRule, 0, len(schema))
	for _, rule := range schema {
		idx, ok := positions[rule.column]
		if !ok {
			idx = -1
		}
		rules = append(rules, boundRule{fieldRule: rule, index: idx})
	}
	return &decoder{width: len(names), rules: rules}
}

// decode converts one data line. ok is false when the line has fewer cells than the header.
func (d *decoder) decode(line string) (rec Record, ok bool) {
	cells := strings.Split(line, fieldSeparator)
	if len(cells) < d.width {
		return Record{}, false
	}
	for _, rule := range d.rules {
		var cell string
		if rule.index >= 0 {
			cell = strings.TrimSpace(cells[rule.index])
		}
		rule.apply(&rec, cell)
	}
	return rec, true
}

// Parse converts comma-separated text with a header row into records, in line order.
//
// Columns are matched by header name, so column order is irrelevant and unknown columns are
// ignored. Rows with fewer cells than the header are dropped; unparsable numeric cells decode to 0.
func Parse(text string) []Record {
	lines := strings.Split(strings.TrimSpace(text), lineSeparator)
	dec := newDecoder(lines[0])

	records := make([]Record, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if rec, ok := dec.decode(line); ok {
			records = append(records, rec)
		}
	}
	return records
}

// Decode reads the whole of r and parses it. It only fails when reading fails.
func Decode(r io.Reader) ([]Record, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read production data: %w", err)
	}
	return Parse(string(raw)), nil
}

// parseInt parses the leading integer of s ("12abc" -> 12, "3.7" -> 3), or 0.
func parseInt(s string) int {
	end := scanSign(s, 0)
	digits := scanDigits(s, end)
	if digits == end {
		return 0
	}
	n, err := strconv.Atoi(s[:digits])
	if err != nil {
		return 0
	}
	return n
}

// parseFloat parses the longest decimal literal prefix of s ("1.5e3x" -> 1500), or 0.
// Non-finite results decode to 0 as well.
func parseFloat(s string) float64 {
	i := scanSign(s, 0)
	intEnd := scanDigits(s, i)
	end := intEnd
	mantissaDigits := intEnd - i
	if end < len(s) && s[end] == '.' {
		fracEnd := scanDigits(s, end+1)
		mantissaDigits += fracEnd - (end + 1)
		end = fracEnd
	}
	if mantissaDigits == 0 {
		return 0
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		expStart := scanSign(s, end+1)
		if expEnd := scanDigits(s, expStart); expEnd > expStart {
			end = expEnd
		}
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func scanSign(s string, i int) int {
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		return i + 1
	}
	return i
}

func scanDigits(s string, i int) int {
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i
}
