package production

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	records := []Record{
		{WellID: "YPF.Nq.LLL-1", CompanyName: "YPF S.A.", Province: "Neuquén"},
		{WellID: "PAE.Ch.CG-9", CompanyName: "Pan American Energy", Province: "Chubut"},
		{WellID: "TEC.Nq.FP-3", CompanyName: "Tecpetrol", Province: "Neuquén"},
	}

	tests := []struct {
		term string
		want []string
	}{
		{"", []string{"YPF.Nq.LLL-1", "PAE.Ch.CG-9", "TEC.Nq.FP-3"}},
		{"nq", []string{"YPF.Nq.LLL-1", "TEC.Nq.FP-3"}},
		{"PAN AMERICAN", []string{"PAE.Ch.CG-9"}},
		{"chubut", []string{"PAE.Ch.CG-9"}},
		{"nothing", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got := make([]string, 0)
			for _, r := range Search(records, tt.term) {
				got = append(got, r.WellID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaginate(t *testing.T) {
	records := make([]Record, 45)
	for i := range records {
		records[i].WellID = fmt.Sprintf("W%02d", i+1)
	}

	t.Run("first page", func(t *testing.T) {
		p := Paginate(records, 1, 0)
		require.Len(t, p.Rows, DefaultRowsPerPage)
		assert.Equal(t, 3, p.TotalPages)
		assert.Equal(t, 45, p.TotalRows)
		assert.Equal(t, 1, p.Start)
		assert.Equal(t, 20, p.End)
		assert.Equal(t, "W01", p.Rows[0].WellID)
	})

	t.Run("last partial page", func(t *testing.T) {
		p := Paginate(records, 3, 20)
		require.Len(t, p.Rows, 5)
		assert.Equal(t, 41, p.Start)
		assert.Equal(t, 45, p.End)
		assert.Equal(t, "W45", p.Rows[4].WellID)
	})

	t.Run("clamps out of range pages", func(t *testing.T) {
		assert.Equal(t, 3, Paginate(records, 99, 20).Page)
		assert.Equal(t, 1, Paginate(records, -2, 20).Page)
	})

	t.Run("empty", func(t *testing.T) {
		p := Paginate(nil, 1, 20)
		assert.NotNil(t, p.Rows)
		assert.Empty(t, p.Rows)
		assert.Equal(t, 1, p.Page)
		assert.Zero(t, p.TotalPages)
		assert.Zero(t, p.Start)
		assert.Zero(t, p.End)
	})
}
