package chart

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canopy-network/hydrodash/pkg/production"
)

func sampleView() production.View {
	return production.Aggregate([]production.Record{
		{Year: 2024, Month: 1, OilVolume: 10, GasVolume: 1, CompanyName: "A", Province: "X"},
		{Year: 2024, Month: 2, OilVolume: 20, GasVolume: 2, CompanyName: "B", Province: "Y"},
	}, production.Filter{})
}

func TestMonthlyRendersPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Monthly(&buf, sampleView().MonthlyTimeSeries))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Positive(t, img.Bounds().Dx())
}

func TestRankingsRenderPNG(t *testing.T) {
	for name, render := range map[string]func(*bytes.Buffer) error{
		"provinces": func(b *bytes.Buffer) error { return Provinces(b, sampleView()) },
		"companies": func(b *bytes.Buffer) error { return Companies(b, sampleView()) },
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, render(&buf))
			_, err := png.Decode(&buf)
			require.NoError(t, err)
		})
	}
}

func TestEmptyChartsStillRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Monthly(&buf, nil))
	buf.Reset()
	require.NoError(t, Ranking(&buf, "empty", nil, nil))
}

func TestRankingRejectsMismatchedInput(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Ranking(&buf, "bad", []string{"a"}, nil))
}
