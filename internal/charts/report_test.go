package charts

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bilancio/internal/core"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestMonthBarChart(t *testing.T) {
	report := core.MonthReport{
		Year:     2025,
		Month:    3,
		Revenues: core.Money{Cents: 250000},
		ByCategory: []core.CategoryAmount{
			{Name: "Casa", Amount: core.Money{Cents: 85000}},
			{Name: "Lavoro", Amount: core.Money{Cents: -250000}},
			{Name: "Spesa", Amount: core.Money{Cents: 4550}},
		},
	}

	png, err := MonthBarChart(report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestMonthBarChart_SingleCategory(t *testing.T) {
	report := core.MonthReport{
		Year:       2025,
		Month:      1,
		ByCategory: []core.CategoryAmount{{Name: "Casa", Amount: core.Money{Cents: 80000}}},
	}

	png, err := MonthBarChart(report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngMagic))
}

func TestMonthBarChart_Empty(t *testing.T) {
	_, err := MonthBarChart(core.MonthReport{Year: 2025, Month: 2})
	assert.ErrorIs(t, err, ErrNoData)
}
