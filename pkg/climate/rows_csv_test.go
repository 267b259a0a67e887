package climate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlillywh/hydrosim/pkg/apperror"
)

const validRowsCSV = `date,precip,tmax,tmin,srad
2024-06-01,0.0,25.0,12.0,22.0
2024-06-02,4.5,23.5,11.0,18.0
2024-06-03,0.0,26.0,13.0,23.0
`

func TestRowsFromCSV_Valid(t *testing.T) {
	rows, err := RowsFromCSV(strings.NewReader(validRowsCSV))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, 4.5, rows[1].Precipitation)
	assert.Equal(t, 23.5, rows[1].TempMax)
	assert.Equal(t, 11.0, rows[1].TempMin)
	assert.Equal(t, 23.0, rows[2].SolarRadiation)

	// Ряд пригоден для поставщика без дополнительных преобразований
	ts, err := NewTimeSeries(Site{Latitude: 40}, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, ts.Len())
}

func TestRowsFromCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"wrong header", "day,precip,tmax,tmin,srad\n2024-06-01,0,25,12,22\n"},
		{"bad date", strings.Replace(validRowsCSV, "2024-06-02", "06/02/2024", 1)},
		{"bad number", strings.Replace(validRowsCSV, "4.5", "wet", 1)},
		{"ragged row", validRowsCSV + "2024-06-04,1.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := RowsFromCSV(strings.NewReader(tt.content))
			require.Error(t, err)
			assert.True(t, apperror.Is(err, apperror.CodeClimateData))
		})
	}
}
