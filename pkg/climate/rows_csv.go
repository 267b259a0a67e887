package climate

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jlillywh/hydrosim/pkg/apperror"
)

// RowsFromCSV читает измеренный климатический ряд из CSV с заголовком
// date,precip,tmax,tmin,srad: дата ISO 8601, осадки мм/сут, температуры °C,
// радиация МДж/м²/сут. Непрерывность дат проверяет NewTimeSeries
func RowsFromCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeClimateData, "malformed climate csv")
	}
	if len(records) == 0 {
		return nil, apperror.New(apperror.CodeClimateData, "climate csv is empty")
	}

	want := []string{"date", "precip", "tmax", "tmin", "srad"}
	header := records[0]
	headerOK := len(header) == len(want)
	for i := 0; headerOK && i < len(want); i++ {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want[i]) {
			headerOK = false
		}
	}
	if !headerOK {
		return nil, apperror.Newf(apperror.CodeClimateData,
			"first line must be the header %q, got %q",
			strings.Join(want, ","), strings.Join(header, ","))
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		for j := range rec {
			rec[j] = strings.TrimSpace(rec[j])
		}
		date, err := time.Parse(time.DateOnly, rec[0])
		if err != nil {
			return nil, apperror.Newf(apperror.CodeClimateData,
				"row %d: invalid date %q, want YYYY-MM-DD", i+1, rec[0])
		}
		var vals [4]float64
		for j, col := range [...]string{"precip", "tmax", "tmin", "srad"} {
			v, err := strconv.ParseFloat(rec[j+1], 64)
			if err != nil {
				return nil, apperror.Newf(apperror.CodeClimateData,
					"row %d: invalid %s: %q", i+1, col, rec[j+1])
			}
			vals[j] = v
		}
		rows = append(rows, Row{
			Date:           date,
			Precipitation:  vals[0],
			TempMax:        vals[1],
			TempMin:        vals[2],
			SolarRadiation: vals[3],
		})
	}
	return rows, nil
}
