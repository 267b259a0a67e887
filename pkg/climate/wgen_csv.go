package climate

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jlillywh/hydrosim/pkg/apperror"
)

// ParamsFromCSV читает параметры генератора из CSV с тремя секциями:
// месячной (month,pww,pwd,alpha,beta — ровно 12 строк начиная с января),
// температурной и радиационной (parameter,value). Широту и зерно файл не
// содержит, их задаёт вызывающий
func ParamsFromCSV(r io.Reader) (Params, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return Params{}, apperror.Wrap(err, apperror.CodeClimateData, "malformed parameter csv")
	}
	if len(records) == 0 {
		return Params{}, apperror.New(apperror.CodeClimateData, "parameter csv is empty")
	}

	want := []string{"month", "pww", "pwd", "alpha", "beta"}
	header := records[0]
	headerOK := len(header) == len(want)
	for i := 0; headerOK && i < len(want); i++ {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want[i]) {
			headerOK = false
		}
	}
	if !headerOK {
		return Params{}, apperror.Newf(apperror.CodeClimateData,
			"first line must be the monthly header %q, got %q",
			strings.Join(want, ","), strings.Join(header, ","))
	}

	var p Params
	monthly := 0
	scalars := make(map[string]float64)

	for _, rec := range records[1:] {
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		switch len(rec) {
		case 5:
			if monthly >= 12 {
				return Params{}, apperror.New(apperror.CodeClimateData,
					"monthly section has more than 12 rows")
			}
			if !strings.EqualFold(rec[0], monthNames[monthly]) {
				return Params{}, apperror.Newf(apperror.CodeClimateData,
					"monthly row %d must be %q, got %q", monthly+1, monthNames[monthly], rec[0])
			}
			var vals [4]float64
			for i, col := range [...]string{"pww", "pwd", "alpha", "beta"} {
				v, err := strconv.ParseFloat(rec[i+1], 64)
				if err != nil {
					return Params{}, apperror.Newf(apperror.CodeClimateData,
						"invalid %s for %s: %q", col, rec[0], rec[i+1])
				}
				vals[i] = v
			}
			p.PWW[monthly], p.PWD[monthly] = vals[0], vals[1]
			p.Alpha[monthly], p.Beta[monthly] = vals[2], vals[3]
			monthly++

		case 2:
			// Заголовок очередной скалярной секции пропускается
			if strings.EqualFold(rec[0], "parameter") && strings.EqualFold(rec[1], "value") {
				continue
			}
			key := strings.ToLower(rec[0])
			if _, dup := scalars[key]; dup {
				return Params{}, apperror.Newf(apperror.CodeClimateData,
					"duplicate parameter %q", key)
			}
			v, err := strconv.ParseFloat(rec[1], 64)
			if err != nil {
				return Params{}, apperror.Newf(apperror.CodeClimateData,
					"invalid value for %q: %q", key, rec[1])
			}
			scalars[key] = v

		default:
			return Params{}, apperror.Newf(apperror.CodeClimateData,
				"unexpected row %q", strings.Join(rec, ","))
		}
	}

	if monthly != 12 {
		return Params{}, apperror.Newf(apperror.CodeClimateData,
			"monthly section has %d rows, expected 12", monthly)
	}

	fields := map[string]*float64{
		"txmd":  &p.TxmD,
		"atx":   &p.ATx,
		"txmw":  &p.TxmW,
		"tn":    &p.Tn,
		"atn":   &p.ATn,
		"cvtx":  &p.CVTx,
		"acvtx": &p.ACVTx,
		"cvtn":  &p.CVTn,
		"acvtn": &p.ACVTn,
		"rmd":   &p.RmD,
		"ar":    &p.Ar,
		"rmw":   &p.RmW,
	}
	for key, value := range scalars {
		dst, ok := fields[key]
		if !ok {
			return Params{}, apperror.Newf(apperror.CodeClimateData,
				"unknown parameter %q", key)
		}
		*dst = value
		delete(fields, key)
	}
	if len(fields) > 0 {
		missing := make([]string, 0, len(fields))
		for key := range fields {
			missing = append(missing, key)
		}
		sort.Strings(missing)
		return Params{}, apperror.Newf(apperror.CodeClimateData,
			"missing parameters: %s", strings.Join(missing, ", "))
	}

	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}
