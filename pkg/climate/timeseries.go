package climate

import (
	"time"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// Row одна строка измеренного климатического ряда
type Row struct {
	Date           time.Time
	Precipitation  float64 // мм/сут
	TempMax        float64 // °C
	TempMin        float64 // °C
	SolarRadiation float64 // МДж/м²/сут
}

// TimeSeries воспроизводит измеренный ряд день за днём, досчитывая ET0 по
// Харгривсу. Реализует domain.ClimateSupplier
type TimeSeries struct {
	site   Site
	rows   []Row
	cursor int
}

// NewTimeSeries создаёт поставщика из ряда. Ряд должен быть непустым,
// даты — строго последовательными сутками
func NewTimeSeries(site Site, rows []Row) (*TimeSeries, error) {
	if len(rows) == 0 {
		return nil, apperror.New(apperror.CodeClimateData, "climate series is empty")
	}
	for i := 1; i < len(rows); i++ {
		expected := rows[0].Date.AddDate(0, 0, i)
		if !sameDay(rows[i].Date, expected) {
			return nil, apperror.Newf(apperror.CodeClimateData,
				"climate series has a gap: row %d is %s, expected %s",
				i, rows[i].Date.Format(time.DateOnly), expected.Format(time.DateOnly))
		}
	}
	return &TimeSeries{site: site, rows: rows}, nil
}

// Next возвращает данные за следующие сутки и сдвигает курсор
func (ts *TimeSeries) Next() (domain.Drivers, error) {
	if ts.cursor >= len(ts.rows) {
		return domain.Drivers{}, ts.exhausted()
	}
	d := ts.drivers(ts.cursor)
	ts.cursor++
	return d, nil
}

// Peek возвращает данные через ahead суток, не сдвигая курсор. Выход за
// конец ряда — та же ошибка исчерпания, по которой движок укорачивает
// горизонт прогноза
func (ts *TimeSeries) Peek(ahead int) (domain.Drivers, error) {
	if ahead < 1 {
		return domain.Drivers{}, apperror.Newf(apperror.CodeInvalidArgument,
			"peek distance must be positive, got %d", ahead)
	}
	idx := ts.cursor + ahead - 1
	if idx >= len(ts.rows) {
		return domain.Drivers{}, ts.exhausted()
	}
	return ts.drivers(idx), nil
}

// Len возвращает длину ряда в сутках
func (ts *TimeSeries) Len() int {
	return len(ts.rows)
}

// Remaining возвращает число ещё не выданных суток
func (ts *TimeSeries) Remaining() int {
	return len(ts.rows) - ts.cursor
}

func (ts *TimeSeries) drivers(idx int) domain.Drivers {
	r := ts.rows[idx]
	return domain.Drivers{
		Date:           r.Date,
		Precipitation:  r.Precipitation,
		TempMax:        r.TempMax,
		TempMin:        r.TempMin,
		SolarRadiation: r.SolarRadiation,
		ReferenceET0:   HargreavesET0(r.TempMax, r.TempMin, ts.site.Latitude, r.Date.YearDay()),
	}
}

func (ts *TimeSeries) exhausted() error {
	first := ts.rows[0].Date
	last := ts.rows[len(ts.rows)-1].Date
	return apperror.Newf(apperror.CodeDataExhausted,
		"climate series exhausted after %d days", len(ts.rows)).
		WithDetails("first", first.Format(time.DateOnly)).
		WithDetails("last", last.Format(time.DateOnly))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
