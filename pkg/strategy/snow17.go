package strategy

import "github.com/jlillywh/hydrosim/pkg/apperror"

// Snow17 упрощённая модель снегонакопления и таяния: осадки делятся на
// дождь и снег по среднесуточной температуре, запас тает пропорционально
// градусо-дням выше нуля
type Snow17 struct {
	MeltFactor float64 // градусо-дневной коэффициент таяния, мм/°C/сут
	RainTemp   float64 // порог среднесуточной температуры дождя, °C
	SnowTemp   float64 // порог среднесуточной температуры снега, °C

	pack float64 // водный эквивалент снежного покрова, мм
}

// DefaultSnow17 параметры по умолчанию для умеренного водосбора
func DefaultSnow17() Snow17 {
	return Snow17{MeltFactor: 2.5, RainTemp: 2.0, SnowTemp: 0.0}
}

// Validate проверяет параметры модели
func (m *Snow17) Validate() error {
	if m.MeltFactor < 0 {
		return apperror.Newf(apperror.CodeInvalidArgument,
			"melt factor must be non-negative, got %g", m.MeltFactor)
	}
	if m.RainTemp <= m.SnowTemp {
		return apperror.Newf(apperror.CodeInvalidArgument,
			"rain threshold %g must exceed snow threshold %g", m.RainTemp, m.SnowTemp)
	}
	return nil
}

// Step выполняет сутки модели: делит осадки precip по среднесуточной
// температуре, накапливает снег и возвращает дождь и талую воду, мм.
// Между порогами доли дождя и снега интерполируются линейно
func (m *Snow17) Step(precip, tmax, tmin float64) (rain, melt float64) {
	tavg := (tmax + tmin) / 2

	var snow float64
	switch {
	case tavg <= m.SnowTemp:
		snow = precip
	case tavg >= m.RainTemp:
		rain = precip
	default:
		frac := (tavg - m.SnowTemp) / (m.RainTemp - m.SnowTemp)
		rain = precip * frac
		snow = precip * (1 - frac)
	}
	m.pack += snow

	// Таяние идёт только при положительной среднесуточной температуре
	// и не превышает накопленный запас
	if tavg > 0 {
		melt = min(m.MeltFactor*tavg, m.pack)
		m.pack -= melt
	}
	return rain, melt
}

// Snowpack возвращает текущий водный эквивалент покрова, мм
func (m *Snow17) Snowpack() float64 { return m.pack }
