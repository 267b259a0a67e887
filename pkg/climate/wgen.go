package climate

import (
	"math"
	"math/rand"
	"time"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// Сутки в году для годовой гармоники и её пик: разгар лета северного
// полушария; для южного пик сдвинут на полгода
const (
	daysPerYear  = 365.25
	harmonicPeak = 200.0
)

var monthNames = [12]string{
	"jan", "feb", "mar", "apr", "may", "jun",
	"jul", "aug", "sep", "oct", "nov", "dec",
}

// Params параметры стохастического генератора погоды: месячная цепь Маркова
// осадков с гамма-распределением количества и годовые гармоники температуры
// и радиации с раздельными средними для сухих и дождливых суток
type Params struct {
	PWW   [12]float64 // вероятность дождя после дождливых суток
	PWD   [12]float64 // вероятность дождя после сухих суток
	Alpha [12]float64 // форма гамма-распределения осадков
	Beta  [12]float64 // масштаб гамма-распределения осадков, мм

	TxmD  float64 // среднее tmax сухих суток, °C
	ATx   float64 // амплитуда годовой гармоники tmax
	TxmW  float64 // среднее tmax дождливых суток, °C
	Tn    float64 // среднее tmin, °C
	ATn   float64 // амплитуда годовой гармоники tmin
	CVTx  float64 // коэффициент вариации tmax
	ACVTx float64 // амплитуда вариации tmax
	CVTn  float64 // коэффициент вариации tmin
	ACVTn float64 // амплитуда вариации tmin

	RmD float64 // средняя радиация сухих суток, МДж/м²/сут
	Ar  float64 // амплитуда годовой гармоники радиации
	RmW float64 // средняя радиация дождливых суток, МДж/м²/сут

	Latitude float64 // широта площадки, градусы
	Seed     int64   // зерно генератора: одинаковое зерно — одинаковый ряд
}

// Validate проверяет месячные параметры на допустимость
func (p *Params) Validate() error {
	for m := 0; m < 12; m++ {
		if p.PWW[m] < 0 || p.PWW[m] > 1 {
			return apperror.Newf(apperror.CodeClimateData,
				"pww for %s is %g, must be within [0, 1]", monthNames[m], p.PWW[m])
		}
		if p.PWD[m] < 0 || p.PWD[m] > 1 {
			return apperror.Newf(apperror.CodeClimateData,
				"pwd for %s is %g, must be within [0, 1]", monthNames[m], p.PWD[m])
		}
		if p.Alpha[m] <= 0 {
			return apperror.Newf(apperror.CodeClimateData,
				"alpha for %s is %g, must be positive", monthNames[m], p.Alpha[m])
		}
		if p.Beta[m] <= 0 {
			return apperror.Newf(apperror.CodeClimateData,
				"beta for %s is %g, must be positive", monthNames[m], p.Beta[m])
		}
	}
	return nil
}

// Generator стохастический поставщик погоды. Реализует domain.ClimateSupplier;
// Peek наперёд генерирует будущие сутки в буфер, поэтому порядок вызовов
// Next и Peek не влияет на получаемый ряд
type Generator struct {
	params Params
	rng    *rand.Rand
	peak   float64

	date   time.Time
	wet    bool
	buffer []domain.Drivers
}

// NewGenerator создаёт генератор с началом ряда в start
func NewGenerator(params Params, start time.Time) (*Generator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if start.IsZero() {
		return nil, apperror.New(apperror.CodeInvalidArgument, "start date is required")
	}
	peak := harmonicPeak
	if params.Latitude < 0 {
		peak -= daysPerYear / 2
	}
	return &Generator{
		params: params,
		rng:    rand.New(rand.NewSource(params.Seed)),
		peak:   peak,
		date:   start,
	}, nil
}

// Next возвращает погоду следующих суток и сдвигает курсор
func (g *Generator) Next() (domain.Drivers, error) {
	if len(g.buffer) > 0 {
		d := g.buffer[0]
		g.buffer = g.buffer[1:]
		return d, nil
	}
	return g.generateDay(), nil
}

// Peek возвращает погоду через ahead суток, не сдвигая курсор.
// Генератор не исчерпывается: ряд бесконечен
func (g *Generator) Peek(ahead int) (domain.Drivers, error) {
	if ahead < 1 {
		return domain.Drivers{}, apperror.Newf(apperror.CodeInvalidArgument,
			"peek distance must be positive, got %d", ahead)
	}
	for len(g.buffer) < ahead {
		g.buffer = append(g.buffer, g.generateDay())
	}
	return g.buffer[ahead-1], nil
}

func (g *Generator) generateDay() domain.Drivers {
	doy := g.date.YearDay()
	m := int(g.date.Month()) - 1

	// Цепь Маркова первого порядка: вероятность дождя зависит от вчерашнего дня
	p := g.params.PWD[m]
	if g.wet {
		p = g.params.PWW[m]
	}
	wet := g.rng.Float64() < p

	precip := 0.0
	if wet {
		precip = g.gamma(g.params.Alpha[m]) * g.params.Beta[m]
	}

	tmaxMean := g.params.TxmD
	solarMean := g.params.RmD
	if wet {
		tmaxMean = g.params.TxmW
		solarMean = g.params.RmW
	}

	// Сезонный ход плюс остатки, масштабированные сезонным коэффициентом
	// вариации; дождливые сутки холоднее и пасмурнее через свои средние
	tmax := g.harmonic(doy, tmaxMean, g.params.ATx)
	tmin := g.harmonic(doy, g.params.Tn, g.params.ATn)
	cvx := g.harmonic(doy, g.params.CVTx, g.params.ACVTx)
	cvn := g.harmonic(doy, g.params.CVTn, g.params.ACVTn)
	tmax += g.rng.NormFloat64() * math.Abs(cvx*tmaxMean)
	tmin += g.rng.NormFloat64() * math.Abs(cvn*g.params.Tn)

	solar := g.harmonic(doy, solarMean, g.params.Ar) +
		g.rng.NormFloat64()*0.1*math.Abs(solarMean)
	solar = max(0, solar)

	d := domain.Drivers{
		Date:           g.date,
		Precipitation:  precip,
		TempMax:        tmax,
		TempMin:        tmin,
		SolarRadiation: solar,
		ReferenceET0:   HargreavesET0(tmax, tmin, g.params.Latitude, doy),
	}

	g.wet = wet
	g.date = g.date.AddDate(0, 0, 1)
	return d
}

// harmonic возвращает значение годовой гармоники в сутках doy
func (g *Generator) harmonic(doy int, mean, amplitude float64) float64 {
	return mean + amplitude*math.Cos(2*math.Pi*(float64(doy)-g.peak)/daysPerYear)
}

// gamma возвращает выборку Gamma(shape, 1) методом Марсальи-Цанга;
// форма меньше единицы поднимается с поправкой степенью равномерной величины
func (g *Generator) gamma(shape float64) float64 {
	if shape < 1 {
		u := g.rng.Float64()
		return g.gamma(shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)
	for {
		x := g.rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := g.rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
