package strategy

import (
	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// Hydrology стратегия притока через гидрологическую цепочку: Snow17 делит
// осадки на дождь и снеготаяние, AWBM превращает эффективные осадки в слой
// стока, площадь водосбора переводит слой в объём.
//
// Peek прогнозирует будущие сутки на копии состояния моделей, не трогая
// зафиксированное: дистанции запрашиваются последовательно начиная с единицы,
// Generate фиксирует очередные сутки и сбрасывает прогноз
type Hydrology struct {
	snow Snow17
	awbm AWBM
	area float64 // площадь водосбора, м²

	scratchSnow Snow17
	scratchAwbm AWBM
	peeked      []float64
}

// NewHydrology создаёт стратегию для водосбора площадью area м²
func NewHydrology(snow Snow17, awbm AWBM, area float64) (*Hydrology, error) {
	if area <= 0 {
		return nil, apperror.Newf(apperror.CodeInvalidArgument,
			"catchment area must be positive, got %g", area)
	}
	if err := snow.Validate(); err != nil {
		return nil, err
	}
	if err := awbm.Validate(); err != nil {
		return nil, err
	}
	return &Hydrology{snow: snow, awbm: awbm, area: area}, nil
}

// Generate возвращает приток за сутки d, м³, и фиксирует состояние моделей
func (h *Hydrology) Generate(d domain.Drivers) (float64, error) {
	depth := advance(&h.snow, &h.awbm, d)
	h.peeked = h.peeked[:0]
	return depth * h.area / 1000, nil
}

// Peek прогнозирует приток через ahead суток, м³. Копия состояния
// продвигается на сутки за вызов, поэтому дистанции должны запрашиваться
// по порядку; уже пройденные дистанции отдаются из кеша
func (h *Hydrology) Peek(d domain.Drivers, ahead int) (float64, error) {
	if err := checkAhead(ahead); err != nil {
		return 0, err
	}
	if ahead <= len(h.peeked) {
		return h.peeked[ahead-1], nil
	}
	if ahead != len(h.peeked)+1 {
		return 0, apperror.Newf(apperror.CodeInvalidArgument,
			"peek at distance %d requires distance %d first", ahead, len(h.peeked)+1)
	}
	if len(h.peeked) == 0 {
		h.scratchSnow, h.scratchAwbm = h.snow, h.awbm
	}
	volume := advance(&h.scratchSnow, &h.scratchAwbm, d) * h.area / 1000
	h.peeked = append(h.peeked, volume)
	return volume, nil
}

// Snowpack текущий зафиксированный водный эквивалент снежного покрова, мм
func (h *Hydrology) Snowpack() float64 { return h.snow.Snowpack() }

func advance(snow *Snow17, awbm *AWBM, d domain.Drivers) float64 {
	rain, melt := snow.Step(d.Precipitation, d.TempMax, d.TempMin)
	return awbm.Step(rain+melt, d.ReferenceET0)
}
