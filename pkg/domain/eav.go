package domain

import (
	"sort"

	"github.com/jlillywh/hydrosim/pkg/apperror"
)

// EAVPoint точка батиметрической таблицы отметка-площадь-объём
type EAVPoint struct {
	Elevation float64 // отметка уровня, м
	Area      float64 // площадь зеркала, м²
	Volume    float64 // объём, м³
}

// EAVTable монотонная таблица батиметрии водохранилища. Интерполяция линейная;
// за пределами таблицы либо линейная экстраполяция по крайнему сегменту,
// либо ошибка TABLE_RANGE, в зависимости от флага extrapolate.
type EAVTable struct {
	points      []EAVPoint
	extrapolate bool
}

// NewEAVTable строит таблицу из точек. Требуются минимум две точки,
// строго возрастающие объём и отметка, неотрицательная неубывающая площадь.
func NewEAVTable(points []EAVPoint, extrapolate bool) (*EAVTable, error) {
	if len(points) < 2 {
		return nil, apperror.New(apperror.CodeInvalidArgument,
			"elevation-area-volume table needs at least two points")
	}

	sorted := make([]EAVPoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Volume < sorted[j].Volume })

	for i := range sorted {
		if sorted[i].Area < 0 {
			return nil, apperror.Newf(apperror.CodeInvalidArgument,
				"elevation-area-volume table: negative area %g at point %d", sorted[i].Area, i)
		}
		if i == 0 {
			continue
		}
		if sorted[i].Volume <= sorted[i-1].Volume {
			return nil, apperror.Newf(apperror.CodeInvalidArgument,
				"elevation-area-volume table: volume not strictly increasing at point %d", i)
		}
		if sorted[i].Elevation <= sorted[i-1].Elevation {
			return nil, apperror.Newf(apperror.CodeInvalidArgument,
				"elevation-area-volume table: elevation not strictly increasing at point %d", i)
		}
		if sorted[i].Area < sorted[i-1].Area {
			return nil, apperror.Newf(apperror.CodeInvalidArgument,
				"elevation-area-volume table: area decreasing at point %d", i)
		}
	}

	return &EAVTable{points: sorted, extrapolate: extrapolate}, nil
}

// MinVolume возвращает нижнюю границу таблицы
func (t *EAVTable) MinVolume() float64 {
	return t.points[0].Volume
}

// MaxVolume возвращает верхнюю границу таблицы
func (t *EAVTable) MaxVolume() float64 {
	return t.points[len(t.points)-1].Volume
}

// AreaAt возвращает площадь зеркала при объёме volume, м²
func (t *EAVTable) AreaAt(volume float64) (float64, error) {
	return t.byVolume(volume, func(p EAVPoint) float64 { return p.Area })
}

// ElevationAt возвращает отметку уровня при объёме volume, м
func (t *EAVTable) ElevationAt(volume float64) (float64, error) {
	return t.byVolume(volume, func(p EAVPoint) float64 { return p.Elevation })
}

// VolumeAt возвращает объём при отметке elevation, м³
func (t *EAVTable) VolumeAt(elevation float64) (float64, error) {
	n := len(t.points)
	first, last := t.points[0], t.points[n-1]

	if elevation < first.Elevation || elevation > last.Elevation {
		if !t.extrapolate {
			return 0, apperror.Newf(apperror.CodeTableRange,
				"elevation %g outside table range [%g, %g]", elevation, first.Elevation, last.Elevation)
		}
		if elevation < first.Elevation {
			return extrapolateLinear(elevation,
				first.Elevation, t.points[1].Elevation, first.Volume, t.points[1].Volume), nil
		}
		return extrapolateLinear(elevation,
			t.points[n-2].Elevation, last.Elevation, t.points[n-2].Volume, last.Volume), nil
	}

	i := sort.Search(n, func(i int) bool { return t.points[i].Elevation >= elevation })
	if i == 0 {
		return first.Volume, nil
	}
	lo, hi := t.points[i-1], t.points[i]
	return interpolateLinear(elevation, lo.Elevation, hi.Elevation, lo.Volume, hi.Volume), nil
}

// byVolume интерполирует выбранную координату по объёму
func (t *EAVTable) byVolume(volume float64, pick func(EAVPoint) float64) (float64, error) {
	n := len(t.points)
	first, last := t.points[0], t.points[n-1]

	if volume < first.Volume || volume > last.Volume {
		if !t.extrapolate {
			return 0, apperror.Newf(apperror.CodeTableRange,
				"volume %g outside table range [%g, %g]", volume, first.Volume, last.Volume)
		}
		if volume < first.Volume {
			return extrapolateLinear(volume,
				first.Volume, t.points[1].Volume, pick(first), pick(t.points[1])), nil
		}
		return extrapolateLinear(volume,
			t.points[n-2].Volume, last.Volume, pick(t.points[n-2]), pick(last)), nil
	}

	i := sort.Search(n, func(i int) bool { return t.points[i].Volume >= volume })
	if i == 0 {
		return pick(first), nil
	}
	lo, hi := t.points[i-1], t.points[i]
	return interpolateLinear(volume, lo.Volume, hi.Volume, pick(lo), pick(hi)), nil
}

func interpolateLinear(x, x0, x1, y0, y1 float64) float64 {
	if FloatEquals(x0, x1) {
		return y0
	}
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

// extrapolateLinear продолжает крайний сегмент за пределы таблицы
func extrapolateLinear(x, x0, x1, y0, y1 float64) float64 {
	return interpolateLinear(x, x0, x1, y0, y1)
}
