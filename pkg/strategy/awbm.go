package strategy

import (
	"math"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// AWBM трёхъёмкостная модель осадки-сток: три поверхностных накопителя с
// частичными площадями дают сток переполнения, который маршрутизируется
// через накопители базисного и поверхностного стока с линейной рецессией
type AWBM struct {
	C1, C2, C3 float64 // ёмкости поверхностных накопителей, мм
	A1, A2, A3 float64 // частичные площади накопителей, доли единицы

	BaseflowCoeff float64 // доля переполнения в базисный сток и его рецессия
	SurfaceCoeff  float64 // рецессия поверхностного стока

	s1, s2, s3 float64 // уровни поверхностных накопителей, мм
	baseStore  float64 // накопитель базисного стока, мм
	surfStore  float64 // накопитель поверхностного стока, мм
}

// DefaultAWBM параметры по умолчанию
func DefaultAWBM() AWBM {
	return AWBM{
		C1: 0.134, C2: 0.433, C3: 0.433,
		A1: 0.3, A2: 0.3, A3: 0.4,
		BaseflowCoeff: 0.35, SurfaceCoeff: 0.1,
	}
}

// Validate проверяет параметры модели
func (m *AWBM) Validate() error {
	if m.C1 < 0 || m.C2 < 0 || m.C3 < 0 {
		return apperror.Newf(apperror.CodeInvalidArgument,
			"store capacities must be non-negative, got %g, %g, %g", m.C1, m.C2, m.C3)
	}
	if m.A1 < 0 || m.A2 < 0 || m.A3 < 0 {
		return apperror.Newf(apperror.CodeInvalidArgument,
			"partial areas must be non-negative, got %g, %g, %g", m.A1, m.A2, m.A3)
	}
	if sum := m.A1 + m.A2 + m.A3; math.Abs(sum-1) > domain.Epsilon {
		return apperror.Newf(apperror.CodeInvalidArgument,
			"partial areas must sum to 1, got %g", sum)
	}
	if m.BaseflowCoeff < 0 || m.BaseflowCoeff > 1 {
		return apperror.Newf(apperror.CodeInvalidArgument,
			"baseflow coefficient must be within [0, 1], got %g", m.BaseflowCoeff)
	}
	if m.SurfaceCoeff < 0 || m.SurfaceCoeff > 1 {
		return apperror.Newf(apperror.CodeInvalidArgument,
			"surface coefficient must be within [0, 1], got %g", m.SurfaceCoeff)
	}
	return nil
}

// Step выполняет сутки модели: принимает эффективные осадки (дождь плюс
// талая вода) и испаряемость, возвращает слой стока, мм
func (m *AWBM) Step(precip, et0 float64) float64 {
	excess := storeExcess(m.s1, precip, et0, m.C1, m.A1) +
		storeExcess(m.s2, precip, et0, m.C2, m.A2) +
		storeExcess(m.s3, precip, et0, m.C3, m.A3)

	m.s1 = clampStore(m.s1+precip-et0, m.C1)
	m.s2 = clampStore(m.s2+precip-et0, m.C2)
	m.s3 = clampStore(m.s3+precip-et0, m.C3)

	m.baseStore += excess * m.BaseflowCoeff
	m.surfStore += excess * (1 - m.BaseflowCoeff)

	base := m.baseStore * m.BaseflowCoeff
	surf := m.surfStore * m.SurfaceCoeff
	m.baseStore -= base
	m.surfStore -= surf
	return base + surf
}

// storeExcess переполнение одного накопителя, взвешенное его частичной площадью
func storeExcess(store, precip, et0, capacity, area float64) float64 {
	if over := store + precip - et0 - capacity; over > 0 {
		return over * area
	}
	return 0
}

func clampStore(level, capacity float64) float64 {
	return min(capacity, max(0, level))
}
