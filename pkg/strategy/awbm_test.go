package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAWBM_DryDayNoRunoff(t *testing.T) {
	m := DefaultAWBM()

	// Пустые накопители при испарении остаются пустыми
	assert.Zero(t, m.Step(0, 5))
	assert.Zero(t, m.Step(0, 5))
}

func TestAWBM_StormAndRecession(t *testing.T) {
	m := DefaultAWBM()

	// Ливень 20 мм на пустые накопители: переполнение
	// 19.866*0.3 + 19.567*0.7 = 19.6567 мм, из него в первые сутки выходит
	// 0.35^2 + 0.65*0.1 = 18.75%
	first := m.Step(20, 0)
	assert.InDelta(t, 3.68563125, first, 1e-6)

	// Сухие сутки: накопители стока опорожняются по рецессии
	second := m.Step(0, 0)
	assert.InDelta(t, 2.7150816875, second, 1e-6)
	assert.Less(t, second, first)
}

func TestAWBM_InterceptionBelowCapacity(t *testing.T) {
	m := AWBM{
		C1: 10, C2: 10, C3: 10,
		A1: 0.3, A2: 0.3, A3: 0.4,
		BaseflowCoeff: 0.35, SurfaceCoeff: 0.1,
	}

	// Осадки меньше ёмкости целиком перехватываются
	assert.Zero(t, m.Step(6, 0))

	// Второй день переливает: избыток (6+6-10)=2 мм с каждого накопителя,
	// сток 2*0.1875 = 0.375 мм
	assert.InDelta(t, 0.375, m.Step(6, 0), 1e-9)
}

func TestAWBM_EvaporationDrainsStores(t *testing.T) {
	m := AWBM{
		C1: 10, C2: 10, C3: 10,
		A1: 0.3, A2: 0.3, A3: 0.4,
		BaseflowCoeff: 0.35, SurfaceCoeff: 0.1,
	}

	m.Step(8, 0)
	// Испарение опустошает накопители, следующий дождь перехватывается заново
	m.Step(0, 8)
	assert.Zero(t, m.Step(6, 0))
}

func TestAWBM_Validate(t *testing.T) {
	m := DefaultAWBM()
	assert.NoError(t, m.Validate())

	m = DefaultAWBM()
	m.C2 = -1
	assert.ErrorContains(t, m.Validate(), "capacities")

	m = DefaultAWBM()
	m.A1, m.A2, m.A3 = 0.5, 0.3, 0.3
	assert.ErrorContains(t, m.Validate(), "sum to 1")

	m = DefaultAWBM()
	m.A1, m.A2, m.A3 = -0.2, 0.6, 0.6
	assert.ErrorContains(t, m.Validate(), "non-negative")

	m = DefaultAWBM()
	m.BaseflowCoeff = 1.5
	assert.ErrorContains(t, m.Validate(), "baseflow")

	m = DefaultAWBM()
	m.SurfaceCoeff = -0.1
	assert.ErrorContains(t, m.Validate(), "surface")
}
