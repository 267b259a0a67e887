package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

func TestMunicipal_ConstantDemand(t *testing.T) {
	m, err := NewMunicipal(50000, 0.25)
	require.NoError(t, err)

	// Спрос не зависит ни от климата, ни от горизонта
	v, err := m.Request(domain.Drivers{ReferenceET0: 9})
	require.NoError(t, err)
	assert.Equal(t, 12500.0, v)

	v, err = m.Peek(domain.Drivers{}, 5)
	require.NoError(t, err)
	assert.Equal(t, 12500.0, v)
}

func TestMunicipal_Validation(t *testing.T) {
	_, err := NewMunicipal(-1, 0.25)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))

	_, err = NewMunicipal(50000, -0.1)
	require.Error(t, err)

	m, err := NewMunicipal(50000, 0.25)
	require.NoError(t, err)
	_, err = m.Peek(domain.Drivers{}, 0)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))
}

func TestAgriculture_TracksET0(t *testing.T) {
	a, err := NewAgriculture(2e6, 1.2)
	require.NoError(t, err)

	// 1.2 * 5 мм * 2 км² = 12000 м³
	v, err := a.Request(domain.Drivers{ReferenceET0: 5})
	require.NoError(t, err)
	assert.InDelta(t, 12000, v, 1e-9)

	// Прогноз считается по климату будущих суток
	v, err = a.Peek(domain.Drivers{ReferenceET0: 8}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 19200, v, 1e-9)

	// Без испаряемости полив не нужен
	v, err = a.Request(domain.Drivers{})
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestAgriculture_Validation(t *testing.T) {
	_, err := NewAgriculture(-1, 1.2)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))

	_, err = NewAgriculture(2e6, -0.5)
	require.Error(t, err)

	a, err := NewAgriculture(2e6, 1.2)
	require.NoError(t, err)
	_, err = a.Peek(domain.Drivers{}, -3)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidArgument))
}
