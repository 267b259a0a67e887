package strategy

import (
	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// Municipal модель коммунального спроса: население на удельное потребление.
// Спрос постоянен и от климата не зависит
type Municipal struct {
	population float64
	perCapita  float64 // м³ на человека в сутки
}

// NewMunicipal создаёт модель для населения population с удельным
// потреблением perCapita м³/чел/сут
func NewMunicipal(population, perCapita float64) (*Municipal, error) {
	if population < 0 || perCapita < 0 {
		return nil, apperror.Newf(apperror.CodeInvalidArgument,
			"municipal parameters must be non-negative, got population %g, per-capita %g",
			population, perCapita)
	}
	return &Municipal{population: population, perCapita: perCapita}, nil
}

// Request возвращает суточный запрос, м³
func (m *Municipal) Request(_ domain.Drivers) (float64, error) {
	return m.population * m.perCapita, nil
}

// Peek спрос постоянен во времени
func (m *Municipal) Peek(_ domain.Drivers, ahead int) (float64, error) {
	if err := checkAhead(ahead); err != nil {
		return 0, err
	}
	return m.population * m.perCapita, nil
}

// Agriculture модель оросительного спроса: культурный коэффициент на
// испаряемость суток и орошаемую площадь
type Agriculture struct {
	area float64 // орошаемая площадь, м²
	kc   float64 // культурный коэффициент, безразмерный
}

// NewAgriculture создаёт модель для площади area м² с коэффициентом kc
func NewAgriculture(area, kc float64) (*Agriculture, error) {
	if area < 0 || kc < 0 {
		return nil, apperror.Newf(apperror.CodeInvalidArgument,
			"agriculture parameters must be non-negative, got area %g, kc %g", area, kc)
	}
	return &Agriculture{area: area, kc: kc}, nil
}

// Request возвращает суточный запрос по испаряемости суток d, м³
func (a *Agriculture) Request(d domain.Drivers) (float64, error) {
	return a.demand(d), nil
}

// Peek прогнозирует запрос по климату будущих суток d
func (a *Agriculture) Peek(d domain.Drivers, ahead int) (float64, error) {
	if err := checkAhead(ahead); err != nil {
		return 0, err
	}
	return a.demand(d), nil
}

// demand переводит слой транспирации культуры в объём на всю площадь
func (a *Agriculture) demand(d domain.Drivers) float64 {
	return a.kc * d.ReferenceET0 * a.area / 1000
}
