package climate

import "math"

const (
	// Солнечная постоянная, МДж/м²/мин (FAO-56)
	solarConstant = 0.0820

	// Множитель суточной внеатмосферной радиации, 24*60/π * Gsc
	solarFluxFactor = 24 * 60 * solarConstant / math.Pi

	// Пересчёт радиации в слой испарённой воды: МДж/м² -> мм
	radiationToDepth = 0.408

	// Эмпирический коэффициент Харгривса-Самани
	hargreavesCoeff = 0.0023
)

// ExtraterrestrialRadiation возвращает внеатмосферную радиацию Ra,
// МДж/м²/сут, по широте и номеру суток в году (FAO-56, уравнения 21-25).
// За полярным кругом зимой возвращается 0
func ExtraterrestrialRadiation(latitudeDeg float64, dayOfYear int) float64 {
	lat := latitudeDeg * math.Pi / 180
	j := float64(dayOfYear)

	// Относительное расстояние до Солнца и склонение
	dr := 1 + 0.033*math.Cos(2*math.Pi*j/365)
	decl := 0.409 * math.Sin(2*math.Pi*j/365-1.39)

	// Часовой угол заката; аргумент арккосинуса зажимается для полярных широт
	x := -math.Tan(lat) * math.Tan(decl)
	x = min(1, max(-1, x))
	ws := math.Acos(x)

	ra := solarFluxFactor * dr *
		(ws*math.Sin(lat)*math.Sin(decl) + math.Cos(lat)*math.Cos(decl)*math.Sin(ws))
	return max(0, ra)
}

// HargreavesET0 возвращает эталонную эвапотранспирацию, мм/сут, по
// температурным экстремумам (FAO-56, уравнение 52). Некорректный ход
// температур не ошибка данных климата: при tmax <= tmin возвращается 0
func HargreavesET0(tmax, tmin, latitudeDeg float64, dayOfYear int) float64 {
	ra := ExtraterrestrialRadiation(latitudeDeg, dayOfYear)
	tmean := (tmax + tmin) / 2
	trange := max(0, tmax-tmin)

	et0 := hargreavesCoeff * (tmean + 17.8) * math.Sqrt(trange) * radiationToDepth * ra
	return max(0, et0)
}
