// Package climate поставляет суточные климатические данные для симуляции:
// воспроизведение измеренного ряда и стохастический генератор погоды. Обе
// реализации досчитывают эталонную эвапотранспирацию по Харгривсу, чтобы
// каждый выданный набор был полным.
package climate

// Site географическая привязка площадки
type Site struct {
	Latitude  float64 // градусы, положительные на север
	Elevation float64 // метры над уровнем моря
}
