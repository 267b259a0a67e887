package domain

import "time"

// Drivers суточный набор климатических данных, общий вход шага симуляции
type Drivers struct {
	Date           time.Time
	Precipitation  float64 // мм/сут
	TempMax        float64 // °C
	TempMin        float64 // °C
	SolarRadiation float64 // МДж/м²/сут
	ReferenceET0   float64 // мм/сут
}

// ClimateSupplier поставщик суточных климатических данных.
// Реализации: воспроизведение временного ряда или стохастический генератор.
type ClimateSupplier interface {
	// Next возвращает данные за следующие сутки и сдвигает курсор.
	// Исчерпание ряда сигнализируется ошибкой с кодом DATA_EXHAUSTED.
	Next() (Drivers, error)
	// Peek возвращает данные через ahead суток (ahead >= 1), не сдвигая курсор.
	Peek(ahead int) (Drivers, error)
}

// InflowStrategy стратегия генерации притока для Source-узла
type InflowStrategy interface {
	// Generate возвращает приток за текущие сутки, м³, и сдвигает курсор
	Generate(d Drivers) (float64, error)
	// Peek возвращает приток через ahead суток (ahead >= 1), не сдвигая курсор.
	// d содержит климат тех будущих суток.
	Peek(d Drivers, ahead int) (float64, error)
}

// DemandStrategy модель водопотребления для Demand-узла
type DemandStrategy interface {
	// Request возвращает запрошенный объём за текущие сутки, м³, и сдвигает курсор
	Request(d Drivers) (float64, error)
	// Peek возвращает запрос через ahead суток (ahead >= 1), не сдвигая курсор
	Peek(d Drivers, ahead int) (float64, error)
}
