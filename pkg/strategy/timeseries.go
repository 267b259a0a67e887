package strategy

import (
	"github.com/jlillywh/hydrosim/pkg/apperror"
	"github.com/jlillywh/hydrosim/pkg/domain"
)

// series курсор по заранее заданному ряду суточных объёмов
type series struct {
	values []float64
	cursor int
	label  string
}

func newSeries(values []float64, label string) (series, error) {
	if len(values) == 0 {
		return series{}, apperror.Newf(apperror.CodeInvalidArgument,
			"%s series is empty", label)
	}
	for i, v := range values {
		if v < 0 {
			return series{}, apperror.Newf(apperror.CodeInvalidArgument,
				"%s series holds a negative value %g at index %d", label, v, i)
		}
	}
	return series{values: values, label: label}, nil
}

func (s *series) next() (float64, error) {
	if s.cursor >= len(s.values) {
		return 0, s.exhausted()
	}
	v := s.values[s.cursor]
	s.cursor++
	return v, nil
}

func (s *series) peek(ahead int) (float64, error) {
	if err := checkAhead(ahead); err != nil {
		return 0, err
	}
	idx := s.cursor + ahead - 1
	if idx >= len(s.values) {
		return 0, s.exhausted()
	}
	return s.values[idx], nil
}

func (s *series) exhausted() *apperror.Error {
	return apperror.Newf(apperror.CodeDataExhausted,
		"%s series exhausted after %d days", s.label, len(s.values))
}

// TimeSeries стратегия притока, воспроизводящая заданный ряд объёмов.
// Конец ряда, в том числе при предпросмотре, сигнализируется ошибкой
// с кодом DATA_EXHAUSTED
type TimeSeries struct {
	series
}

// NewTimeSeries создаёт стратегию по ряду суточных объёмов притока, м³
func NewTimeSeries(values []float64) (*TimeSeries, error) {
	s, err := newSeries(values, "inflow")
	if err != nil {
		return nil, err
	}
	return &TimeSeries{series: s}, nil
}

// Generate возвращает следующий объём ряда; климат не используется
func (s *TimeSeries) Generate(_ domain.Drivers) (float64, error) {
	return s.next()
}

// Peek возвращает объём через ahead суток, не сдвигая курсор
func (s *TimeSeries) Peek(_ domain.Drivers, ahead int) (float64, error) {
	return s.peek(ahead)
}

// TimeSeriesDemand модель спроса, воспроизводящая заданный ряд запросов
type TimeSeriesDemand struct {
	series
}

// NewTimeSeriesDemand создаёт модель по ряду суточных запросов, м³
func NewTimeSeriesDemand(values []float64) (*TimeSeriesDemand, error) {
	s, err := newSeries(values, "demand")
	if err != nil {
		return nil, err
	}
	return &TimeSeriesDemand{series: s}, nil
}

// Request возвращает следующий запрос ряда; климат не используется
func (s *TimeSeriesDemand) Request(_ domain.Drivers) (float64, error) {
	return s.next()
}

// Peek возвращает запрос через ahead суток, не сдвигая курсор
func (s *TimeSeriesDemand) Peek(_ domain.Drivers, ahead int) (float64, error) {
	return s.peek(ahead)
}
