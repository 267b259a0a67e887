// Package strategy реализует подключаемые стратегии притока и модели
// водопотребления для узлов сети: воспроизведение временных рядов,
// гидрологическую цепочку снеготаяния и осадки-стока, демографический
// и оросительный спрос. Все типы поддерживают предпросмотр будущих
// суток для планирования с горизонтом.
package strategy

import "github.com/jlillywh/hydrosim/pkg/apperror"

// checkAhead проверяет дистанцию предпросмотра
func checkAhead(ahead int) error {
	if ahead < 1 {
		return apperror.Newf(apperror.CodeInvalidArgument,
			"peek distance must be positive, got %d", ahead)
	}
	return nil
}
