// Package export выгружает результаты прогонов в файлы отчётов.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jlillywh/hydrosim/pkg/config"
	"github.com/jlillywh/hydrosim/pkg/engine"
)

// Поддерживаемые форматы выгрузки.
const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatExcel    = "xlsx"
	FormatMarkdown = "markdown"
	FormatPDF      = "pdf"
)

// Exporter интерфейс выгрузки результатов прогона
type Exporter interface {
	Export(ctx context.Context, results *engine.Results) ([]byte, error)
	Format() string
}

// New создаёт экспортёр по конфигурации
func New(cfg *config.ExportConfig) (Exporter, error) {
	switch strings.ToLower(cfg.Format) {
	case FormatCSV:
		return NewCSVExporter(), nil
	case FormatJSON:
		return NewJSONExporter(cfg.Pretty), nil
	case FormatExcel, "excel":
		return NewExcelExporter(), nil
	case FormatMarkdown, "md":
		return NewMarkdownExporter(), nil
	case FormatPDF:
		return NewPDFExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %q", cfg.Format)
	}
}

// Write выгружает прогон в каталог dir, имя файла строится из идентификатора прогона
func Write(ctx context.Context, exp Exporter, dir string, results *engine.Results) (string, error) {
	data, err := exp.Export(ctx, results)
	if err != nil {
		return "", fmt.Errorf("failed to export run %s: %w", results.RunID, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	name := results.RunID
	if name == "" {
		name = "run"
	}
	path := filepath.Join(dir, name+"."+fileExt(exp.Format()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}

// fileExt возвращает расширение файла для формата
func fileExt(format string) string {
	if format == FormatMarkdown {
		return "md"
	}
	return format
}

// BaseExporter базовые утилиты для экспортёров
type BaseExporter struct{}

// Title возвращает заголовок отчёта
func (b *BaseExporter) Title(results *engine.Results) string {
	if results.Network != "" {
		return fmt.Sprintf("Water Allocation Report: %s", results.Network)
	}
	return "Water Allocation Report"
}

// FormatFloat форматирует число с заданной точностью
func (b *BaseExporter) FormatFloat(v float64, precision int) string {
	return fmt.Sprintf("%.*f", precision, v)
}

// FormatPercent форматирует долю как процент
func (b *BaseExporter) FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// FormatDuration форматирует длительность
func (b *BaseExporter) FormatDuration(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)
	if ms < 1000 {
		return fmt.Sprintf("%.2f ms", ms)
	}
	return fmt.Sprintf("%.2f s", ms/1000)
}

// FormatTimestamp форматирует время
func (b *BaseExporter) FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// FormatDate форматирует дату шага симуляции
func (b *BaseExporter) FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// ColName преобразует индекс колонки в буквенное обозначение (0 -> A, 25 -> Z, 26 -> AA)
func ColName(index int) string {
	result := ""
	for {
		result = string(rune('A'+index%26)) + result
		index = index/26 - 1
		if index < 0 {
			break
		}
	}
	return result
}

// Cell возвращает адрес ячейки
func Cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

// CellByIndex возвращает адрес ячейки по индексам
func CellByIndex(colIndex, rowIndex int) string {
	return fmt.Sprintf("%s%d", ColName(colIndex), rowIndex)
}
