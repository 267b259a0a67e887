package export

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jlillywh/hydrosim/pkg/engine"
)

// JSONExporter экспортёр JSON отчётов
type JSONExporter struct {
	BaseExporter

	pretty bool
}

// NewJSONExporter создаёт новый экспортёр
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{pretty: pretty}
}

// Format возвращает формат экспортёра
func (g *JSONExporter) Format() string {
	return FormatJSON
}

// jsonReport структура JSON отчёта
type jsonReport struct {
	Metadata jsonMetadata    `json:"metadata"`
	Run      *engine.Results `json:"run"`
}

type jsonMetadata struct {
	Tool        string `json:"tool"`
	Version     string `json:"version"`
	Title       string `json:"title"`
	GeneratedAt string `json:"generated_at"`
}

// Export генерирует JSON отчёт
func (g *JSONExporter) Export(ctx context.Context, results *engine.Results) ([]byte, error) {
	report := jsonReport{
		Metadata: jsonMetadata{
			Tool:        "hydrosim",
			Version:     "1.0",
			Title:       g.Title(results),
			GeneratedAt: time.Now().Format(time.RFC3339),
		},
		Run: results,
	}

	if g.pretty {
		return json.MarshalIndent(report, "", "  ")
	}
	return json.Marshal(report)
}
