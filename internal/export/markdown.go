package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jlillywh/hydrosim/pkg/engine"
)

// MarkdownExporter экспортёр Markdown отчётов
type MarkdownExporter struct {
	BaseExporter
}

// NewMarkdownExporter создаёт новый экспортёр
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{}
}

// Format возвращает формат экспортёра
func (g *MarkdownExporter) Format() string {
	return FormatMarkdown
}

// Export генерирует Markdown отчёт
func (g *MarkdownExporter) Export(ctx context.Context, results *engine.Results) ([]byte, error) {
	var buf bytes.Buffer

	g.writeHeader(&buf, results)
	g.writeSummary(&buf, results.Summary)
	g.writeDelivery(&buf, results.Summary)
	g.writeStorage(&buf, results.Summary)
	g.writeBalance(&buf, results.Summary)
	g.writeWarnings(&buf, results)
	g.writeFooter(&buf)

	return buf.Bytes(), nil
}

func (g *MarkdownExporter) writeHeader(buf *bytes.Buffer, results *engine.Results) {
	buf.WriteString(fmt.Sprintf("# %s\n\n", g.Title(results)))

	// Метаданные
	buf.WriteString("## Run Information\n\n")
	buf.WriteString(fmt.Sprintf("- **Run ID:** %s\n", results.RunID))
	buf.WriteString(fmt.Sprintf("- **Network:** %s\n", results.Network))
	buf.WriteString(fmt.Sprintf("- **Status:** %s\n", results.Status))
	buf.WriteString(fmt.Sprintf("- **Started:** %s\n", g.FormatTimestamp(results.StartedAt)))
	buf.WriteString(fmt.Sprintf("- **Finished:** %s\n", g.FormatTimestamp(results.FinishedAt)))
	buf.WriteString(fmt.Sprintf("- **Timesteps:** %d of %d planned\n", results.Timesteps, results.PlannedTimesteps))

	buf.WriteString("\n---\n\n")
}

func (g *MarkdownExporter) writeSummary(buf *bytes.Buffer, s *engine.Summary) {
	if s == nil {
		buf.WriteString("*No summary data available*\n\n")
		return
	}

	buf.WriteString("## Run Summary\n\n")
	buf.WriteString(fmt.Sprintf("- **Total Cost:** %.2f\n", s.TotalCost))
	buf.WriteString(fmt.Sprintf("- **Solve Time:** %s\n", g.FormatDuration(s.SolveTime)))
	buf.WriteString(fmt.Sprintf("- **Cache Hits:** %d\n", s.CacheHits))
	buf.WriteString("\n")
}

func (g *MarkdownExporter) writeDelivery(buf *bytes.Buffer, s *engine.Summary) {
	rows := deliveryRows(s)
	if len(rows) == 0 {
		return
	}

	buf.WriteString("## Delivery\n\n")
	buf.WriteString("| Demand | Requested | Delivered | Deficit | Reliability | Deficit Days |\n")
	buf.WriteString("|--------|-----------|-----------|---------|-------------|--------------|\n")
	for _, row := range rows {
		buf.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.2f | %.1f%% | %d |\n",
			row.ID, row.Requested, row.Delivered, row.Deficit, row.Reliability*100, row.DeficitDays))
	}
	buf.WriteString("\n")
}

func (g *MarkdownExporter) writeStorage(buf *bytes.Buffer, s *engine.Summary) {
	rows := storageRows(s)
	if len(rows) == 0 {
		return
	}

	buf.WriteString("## Storage\n\n")
	buf.WriteString("| Reservoir | Min Level | Max Level | Final Level |\n")
	buf.WriteString("|-----------|-----------|-----------|-------------|\n")
	for _, row := range rows {
		buf.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.2f |\n",
			row.ID, row.Min, row.Max, row.Final))
	}
	buf.WriteString("\n")
}

func (g *MarkdownExporter) writeBalance(buf *bytes.Buffer, s *engine.Summary) {
	rows := balanceRows(s)
	if len(rows) == 0 {
		return
	}

	buf.WriteString("## Water Balance\n\n")
	buf.WriteString("| Node | Inflow | Spill | Evaporation |\n")
	buf.WriteString("|------|--------|-------|-------------|\n")
	for _, row := range rows {
		if row.Inflow <= 0.001 && row.Spill <= 0.001 && row.Evaporation <= 0.001 {
			continue
		}
		buf.WriteString(fmt.Sprintf("| %s | %.2f | %.2f | %.2f |\n",
			row.ID, row.Inflow, row.Spill, row.Evaporation))
	}
	buf.WriteString("\n")
}

func (g *MarkdownExporter) writeWarnings(buf *bytes.Buffer, results *engine.Results) {
	if len(results.Warnings) == 0 {
		return
	}

	buf.WriteString("## Warnings\n\n")
	for _, warn := range results.Warnings {
		buf.WriteString(fmt.Sprintf("- %s\n", warn.Error()))
	}
	buf.WriteString("\n")
}

func (g *MarkdownExporter) writeFooter(buf *bytes.Buffer) {
	buf.WriteString("\n---\n\n")
	buf.WriteString("*Report generated automatically by HydroSim*\n")
	buf.WriteString(fmt.Sprintf("*%s*\n", time.Now().Format("2006-01-02 15:04:05")))
}
