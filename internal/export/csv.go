package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/jlillywh/hydrosim/pkg/engine"
)

// CSVExporter экспортёр CSV отчётов
type CSVExporter struct {
	BaseExporter
}

// NewCSVExporter создаёт новый экспортёр
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Format возвращает формат экспортёра
func (g *CSVExporter) Format() string {
	return FormatCSV
}

// csvWriter обёртка для отслеживания ошибок
type csvWriter struct {
	w   *csv.Writer
	err error
}

func (cw *csvWriter) Write(record []string) {
	if cw.err != nil {
		return
	}
	cw.err = cw.w.Write(record)
}

func (cw *csvWriter) Flush() {
	if cw.err != nil {
		return
	}
	cw.w.Flush()
	cw.err = cw.w.Error()
}

func (cw *csvWriter) Error() error {
	return cw.err
}

// Export генерирует CSV отчёт
func (g *CSVExporter) Export(ctx context.Context, results *engine.Results) ([]byte, error) {
	var buf bytes.Buffer
	cw := &csvWriter{w: csv.NewWriter(&buf)}

	g.writeRun(cw, results)
	g.writeSummary(cw, results.Summary)
	g.writeDelivery(cw, results.Summary)
	g.writeStorage(cw, results.Summary)
	g.writeBalance(cw, results.Summary)
	g.writeTimeseries(cw, results.Records)
	g.writeWarnings(cw, results)

	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("csv write error: %w", err)
	}

	return buf.Bytes(), nil
}

func (g *CSVExporter) writeRun(w *csvWriter, results *engine.Results) {
	w.Write([]string{"# " + g.Title(results)})
	w.Write([]string{""})

	w.Write([]string{"Run Info"})
	w.Write([]string{"Run ID", results.RunID})
	w.Write([]string{"Network", results.Network})
	w.Write([]string{"Status", string(results.Status)})
	w.Write([]string{"Started", g.FormatTimestamp(results.StartedAt)})
	w.Write([]string{"Finished", g.FormatTimestamp(results.FinishedAt)})
	w.Write([]string{"Planned Timesteps", fmt.Sprintf("%d", results.PlannedTimesteps)})
	w.Write([]string{"Timesteps", fmt.Sprintf("%d", results.Timesteps)})
	w.Write([]string{""})
}

func (g *CSVExporter) writeSummary(w *csvWriter, s *engine.Summary) {
	w.Write([]string{"Run Summary"})
	if s == nil {
		w.Write([]string{"No summary data"})
		w.Write([]string{""})
		return
	}

	w.Write([]string{"Total Cost", g.FormatFloat(s.TotalCost, 2)})
	w.Write([]string{"Solve Time", g.FormatDuration(s.SolveTime)})
	w.Write([]string{"Cache Hits", fmt.Sprintf("%d", s.CacheHits)})
	w.Write([]string{""})
}

func (g *CSVExporter) writeDelivery(w *csvWriter, s *engine.Summary) {
	rows := deliveryRows(s)
	if len(rows) == 0 {
		return
	}

	w.Write([]string{"Delivery"})
	w.Write([]string{"Demand", "Requested", "Delivered", "Deficit", "Reliability", "Deficit Days"})
	for _, row := range rows {
		w.Write([]string{
			row.ID,
			g.FormatFloat(row.Requested, 2),
			g.FormatFloat(row.Delivered, 2),
			g.FormatFloat(row.Deficit, 2),
			g.FormatPercent(row.Reliability),
			fmt.Sprintf("%d", row.DeficitDays),
		})
	}
	w.Write([]string{""})
}

func (g *CSVExporter) writeStorage(w *csvWriter, s *engine.Summary) {
	rows := storageRows(s)
	if len(rows) == 0 {
		return
	}

	w.Write([]string{"Storage"})
	w.Write([]string{"Reservoir", "Min Level", "Max Level", "Final Level"})
	for _, row := range rows {
		w.Write([]string{
			row.ID,
			g.FormatFloat(row.Min, 2),
			g.FormatFloat(row.Max, 2),
			g.FormatFloat(row.Final, 2),
		})
	}
	w.Write([]string{""})
}

func (g *CSVExporter) writeBalance(w *csvWriter, s *engine.Summary) {
	rows := balanceRows(s)
	if len(rows) == 0 {
		return
	}

	w.Write([]string{"Water Balance"})
	w.Write([]string{"Node", "Inflow", "Spill", "Evaporation"})
	for _, row := range rows {
		if row.Inflow <= 0.001 && row.Spill <= 0.001 && row.Evaporation <= 0.001 {
			continue
		}
		w.Write([]string{
			row.ID,
			g.FormatFloat(row.Inflow, 2),
			g.FormatFloat(row.Spill, 2),
			g.FormatFloat(row.Evaporation, 2),
		})
	}
	w.Write([]string{""})
}

func (g *CSVExporter) writeTimeseries(w *csvWriter, records []*engine.Record) {
	if len(records) == 0 {
		return
	}

	flows := flowKeys(records)
	levels := levelKeys(records)

	w.Write([]string{"Timeseries"})

	header := []string{"Date", "Timestep", "Precipitation", "Temp Max", "Temp Min", "ET0"}
	for _, id := range flows {
		header = append(header, "Flow "+id)
	}
	for _, id := range levels {
		header = append(header, "Level "+id)
	}
	header = append(header, "Cost")
	w.Write(header)

	for _, rec := range records {
		row := []string{
			g.FormatDate(rec.Date),
			fmt.Sprintf("%d", rec.Timestep),
			g.FormatFloat(rec.Precipitation, 2),
			g.FormatFloat(rec.TempMax, 2),
			g.FormatFloat(rec.TempMin, 2),
			g.FormatFloat(rec.ET0, 2),
		}
		for _, id := range flows {
			row = append(row, g.FormatFloat(rec.Flows[id], 2))
		}
		for _, id := range levels {
			row = append(row, g.FormatFloat(rec.Levels[id], 2))
		}
		row = append(row, g.FormatFloat(rec.Cost, 2))
		w.Write(row)
	}
	w.Write([]string{""})
}

func (g *CSVExporter) writeWarnings(w *csvWriter, results *engine.Results) {
	if len(results.Warnings) == 0 {
		return
	}

	w.Write([]string{"Warnings"})
	for _, warn := range results.Warnings {
		w.Write([]string{warn.Error()})
	}
}
