package export

import (
	"bytes"
	"context"

	"github.com/xuri/excelize/v2"

	"github.com/jlillywh/hydrosim/pkg/engine"
)

// ExcelExporter экспортёр Excel отчётов
type ExcelExporter struct {
	BaseExporter
}

// NewExcelExporter создаёт новый экспортёр
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// Format возвращает формат экспортёра
func (g *ExcelExporter) Format() string {
	return FormatExcel
}

// Export генерирует Excel отчёт
func (g *ExcelExporter) Export(ctx context.Context, results *engine.Results) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	g.writeSummarySheet(f, results)

	// Удаляем дефолтный лист
	f.DeleteSheet("Sheet1")

	if len(results.Records) > 0 {
		g.writeTimeseriesSheet(f, results.Records)
		g.writeTrajectorySheet(f, results.Records)
	}

	// Записываем в буфер
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (g *ExcelExporter) writeSummarySheet(f *excelize.File, results *engine.Results) {
	sheetName := "Summary"
	f.NewSheet(sheetName)

	// Стили
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	row := 1

	// Заголовок
	f.SetCellValue(sheetName, Cell("A", row), g.Title(results))
	f.MergeCell(sheetName, Cell("A", row), Cell("F", row))
	row += 2

	// Информация о прогоне
	f.SetCellValue(sheetName, Cell("A", row), "Run Info")
	f.SetCellStyle(sheetName, Cell("A", row), Cell("B", row), headerStyle)
	row++

	f.SetCellValue(sheetName, Cell("A", row), "Run ID")
	f.SetCellValue(sheetName, Cell("B", row), results.RunID)
	row++

	f.SetCellValue(sheetName, Cell("A", row), "Network")
	f.SetCellValue(sheetName, Cell("B", row), results.Network)
	row++

	f.SetCellValue(sheetName, Cell("A", row), "Status")
	f.SetCellValue(sheetName, Cell("B", row), string(results.Status))
	row++

	f.SetCellValue(sheetName, Cell("A", row), "Started")
	f.SetCellValue(sheetName, Cell("B", row), g.FormatTimestamp(results.StartedAt))
	row++

	f.SetCellValue(sheetName, Cell("A", row), "Timesteps")
	f.SetCellValue(sheetName, Cell("B", row), results.Timesteps)
	row++

	f.SetCellValue(sheetName, Cell("A", row), "Planned Timesteps")
	f.SetCellValue(sheetName, Cell("B", row), results.PlannedTimesteps)
	row += 2

	// Итоги прогона
	if results.Summary != nil {
		f.SetCellValue(sheetName, Cell("A", row), "Run Summary")
		f.SetCellStyle(sheetName, Cell("A", row), Cell("B", row), headerStyle)
		row++

		f.SetCellValue(sheetName, Cell("A", row), "Total Cost")
		f.SetCellValue(sheetName, Cell("B", row), results.Summary.TotalCost)
		row++

		f.SetCellValue(sheetName, Cell("A", row), "Solve Time")
		f.SetCellValue(sheetName, Cell("B", row), g.FormatDuration(results.Summary.SolveTime))
		row++

		f.SetCellValue(sheetName, Cell("A", row), "Cache Hits")
		f.SetCellValue(sheetName, Cell("B", row), results.Summary.CacheHits)
		row += 2
	}

	// Таблица поставок
	if rows := deliveryRows(results.Summary); len(rows) > 0 {
		f.SetCellValue(sheetName, Cell("A", row), "Delivery")
		f.SetCellStyle(sheetName, Cell("A", row), Cell("F", row), headerStyle)
		row++

		headers := []string{"Demand", "Requested", "Delivered", "Deficit", "Reliability", "Deficit Days"}
		for i, h := range headers {
			f.SetCellValue(sheetName, CellByIndex(i, row), h)
		}
		f.SetCellStyle(sheetName, Cell("A", row), Cell("F", row), headerStyle)
		row++

		for _, d := range rows {
			f.SetCellValue(sheetName, Cell("A", row), d.ID)
			f.SetCellValue(sheetName, Cell("B", row), d.Requested)
			f.SetCellValue(sheetName, Cell("C", row), d.Delivered)
			f.SetCellValue(sheetName, Cell("D", row), d.Deficit)
			f.SetCellValue(sheetName, Cell("E", row), d.Reliability)
			f.SetCellValue(sheetName, Cell("F", row), d.DeficitDays)
			row++
		}
		row++
	}

	// Таблица уровней
	if rows := storageRows(results.Summary); len(rows) > 0 {
		f.SetCellValue(sheetName, Cell("A", row), "Storage")
		f.SetCellStyle(sheetName, Cell("A", row), Cell("D", row), headerStyle)
		row++

		headers := []string{"Reservoir", "Min Level", "Max Level", "Final Level"}
		for i, h := range headers {
			f.SetCellValue(sheetName, CellByIndex(i, row), h)
		}
		f.SetCellStyle(sheetName, Cell("A", row), Cell("D", row), headerStyle)
		row++

		for _, s := range rows {
			f.SetCellValue(sheetName, Cell("A", row), s.ID)
			f.SetCellValue(sheetName, Cell("B", row), s.Min)
			f.SetCellValue(sheetName, Cell("C", row), s.Max)
			f.SetCellValue(sheetName, Cell("D", row), s.Final)
			row++
		}
		row++
	}

	// Водный баланс
	if rows := balanceRows(results.Summary); len(rows) > 0 {
		f.SetCellValue(sheetName, Cell("A", row), "Water Balance")
		f.SetCellStyle(sheetName, Cell("A", row), Cell("D", row), headerStyle)
		row++

		headers := []string{"Node", "Inflow", "Spill", "Evaporation"}
		for i, h := range headers {
			f.SetCellValue(sheetName, CellByIndex(i, row), h)
		}
		f.SetCellStyle(sheetName, Cell("A", row), Cell("D", row), headerStyle)
		row++

		for _, b := range rows {
			f.SetCellValue(sheetName, Cell("A", row), b.ID)
			f.SetCellValue(sheetName, Cell("B", row), b.Inflow)
			f.SetCellValue(sheetName, Cell("C", row), b.Spill)
			f.SetCellValue(sheetName, Cell("D", row), b.Evaporation)
			row++
		}
		row++
	}

	// Предупреждения
	if len(results.Warnings) > 0 {
		f.SetCellValue(sheetName, Cell("A", row), "Warnings")
		f.SetCellStyle(sheetName, Cell("A", row), Cell("B", row), headerStyle)
		row++

		for _, warn := range results.Warnings {
			f.SetCellValue(sheetName, Cell("A", row), warn.Error())
			row++
		}
	}

	f.SetColWidth(sheetName, "A", "F", 16)
}

func (g *ExcelExporter) writeTimeseriesSheet(f *excelize.File, records []*engine.Record) {
	sheetName := "Timeseries"
	f.NewSheet(sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	flows := flowKeys(records)

	headers := []string{"Date", "Timestep", "Precipitation", "Temp Max", "Temp Min", "ET0"}
	for _, id := range flows {
		headers = append(headers, "Flow "+id)
	}
	headers = append(headers, "Cost")

	for i, h := range headers {
		f.SetCellValue(sheetName, CellByIndex(i, 1), h)
	}
	f.SetCellStyle(sheetName, "A1", CellByIndex(len(headers)-1, 1), headerStyle)

	for i, rec := range records {
		row := i + 2
		values := []any{
			g.FormatDate(rec.Date),
			rec.Timestep,
			rec.Precipitation,
			rec.TempMax,
			rec.TempMin,
			rec.ET0,
		}
		for _, id := range flows {
			values = append(values, rec.Flows[id])
		}
		values = append(values, rec.Cost)

		for col, v := range values {
			f.SetCellValue(sheetName, CellByIndex(col, row), v)
		}
	}

	f.SetColWidth(sheetName, "A", ColName(len(headers)-1), 14)
}

func (g *ExcelExporter) writeTrajectorySheet(f *excelize.File, records []*engine.Record) {
	levels := levelKeys(records)
	if len(levels) == 0 {
		return
	}

	sheetName := "Storage Trajectory"
	f.NewSheet(sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	f.SetCellValue(sheetName, "A1", "Date")
	for i, id := range levels {
		f.SetCellValue(sheetName, CellByIndex(i+1, 1), id)
	}
	f.SetCellStyle(sheetName, "A1", CellByIndex(len(levels), 1), headerStyle)

	for i, rec := range records {
		row := i + 2
		f.SetCellValue(sheetName, Cell("A", row), g.FormatDate(rec.Date))
		for j, id := range levels {
			f.SetCellValue(sheetName, CellByIndex(j+1, row), rec.Levels[id])
		}
	}

	f.SetColWidth(sheetName, "A", ColName(len(levels)), 14)
}
