package export

import (
	"context"
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/jlillywh/hydrosim/pkg/engine"
)

// PDFExporter экспортёр PDF отчётов
type PDFExporter struct {
	BaseExporter
}

// NewPDFExporter создаёт новый экспортёр
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Format возвращает формат экспортёра
func (g *PDFExporter) Format() string {
	return FormatPDF
}

// Стили
var (
	// Цвета
	primaryColor   = &props.Color{Red: 52, Green: 152, Blue: 219}  // #3498db
	headerBgColor  = &props.Color{Red: 44, Green: 62, Blue: 80}    // #2c3e50
	successColor   = &props.Color{Red: 39, Green: 174, Blue: 96}   // #27ae60
	warningColor   = &props.Color{Red: 243, Green: 156, Blue: 18}  // #f39c12
	dangerColor    = &props.Color{Red: 231, Green: 76, Blue: 60}   // #e74c3c
	lightGrayColor = &props.Color{Red: 236, Green: 240, Blue: 241} // #ecf0f1
	darkGrayColor  = &props.Color{Red: 127, Green: 140, Blue: 141} // #7f8c8d

	// Стили текста
	titleStyle = props.Text{
		Size:  24,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: headerBgColor,
	}

	h2Style = props.Text{
		Size:  16,
		Style: fontstyle.Bold,
		Color: headerBgColor,
		Top:   5,
	}

	h3Style = props.Text{
		Size:  12,
		Style: fontstyle.Bold,
		Color: darkGrayColor,
		Top:   3,
	}

	normalStyle = props.Text{
		Size: 10,
	}

	boldStyle = props.Text{
		Size:  10,
		Style: fontstyle.Bold,
	}

	smallStyle = props.Text{
		Size:  8,
		Color: darkGrayColor,
	}

	metricValueStyle = props.Text{
		Size:  20,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: primaryColor,
	}

	metricLabelStyle = props.Text{
		Size:  9,
		Align: align.Center,
		Color: darkGrayColor,
	}

	tableHeaderStyle = &props.Cell{
		BackgroundColor: primaryColor,
	}

	tableHeaderTextStyle = props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
		Align: align.Center,
	}

	tableCellStyle = &props.Cell{
		BorderType:  border.Bottom,
		BorderColor: lightGrayColor,
	}

	tableCellTextStyle = props.Text{
		Size:  9,
		Align: align.Center,
	}
)

// Export генерирует PDF отчёт
func (g *PDFExporter) Export(ctx context.Context, results *engine.Results) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber().
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		Build()

	m := maroto.New(cfg)

	g.addHeader(m, results)
	g.addRunInfo(m, results)
	g.addDeliveryTable(m, results.Summary)
	g.addStorageTable(m, results.Summary)
	g.addWarnings(m, results)
	g.addFooter(m)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return doc.GetBytes(), nil
}

func (g *PDFExporter) addHeader(m core.Maroto, results *engine.Results) {
	m.AddRow(15,
		text.NewCol(12, g.Title(results), titleStyle),
	)

	m.AddRow(5,
		line.NewCol(12),
	)

	// Метаданные
	m.AddRow(6,
		text.NewCol(6, fmt.Sprintf("Run: %s", results.RunID), smallStyle),
		text.NewCol(6, fmt.Sprintf("Generated: %s", time.Now().Format("2006-01-02 15:04:05")),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Right}),
	)

	m.AddRow(8) // Отступ
}

func (g *PDFExporter) addRunInfo(m core.Maroto, results *engine.Results) {
	g.addSection(m, "Run Summary")

	// Главные метрики
	if results.Summary != nil {
		g.addMetricCards(m, []metricCard{
			{Label: "Total Cost", Value: g.FormatFloat(results.Summary.TotalCost, 2), Highlight: true},
			{Label: "Timesteps", Value: fmt.Sprintf("%d", results.Timesteps)},
			{Label: "Cache Hits", Value: fmt.Sprintf("%d", results.Summary.CacheHits)},
		})
		m.AddRow(5)
	}

	items := []keyValue{
		{"Network", results.Network},
		{"Status", string(results.Status)},
		{"Started", g.FormatTimestamp(results.StartedAt)},
		{"Finished", g.FormatTimestamp(results.FinishedAt)},
		{"Planned Timesteps", fmt.Sprintf("%d", results.PlannedTimesteps)},
	}
	if results.Summary != nil {
		items = append(items, keyValue{"Solve Time", g.FormatDuration(results.Summary.SolveTime)})
	}
	g.addKeyValueTable(m, items)
}

func (g *PDFExporter) addDeliveryTable(m core.Maroto, s *engine.Summary) {
	rows := deliveryRows(s)
	if len(rows) == 0 {
		return
	}

	g.addSection(m, "Delivery")

	// Заголовок
	m.AddRow(8,
		text.NewCol(2, "Demand", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Requested", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Delivered", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Deficit", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Reliability", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(2, "Deficit Days", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
	)

	// Данные (ограничиваем количество для PDF)
	maxRows := 30
	for i, row := range rows {
		if i >= maxRows {
			m.AddRow(6,
				text.NewCol(12, fmt.Sprintf("... and %d more rows", len(rows)-maxRows), smallStyle),
			)
			break
		}

		reliabilityStyle := tableCellTextStyle
		switch {
		case row.Reliability >= 0.999:
			reliabilityStyle.Color = successColor
		case row.Reliability >= 0.9:
			reliabilityStyle.Color = warningColor
		default:
			reliabilityStyle.Color = dangerColor
		}

		m.AddRow(6,
			text.NewCol(2, row.ID, tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, g.FormatFloat(row.Requested, 2), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, g.FormatFloat(row.Delivered, 2), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, g.FormatFloat(row.Deficit, 2), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(2, g.FormatPercent(row.Reliability), reliabilityStyle).WithStyle(tableCellStyle),
			text.NewCol(2, fmt.Sprintf("%d", row.DeficitDays), tableCellTextStyle).WithStyle(tableCellStyle),
		)
	}
}

func (g *PDFExporter) addStorageTable(m core.Maroto, s *engine.Summary) {
	rows := storageRows(s)
	if len(rows) == 0 {
		return
	}

	g.addSection(m, "Storage")

	// Заголовок
	m.AddRow(8,
		text.NewCol(3, "Reservoir", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(3, "Min Level", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(3, "Max Level", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
		text.NewCol(3, "Final Level", tableHeaderTextStyle).WithStyle(tableHeaderStyle),
	)

	for _, row := range rows {
		m.AddRow(6,
			text.NewCol(3, row.ID, tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(3, g.FormatFloat(row.Min, 2), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(3, g.FormatFloat(row.Max, 2), tableCellTextStyle).WithStyle(tableCellStyle),
			text.NewCol(3, g.FormatFloat(row.Final, 2), tableCellTextStyle).WithStyle(tableCellStyle),
		)
	}
}

func (g *PDFExporter) addWarnings(m core.Maroto, results *engine.Results) {
	if len(results.Warnings) == 0 {
		return
	}

	m.AddRow(8)
	g.addSubSection(m, "Warnings")

	for _, warn := range results.Warnings {
		m.AddRow(6,
			text.NewCol(12, warn.Error(), props.Text{Size: 9, Color: warningColor}),
		)
	}
}

// === Вспомогательные методы ===

type metricCard struct {
	Label     string
	Value     string
	Highlight bool
}

func (g *PDFExporter) addMetricCards(m core.Maroto, cards []metricCard) {
	if len(cards) == 0 {
		return
	}

	colSize := 12 / len(cards)
	if colSize < 2 {
		colSize = 2
	}

	var cols []core.Col
	for _, card := range cards {
		valueStyle := metricValueStyle
		if !card.Highlight {
			valueStyle.Size = 14
		}

		cols = append(cols,
			col.New(colSize).Add(
				text.New(card.Value, valueStyle),
				text.New(card.Label, metricLabelStyle),
			),
		)
	}

	m.AddRow(20, cols...)
}

type keyValue struct {
	Key   string
	Value string
}

func (g *PDFExporter) addKeyValueTable(m core.Maroto, items []keyValue) {
	for _, item := range items {
		m.AddRow(6,
			text.NewCol(6, item.Key, boldStyle),
			text.NewCol(6, item.Value, normalStyle),
		)
	}
}

func (g *PDFExporter) addSection(m core.Maroto, title string) {
	m.AddRow(10,
		text.NewCol(12, title, h2Style),
	)
	m.AddRow(2,
		line.NewCol(12, props.Line{Color: primaryColor}),
	)
	m.AddRow(5)
}

func (g *PDFExporter) addSubSection(m core.Maroto, title string) {
	m.AddRow(8,
		text.NewCol(12, title, h3Style),
	)
}

func (g *PDFExporter) addFooter(m core.Maroto) {
	m.AddRow(10)
	m.AddRow(2,
		line.NewCol(12, props.Line{Color: lightGrayColor}),
	)
	m.AddRow(6,
		text.NewCol(12,
			fmt.Sprintf("Generated by HydroSim | %s", time.Now().Format("2006-01-02 15:04:05")),
			props.Text{Size: 8, Color: darkGrayColor, Align: align.Center},
		),
	)
}
