package charts

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"bilancio/internal/core"
)

// ErrNoData is returned when a report has nothing to plot.
var ErrNoData = errors.New("no data to plot")

const revenuesLabel = "Entrate"

// MonthBarChart renders a PNG bar chart with one bar per spending category
// and a final bar for the month's revenues.
func MonthBarChart(report core.MonthReport) ([]byte, error) {
	bars := make([]chart.Value, 0, len(report.ByCategory)+1)
	top := 0.0
	for _, cat := range report.ByCategory {
		if cat.Amount.Cents <= 0 {
			continue
		}
		v := cat.Amount.Euros()
		bars = append(bars, chart.Value{Label: cat.Name, Value: v})
		top = max(top, v)
	}
	if report.Revenues.Cents > 0 {
		v := report.Revenues.Euros()
		bars = append(bars, chart.Value{
			Label: revenuesLabel,
			Value: v,
			Style: chart.Style{FillColor: chart.ColorGreen, StrokeColor: chart.ColorGreen},
		})
		top = max(top, v)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	graph := chart.BarChart{
		Title:    fmt.Sprintf("Bilancio %s", report.Key()),
		Width:    1024,
		Height:   512,
		BarWidth: 60,
		Background: chart.Style{
			Padding:   chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f€", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	buffer := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buffer.Bytes(), nil
}
