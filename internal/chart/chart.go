// Package chart renders portfolio and ticker series as PNG line charts.
// The rest of the system only supplies (date, value) pairs; nothing here
// knows about users, tickers or the ledger.
package chart

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/talkai/tickerbot/internal/models"
)

// Series is one named line on a chart
type Series struct {
	Name   string
	Points []models.ValuePoint
}

var seriesColors = []drawing.Color{
	drawing.ColorFromHex("2563eb"), // blue
	drawing.ColorFromHex("dc2626"), // red
	drawing.ColorFromHex("16a34a"), // green
}

// Render draws one or more value series as a PNG line chart.
// Every series needs at least 2 points.
func Render(series []Series, title string) ([]byte, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no series to render")
	}

	chartSeries := make([]chart.Series, 0, len(series))
	for i, s := range series {
		if len(s.Points) < 2 {
			return nil, fmt.Errorf("series %q needs at least 2 data points, got %d", s.Name, len(s.Points))
		}

		xValues := make([]time.Time, len(s.Points))
		yValues := make([]float64, len(s.Points))
		for j, p := range s.Points {
			xValues[j] = p.Date
			yValues[j], _ = p.Value.Float64()
		}

		chartSeries = append(chartSeries, chart.TimeSeries{
			Name: s.Name,
			Style: chart.Style{
				StrokeColor: seriesColors[i%len(seriesColors)],
				StrokeWidth: 2.0,
			},
			XValues: xValues,
			YValues: yValues,
		})
	}

	graph := chart.Chart{
		Title:  title,
		Width:  800,
		Height: 640,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("02 Jan")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.2f", f)
				}
				return ""
			},
		},
		Series: chartSeries,
	}

	if len(series) > 1 {
		graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// TitleRange formats the customary "<name> from <start> to <end>" title
func TitleRange(name string, start, end time.Time) string {
	return fmt.Sprintf("%s from %s to %s", name, start.Format("02 Jan 2006"), end.Format("02 Jan 2006"))
}
