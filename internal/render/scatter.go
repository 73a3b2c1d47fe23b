package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/MikeSquared-Agency/Frontier/internal/frontier"
)

var ErrNoPlans = errors.New("no plans to plot")

var (
	frontierColor = drawing.ColorBlue
	offColor      = drawing.ColorFromHex("9e9e9e")
)

// Scatter writes a cost-vs-accuracy PNG of plans to w. Frontier members are drawn in blue,
// everything else in grey, and each point is labelled with its plan id.
func Scatter(w io.Writer, title string, plans []frontier.Summary) error {
	if len(plans) == 0 {
		return ErrNoPlans
	}

	var on, off struct{ xs, ys []float64 }
	labels := make([]chart.Value2, 0, len(plans))
	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range plans {
		if p.OnFrontier {
			on.xs, on.ys = append(on.xs, p.Cost), append(on.ys, p.Accuracy)
		} else {
			off.xs, off.ys = append(off.xs, p.Cost), append(off.ys, p.Accuracy)
		}
		labels = append(labels, chart.Value2{XValue: p.Cost, YValue: p.Accuracy, Label: strconv.FormatInt(int64(p.ID), 10)})
		minX, maxX = math.Min(minX, p.Cost), math.Max(maxX, p.Cost)
		minY, maxY = math.Min(minY, p.Accuracy), math.Max(maxY, p.Accuracy)
	}

	var series []chart.Series
	if len(off.xs) > 0 {
		series = append(series, dots("explored", off.xs, off.ys, offColor))
	}
	if len(on.xs) > 0 {
		series = append(series, dots("frontier", on.xs, on.ys, frontierColor))
	}
	series = append(series, chart.AnnotationSeries{Annotations: labels})

	graph := chart.Chart{
		Title:  title,
		Width:  1000,
		Height: 600,
		XAxis: chart.XAxis{
			Name:  "Cost ($)",
			Range: padded(minX, maxX),
		},
		YAxis: chart.YAxis{
			Name:  "Accuracy",
			Range: padded(minY, maxY),
		},
		Series: series,
	}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render scatter: %w", err)
	}
	return nil
}

// SaveScatter renders plans to a PNG file at path, creating parent directories.
func SaveScatter(path, title string, plans []frontier.Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}
	if err := Scatter(f, title, plans); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func dots(name string, xs, ys []float64, color drawing.Color) chart.ContinuousSeries {
	return chart.ContinuousSeries{
		Name: name,
		Style: chart.Style{
			StrokeWidth: chart.Disabled,
			DotWidth:    5,
			DotColor:    color,
		},
		XValues: xs,
		YValues: ys,
	}
}

// padded widens [lo, hi] by 5% each side. A zero-width range gets 10% of its value (at least 0.5) each side.
func padded(lo, hi float64) *chart.ContinuousRange {
	span := hi - lo
	if span == 0 {
		span = math.Max(math.Abs(lo)*0.2, 1)
		return &chart.ContinuousRange{Min: lo - span/2, Max: hi + span/2}
	}
	return &chart.ContinuousRange{Min: lo - span*0.05, Max: hi + span*0.05}
}
