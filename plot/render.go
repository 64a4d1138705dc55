package plot

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/wcharczuk/go-chart/v2"
)

const (
	chartHeight = 400
	minWidth    = 512
	barWidth    = 40
	barSpacing  = 30
)

// Render draws one facet as a PNG: bars of group means for Bar, or every
// point over its x label for Points.
func Render(w io.Writer, facet Facet, opts Options) error {
	if len(facet.Points) == 0 {
		return fmt.Errorf("facet %q has no points", facet.Label)
	}

	if opts.Kind == Points {
		return renderPoints(w, facet, opts)
	}
	return renderBars(w, facet, opts)
}

func renderBars(w io.Writer, facet Facet, opts Options) error {
	summaries := Summarize(facet.Points, []string{opts.ColorBy})

	bars := make([]chart.Value, 0, len(summaries))
	lo, hi := 0.0, 0.0
	for _, s := range summaries {
		label := s.XLabel
		if opts.ColorBy != "" {
			label = fmt.Sprintf("%s (%s)", label, s.Keys[columnName(opts.ColorBy)])
		}
		bars = append(bars, chart.Value{Label: label, Value: s.Mean})

		spread := s.SEM
		if math.IsNaN(spread) {
			spread = 0
		}
		lo = math.Min(lo, s.Mean-spread)
		hi = math.Max(hi, s.Mean+spread)
	}

	graph := chart.BarChart{
		Title:      facet.Label,
		Height:     chartHeight,
		Width:      chartWidth(len(bars), barWidth+barSpacing),
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		XAxis:      chart.Style{},
		YAxis: chart.YAxis{
			Name:  opts.YScale.Label(),
			Range: paddedRange(lo, hi),
		},
		Bars: bars,
	}

	return graph.Render(chart.PNG, w)
}

func renderPoints(w io.Writer, facet Facet, opts Options) error {
	// One x position per label, in sorted order
	labelSet := make(map[string]struct{})
	for _, p := range facet.Points {
		labelSet[p.XLabel] = struct{}{}
	}
	labels := make([]string, 0, len(labelSet))
	for l := range labelSet {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	position := make(map[string]float64, len(labels))
	ticks := make([]chart.Tick, 0, len(labels)+2)
	ticks = append(ticks, chart.Tick{Value: 0})
	for i, l := range labels {
		position[l] = float64(i + 1)
		ticks = append(ticks, chart.Tick{Value: float64(i + 1), Label: l})
	}
	ticks = append(ticks, chart.Tick{Value: float64(len(labels) + 1)})

	// One series per color value
	colorCol := columnName(opts.ColorBy)
	seriesByColor := make(map[string]*chart.ContinuousSeries)
	colors := make([]string, 0)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, p := range facet.Points {
		c := p.Keys[colorCol]
		s, exists := seriesByColor[c]
		if !exists {
			s = &chart.ContinuousSeries{
				Name:  c,
				Style: chart.Style{StrokeWidth: chart.Disabled, DotWidth: 5},
			}
			seriesByColor[c] = s
			colors = append(colors, c)
		}
		s.XValues = append(s.XValues, position[p.XLabel])
		s.YValues = append(s.YValues, p.Value)

		lo = math.Min(lo, p.Value)
		hi = math.Max(hi, p.Value)
	}
	sort.Strings(colors)

	series := make([]chart.Series, 0, len(colors))
	for _, c := range colors {
		series = append(series, *seriesByColor[c])
	}

	graph := chart.Chart{
		Title:  facet.Label,
		Height: chartHeight,
		Width:  chartWidth(len(labels), barWidth+barSpacing),
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: float64(len(labels) + 1)},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:  opts.YScale.Label(),
			Range: paddedRange(lo, hi),
		},
		Series: series,
	}

	if opts.ColorBy != "" {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}

	return graph.Render(chart.PNG, w)
}

func chartWidth(n, per int) int {
	if w := 2*per + n*per; w > minWidth {
		return w
	}
	return minWidth
}

// paddedRange widens [lo, hi] by a tenth so nothing sits on the frame, and
// never returns an empty range.
func paddedRange(lo, hi float64) *chart.ContinuousRange {
	pad := (hi - lo) / 10
	if pad == 0 {
		pad = 1
	}
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}
