package plot

import (
	"math"
	"sort"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the points sharing an x label and key values.
type Summary struct {
	XLabel string
	Keys   map[string]string
	Mean   float64
	Std    float64
	Count  int
	SEM    float64
}

// Summarize groups points by x label plus the given key columns. Std is the
// sample standard deviation, so a group of one has an undefined (NaN) Std
// and SEM.
func Summarize(points []Point, keys []string) []Summary {
	type bucket struct {
		summary Summary
		values  []float64
	}

	usable := make([]string, 0, len(keys))
	for _, k := range keys {
		if k != "" {
			usable = append(usable, columnName(k))
		}
	}

	buckets := make(map[string]*bucket)
	order := make([]string, 0)
	for _, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}

		parts := []string{p.XLabel}
		for _, k := range usable {
			parts = append(parts, p.Keys[k])
		}
		id := strings.Join(parts, "\x00")

		b, exists := buckets[id]
		if !exists {
			b = &bucket{summary: Summary{XLabel: p.XLabel, Keys: make(map[string]string, len(usable))}}
			for _, k := range usable {
				b.summary.Keys[k] = p.Keys[k]
			}
			buckets[id] = b
			order = append(order, id)
		}
		b.values = append(b.values, p.Value)
	}

	sort.Strings(order)

	out := make([]Summary, 0, len(order))
	for _, id := range order {
		b := buckets[id]
		s := b.summary
		s.Count = len(b.values)
		s.Mean = stat.Mean(b.values, nil)
		s.Std = math.NaN()
		if s.Count > 1 {
			s.Std, _ = stats.StandardDeviationSample(stats.Float64Data(b.values))
		}
		s.SEM = s.Std / math.Sqrt(float64(s.Count))
		out = append(out, s)
	}

	return out
}

// Facet is the subset of points drawn on one chart.
type Facet struct {
	Label  string
	Points []Point
}

// Facets splits points by the facet row and column values. Labels read
// "row=value, col=value". Without facet columns there is one unlabeled
// facet holding everything.
func Facets(points []Point, opts Options) []Facet {
	keys := opts.facetKeys()
	if len(keys) == 0 {
		return []Facet{{Points: points}}
	}

	byLabel := make(map[string]*Facet)
	labels := make([]string, 0)
	for _, p := range points {
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+p.Keys[k])
		}
		label := strings.Join(parts, ", ")

		f, exists := byLabel[label]
		if !exists {
			f = &Facet{Label: label}
			byLabel[label] = f
			labels = append(labels, label)
		}
		f.Points = append(f.Points, p)
	}

	sort.Strings(labels)

	out := make([]Facet, 0, len(labels))
	for _, l := range labels {
		out = append(out, *byLabel[l])
	}

	return out
}
