package plot

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/carbocation/ddct"
)

var ntcPattern = regexp.MustCompile(`(?i)\bntc\b`)

// Point is one result row positioned on a chart.
type Point struct {
	SampleID string
	Gene     string
	XLabel   string
	Value    float64

	// Keys holds the row's value for every color and facet column.
	Keys map[string]string
}

// Prepare selects rows and computes plot values. Rows whose value is
// missing, including log2 of a zero fold change, are left out. It is an
// error when no selected row has a value at all.
func Prepare(results *ddct.Results, opts Options) ([]Point, error) {
	if results == nil {
		return nil, fmt.Errorf("no results to plot")
	}

	groupBy := opts.GroupBy
	if len(groupBy) == 0 {
		groupBy = []string{ddct.ColGene}
	}

	keep := make(map[string]struct{}, len(opts.Genes))
	for _, g := range opts.Genes {
		keep[g] = struct{}{}
	}

	keyCols := append(opts.facetKeys(), columnName(opts.ColorBy))

	out := make([]Point, 0, len(results.Rows))
	selected := 0
	for _, row := range results.Rows {
		if _, exists := keep[row.Gene]; len(keep) > 0 && !exists {
			continue
		}
		if opts.HideNTC && ntcPattern.MatchString(row.SampleID) {
			continue
		}
		selected++

		v, ok := plotValue(row, opts.YScale)
		if !ok {
			continue
		}

		labels := make([]string, 0, len(groupBy))
		for _, col := range groupBy {
			labels = append(labels, row.Label(columnName(col)))
		}

		keys := make(map[string]string, len(keyCols))
		for _, col := range keyCols {
			if col != "" {
				keys[col] = row.Label(col)
			}
		}

		out = append(out, Point{
			SampleID: row.SampleID,
			Gene:     row.Gene,
			XLabel:   strings.Join(labels, "_"),
			Value:    v,
			Keys:     keys,
		})
	}

	if len(out) == 0 {
		if selected == 0 {
			return nil, fmt.Errorf("no rows left to plot after filtering genes %v", opts.Genes)
		}
		return nil, fmt.Errorf("%s values not available. Ensure a reference condition is set and the analysis was run", opts.YScale.Label())
	}

	return out, nil
}

func plotValue(row ddct.ResultRow, scale YScale) (float64, bool) {
	switch scale {
	case DeltaDeltaCt:
		return row.Number(ddct.ColDeltaDeltaCt)
	case Log2FoldChange:
		fc, ok := row.Number(ddct.ColFoldChange)
		if !ok || fc <= 0 {
			return math.NaN(), false
		}
		return math.Log2(fc), true
	}

	return row.Number(ddct.ColFoldChange)
}
