package plot

import (
	"fmt"
	"strings"
)

type YScale string

const (
	DeltaDeltaCt   YScale = "ddct"
	FoldChange     YScale = "foldchange"
	Log2FoldChange YScale = "log2foldchange"
)

// ParseYScale accepts the short names above and the column headings users
// see, such as "ΔΔCt" or "Fold Change". Empty means fold change.
func ParseYScale(s string) (YScale, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "") {
	case "", "foldchange", "fc":
		return FoldChange, nil
	case "ddct", "δδct":
		return DeltaDeltaCt, nil
	case "log2foldchange", "log2fc", "log₂(foldchange)":
		return Log2FoldChange, nil
	}

	return "", fmt.Errorf("unknown y scale %q (use ddct, foldchange or log2foldchange)", s)
}

// Label is the y-axis title for the scale.
func (y YScale) Label() string {
	switch y {
	case DeltaDeltaCt:
		return "ΔΔCt"
	case Log2FoldChange:
		return "log₂(Fold Change)"
	}
	return "Fold Change (2^-ΔΔCt)"
}

type Kind string

const (
	Bar    Kind = "bar"
	Points Kind = "points"
)

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bar":
		return Bar, nil
	case "points", "point", "box":
		return Points, nil
	}

	return "", fmt.Errorf("unknown plot kind %q (use bar or points)", s)
}

// Options choose what a chart shows. GroupBy columns are joined to form the
// x-axis label; FacetRow and FacetCol split the data into one chart per
// combination of their values.
type Options struct {
	Genes    []string `json:"genes"`
	GroupBy  []string `json:"group_by"`
	YScale   YScale   `json:"y_scale"`
	Kind     Kind     `json:"kind"`
	FacetCol string   `json:"facet_col"`
	FacetRow string   `json:"facet_row"`
	ColorBy  string   `json:"color_by"`
	HideNTC  bool     `json:"hide_ntc"`
}

// facetKeys are the facet columns in row, col order.
func (o Options) facetKeys() []string {
	out := make([]string, 0, 2)
	for _, k := range []string{o.FacetRow, o.FacetCol} {
		if k != "" {
			out = append(out, columnName(k))
		}
	}
	return out
}

// columnName maps the user-facing "Gene" heading onto the result column.
func columnName(s string) string {
	if s == "Gene" {
		return "gene"
	}
	return s
}
