package ctimport

import (
	"fmt"
	"sort"
	"strings"
)

// Layout names the header cells of an instrument's results table. Column
// names are compared after trimming and lower-casing.
type Layout struct {
	SampleColumn string
	TargetColumn string
	CtColumn     string
}

var Layouts = map[string]Layout{
	"QuantStudio": {
		SampleColumn: "sample name",
		TargetColumn: "target name",
		CtColumn:     "ct",
	},
	"CFX": {
		SampleColumn: "sample",
		TargetColumn: "target",
		CtColumn:     "cq",
	},
	"LongForm": {
		SampleColumn: "sample_id",
		TargetColumn: "gene",
		CtColumn:     "ct",
	},
}

// Layouts are tried in this order when detecting a header.
var layoutOrder = []string{"QuantStudio", "CFX", "LongForm"}

func LayoutNames() string {
	names := make([]string, 0, len(Layouts))
	for m := range Layouts {
		names = append(names, m)
	}
	sort.Strings(names)

	return strings.Join(names, ", ")
}

func LookupLayout(name string) (Layout, error) {
	l, exists := Layouts[name]
	if !exists {
		return l, fmt.Errorf("Layout %s is not found. Valid layout names include: %s", name, LayoutNames())
	}
	return l, nil
}

func normalizeCell(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// headerIndex maps normalized header cells to their column positions.
func headerIndex(row []string) map[string]int {
	out := make(map[string]int, len(row))
	for i, cell := range row {
		key := normalizeCell(cell)
		if key == "" {
			continue
		}
		if _, exists := out[key]; !exists {
			out[key] = i
		}
	}
	return out
}

// matchesHeader reports whether row looks like this layout's header: it
// must carry the sample and target columns. The Ct column is checked
// separately so that a header missing it gives a useful error.
func (l Layout) matchesHeader(row []string) bool {
	idx := headerIndex(row)
	_, hasSample := idx[l.SampleColumn]
	_, hasTarget := idx[l.TargetColumn]
	return hasSample && hasTarget
}

// missingColumns lists required columns absent from a header row.
func (l Layout) missingColumns(idx map[string]int) []string {
	missing := make([]string, 0)
	for _, col := range []string{l.SampleColumn, l.TargetColumn, l.CtColumn} {
		if _, exists := idx[col]; !exists {
			missing = append(missing, col)
		}
	}
	return missing
}

// DetectLayout finds the first row that is a header for some known layout.
// It returns the layout's name and the row index.
func DetectLayout(grid [][]string) (string, int, bool) {
	for i, row := range grid {
		for _, name := range layoutOrder {
			if Layouts[name].matchesHeader(row) {
				return name, i, true
			}
		}
	}
	return "", -1, false
}
