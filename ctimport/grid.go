package ctimport

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/carbocation/ddct"
)

// RunInfo carries whatever the instrument wrote above the results header.
type RunInfo struct {
	Metadata   map[string]string
	RunEndTime time.Time
}

// ParseResult is the content of one instrument export.
type ParseResult struct {
	SourceFile string
	Layout     string
	Records    []ddct.RawCtRecord
	Run        RunInfo
}

const runEndTimeKey = "experiment run end time"

// parseGrid turns a table of cells into Ct records. The header is the first
// row that carries a known layout's sample and target columns. Rows above
// it are read as key/value preamble. Below it, Ct cells are coerced to
// numbers and rows with an empty sample, an empty target or a non-numeric
// Ct are dropped.
func parseGrid(grid [][]string, sourceFile string) (ParseResult, error) {
	out := ParseResult{
		SourceFile: sourceFile,
		Run:        RunInfo{Metadata: make(map[string]string)},
	}

	name, headerRow, found := DetectLayout(grid)
	if !found {
		return out, fmt.Errorf("%s: could not find header row (looked for layouts %s)", sourceFile, LayoutNames())
	}
	out.Layout = name
	layout := Layouts[name]

	idx := headerIndex(grid[headerRow])
	if missing := layout.missingColumns(idx); len(missing) > 0 {
		return out, fmt.Errorf("%s: missing required columns: %v", sourceFile, missing)
	}

	for _, row := range grid[:headerRow] {
		if key, val, ok := preambleEntry(row); ok {
			out.Run.Metadata[key] = val
		}
	}
	if when, exists := out.Run.Metadata[runEndTimeKey]; exists {
		if t, err := dateparse.ParseAny(when); err == nil {
			out.Run.RunEndTime = t
		}
	}

	sampleCol, targetCol, ctCol := idx[layout.SampleColumn], idx[layout.TargetColumn], idx[layout.CtColumn]
	for _, row := range grid[headerRow+1:] {
		sample := strings.TrimSpace(cell(row, sampleCol))
		target := strings.TrimSpace(cell(row, targetCol))
		ct := ddct.CoerceFloat(cell(row, ctCol))

		if sample == "" || target == "" || math.IsNaN(ct) || math.IsInf(ct, 0) {
			continue
		}

		out.Records = append(out.Records, ddct.RawCtRecord{
			SampleID:         sample,
			Gene:             target,
			Ct:               ct,
			SourceFile:       sourceFile,
			OriginalSampleID: sample,
		})
	}

	return out, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// preambleEntry understands both "Key | Value" cell pairs and single
// "* Key = Value" cells.
func preambleEntry(row []string) (string, string, bool) {
	nonEmpty := make([]string, 0, 2)
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			nonEmpty = append(nonEmpty, c)
		}
	}

	switch len(nonEmpty) {
	case 1:
		parts := strings.SplitN(strings.TrimLeft(nonEmpty[0], "* "), "=", 2)
		if len(parts) != 2 {
			return "", "", false
		}
		return normalizeCell(parts[0]), strings.TrimSpace(parts[1]), true
	case 2:
		return normalizeCell(strings.TrimLeft(nonEmpty[0], "* ")), nonEmpty[1], true
	}

	return "", "", false
}
