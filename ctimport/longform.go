package ctimport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/carbocation/ddct"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// Column aliases accepted by ReadLongForm. The second set matches the
// collapsed table written by WriteCollapsed, so its output can be analyzed
// directly.
var (
	sampleAliases = []string{"sample_id", "sample id"}
	geneAliases   = []string{"gene"}
	ctAliases     = []string{"ct"}

	// Bookkeeping columns of the collapsed table, never treated as
	// grouping metadata.
	collapsedColumns = map[string]struct{}{
		"replicates":         {},
		"n":                  {},
		"original sample id": {},
		"source file":        {},
	}
)

func findColumn(idx map[string]int, aliases []string) (int, bool) {
	for _, a := range aliases {
		if i, exists := idx[a]; exists {
			return i, true
		}
	}
	return -1, false
}

// ReadLongForm reads a long-form table: one row per measurement with
// sample_id, gene and ct columns. Every other column becomes metadata on the
// row, keyed by its header as written. A ct cell may hold several
// semicolon-separated replicate readings. Rows with an empty sample or gene
// are rejected.
func ReadLongForm(r io.Reader) ([]ddct.CtRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, pfx.Err(err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("No entries in the input file")
	}

	var entries [][]string
	var sampleCol, geneCol, ctCol int
	found := false
	for _, delim := range candidateDelimiters(data) {
		grid, err := readGrid(data, delim)
		if err != nil || len(grid) == 0 {
			continue
		}

		idx := headerIndex(grid[0])
		var okS, okG, okC bool
		sampleCol, okS = findColumn(idx, sampleAliases)
		geneCol, okG = findColumn(idx, geneAliases)
		ctCol, okC = findColumn(idx, ctAliases)
		if okS && okG && okC {
			entries = grid
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("long-form table needs sample_id, gene and ct columns")
	}

	header := entries[0]

	metaCols := make([]int, 0)
	for i, name := range header {
		if i == sampleCol || i == geneCol || i == ctCol {
			continue
		}
		if _, skip := collapsedColumns[normalizeCell(name)]; skip {
			continue
		}
		metaCols = append(metaCols, i)
	}

	rows := make([]ddct.CtRow, 0, len(entries)-1)
	for lineNo, entry := range entries[1:] {
		row := ddct.CtRow{
			SampleID: strings.TrimSpace(cell(entry, sampleCol)),
			Gene:     strings.TrimSpace(cell(entry, geneCol)),
			Ct:       ddct.ParseCtValue(cell(entry, ctCol)),
			Metadata: make(map[string]string),
		}
		for _, i := range metaCols {
			if v := strings.TrimSpace(cell(entry, i)); v != "" {
				row.Metadata[strings.TrimSpace(header[i])] = v
			}
		}

		if err := row.Check(); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+2, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// WriteLongForm writes rows in the form ReadLongForm reads, with metadata
// columns sorted by name.
func WriteLongForm(w io.Writer, rows []ddct.CtRow, delimiter rune) error {
	cols := make(map[string]struct{})
	for _, r := range rows {
		for k := range r.Metadata {
			cols[k] = struct{}{}
		}
	}
	metaCols := make([]string, 0, len(cols))
	for k := range cols {
		metaCols = append(metaCols, k)
	}
	sort.Strings(metaCols)

	cw := csv.NewWriter(w)
	cw.Comma = delimiter

	if err := cw.Write(append([]string{"sample_id", "gene", "ct"}, metaCols...)); err != nil {
		return err
	}

	for _, r := range rows {
		line := []string{r.SampleID, r.Gene, r.Ct.String()}
		for _, col := range metaCols {
			line = append(line, r.Metadata[col])
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCollapsed writes the collapsed replicate table as TSV.
func WriteCollapsed(w io.Writer, rows []ddct.CollapsedRow) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(cw)); err != nil {
		return pfx.Err(err)
	}

	cw.Flush()
	return cw.Error()
}

// ReadCollapsed reads a table written by WriteCollapsed.
func ReadCollapsed(r io.Reader) ([]ddct.CollapsedRow, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true

	rows := []ddct.CollapsedRow{}
	if err := gocsv.UnmarshalCSV(cr, &rows); err != nil {
		return nil, pfx.Err(err)
	}

	return rows, nil
}
