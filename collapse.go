package ddct

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"
)

// RawCtRecord is one well as read from an instrument export.
type RawCtRecord struct {
	SampleID         string
	Gene             string
	Ct               float64
	SourceFile       string
	OriginalSampleID string
}

// ReplicateList is the ordered set of per-well readings behind a collapsed
// Ct. In flat tables it is written as a semicolon-separated list.
type ReplicateList []float64

func (r ReplicateList) MarshalCSV() (string, error) {
	parts := make([]string, 0, len(r))
	for _, v := range r {
		parts = append(parts, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return strings.Join(parts, ";"), nil
}

func (r *ReplicateList) UnmarshalCSV(s string) error {
	*r = (*r)[:0]
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return nil
	}

	for _, p := range strings.FieldsFunc(s, func(c rune) bool { return c == ';' || c == ',' }) {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return err
		}
		*r = append(*r, v)
	}

	return nil
}

// CollapsedRow is one (sample, gene, source file) group of technical
// replicates.
type CollapsedRow struct {
	SampleID         string        `csv:"Sample ID" json:"sample_id"`
	Gene             string        `csv:"Gene" json:"gene"`
	Ct               float64       `csv:"Ct" json:"ct"`
	Replicates       ReplicateList `csv:"Replicates" json:"replicates"`
	N                int           `csv:"n" json:"n"`
	OriginalSampleID string        `csv:"Original Sample ID" json:"original_sample_id"`
	SourceFile       string        `csv:"Source File" json:"source_file"`
}

type collapseKey struct {
	SampleID, Gene, SourceFile, OriginalSampleID string
}

func (k collapseKey) less(o collapseKey) bool {
	if k.SampleID != o.SampleID {
		return k.SampleID < o.SampleID
	}
	if k.Gene != o.Gene {
		return k.Gene < o.Gene
	}
	if k.SourceFile != o.SourceFile {
		return k.SourceFile < o.SourceFile
	}
	return k.OriginalSampleID < o.OriginalSampleID
}

// Collapse reduces technical replicates to one row per (sample, gene,
// source file, original sample ID). Each reading is rounded to 2 decimal
// places and the row's Ct is the arithmetic mean of the rounded readings,
// itself rounded to 2 places. Readings that are not finite are skipped; a
// group with none left is omitted. Rows come back sorted by their keys and
// the input is left untouched.
func Collapse(records []RawCtRecord) []CollapsedRow {
	groups := make(map[collapseKey][]float64)
	keys := make([]collapseKey, 0)

	for _, rec := range records {
		if math.IsNaN(rec.Ct) || math.IsInf(rec.Ct, 0) {
			continue
		}

		k := collapseKey{
			SampleID:         rec.SampleID,
			Gene:             rec.Gene,
			SourceFile:       rec.SourceFile,
			OriginalSampleID: rec.OriginalSampleID,
		}
		if _, exists := groups[k]; !exists {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], round2(rec.Ct))
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })

	out := make([]CollapsedRow, 0, len(keys))
	for _, k := range keys {
		vals := groups[k]
		out = append(out, CollapsedRow{
			SampleID:         k.SampleID,
			Gene:             k.Gene,
			Ct:               round2(arithmeticMean(vals)),
			Replicates:       ReplicateList(vals),
			N:                len(vals),
			OriginalSampleID: k.OriginalSampleID,
			SourceFile:       k.SourceFile,
		})
	}

	return out
}

// RenameCollapsed applies sample and gene renames, then merges rows that
// now share a (sample, gene): Ct becomes the mean of the merged Cts,
// replicates are concatenated, n is summed and the first original sample ID
// and source file are kept. Names absent from the maps are unchanged.
func RenameCollapsed(rows []CollapsedRow, sampleNames, geneNames map[string]string) []CollapsedRow {
	type pair struct{ SampleID, Gene string }

	merged := make(map[pair]*CollapsedRow)
	cts := make(map[pair][]float64)
	order := make([]pair, 0)

	for _, r := range rows {
		sid, gene := r.SampleID, r.Gene
		if renamed, ok := sampleNames[sid]; ok && renamed != "" {
			sid = renamed
		}
		if renamed, ok := geneNames[gene]; ok && renamed != "" {
			gene = renamed
		}

		p := pair{sid, gene}
		cts[p] = append(cts[p], r.Ct)

		if m, exists := merged[p]; exists {
			m.Replicates = append(m.Replicates, r.Replicates...)
			m.N += r.N
			continue
		}

		order = append(order, p)
		merged[p] = &CollapsedRow{
			SampleID:         sid,
			Gene:             gene,
			Replicates:       append(ReplicateList(nil), r.Replicates...),
			N:                r.N,
			OriginalSampleID: r.OriginalSampleID,
			SourceFile:       r.SourceFile,
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].SampleID != order[j].SampleID {
			return order[i].SampleID < order[j].SampleID
		}
		return order[i].Gene < order[j].Gene
	})

	out := make([]CollapsedRow, 0, len(order))
	for _, p := range order {
		m := merged[p]
		m.Ct = round2(arithmeticMean(cts[p]))
		out = append(out, *m)
	}

	return out
}

// round2 rounds to two decimals, sending exact ties to the even digit.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return math.RoundToEven(v*100) / 100
}

func arithmeticMean(vals []float64) float64 {
	m, err := stats.Mean(stats.Float64Data(vals))
	if err != nil {
		return math.NaN()
	}
	return m
}
