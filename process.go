package ddct

import (
	"math"
	"sort"
)

// MetadataPolicy decides what happens when the rows being averaged into one
// (sample, gene) carry different values for the same metadata column.
type MetadataPolicy int

const (
	// FirstWins keeps the first value observed for each column.
	FirstWins MetadataPolicy = iota

	// RequireHomogeneous fails the run with a *MetadataConflictError.
	RequireHomogeneous
)

// Options tune a Process run. The zero value reproduces the classic
// behavior: the first grouping variable is the reference axis and the first
// metadata value wins.
type Options struct {
	// ReferenceAxis names the grouping variable whose ReferenceCondition
	// rows define ΔCt_ref. Empty means the first grouping variable.
	ReferenceAxis string

	MetadataPolicy MetadataPolicy
}

// ResolveReferenceAxis picks the grouping variable that defines the baseline for
// this run.
func (o Options) ResolveReferenceAxis(cfg ExperimentConfig) (string, error) {
	if len(cfg.GroupingVariables) == 0 {
		return "", &ConfigurationError{Field: "grouping_variables", Err: ErrNoGroupingVariables}
	}

	axis := o.ReferenceAxis
	if axis == "" {
		axis = cfg.GroupingVariables[0].Name
	}

	if _, exists := cfg.LookupGroupingVariable(axis); !exists {
		return "", &ConfigurationError{Field: "reference_axis", Err: ErrUnknownReferenceAxis}
	}

	vals, _ := cfg.GroupValues(axis)
	if !contains(vals, cfg.ReferenceCondition) {
		return "", &ConfigurationError{Field: "reference_condition", Err: ErrReferenceConditionNotInAxis}
	}

	return axis, nil
}

type sampleGene struct {
	SampleID string
	Gene     string
}

type aggregate struct {
	cts      []float64
	metadata map[string]string
}

// Process runs the ΔΔCt pipeline:
//
//	ct       geometric mean of the positive replicate readings
//	ref_ct   geometric mean of the sample's reference-gene cts
//	ΔCt      ct - ref_ct
//	ΔCt_ref  mean ΔCt of the gene over rows in the reference condition
//	ΔΔCt     ΔCt - ΔCt_ref
//	FC       2^-ΔΔCt
//
// Data problems never fail a run: non-positive or missing readings are
// dropped and samples without a reference gene get missing outputs. Only a
// configuration that cannot name a reference condition, or a metadata
// conflict under RequireHomogeneous, returns an error, and in that case no
// results are produced. The inputs are not modified.
func Process(rows []CtRow, cfg ExperimentConfig, opts Options) (*Results, error) {
	axis, err := opts.ResolveReferenceAxis(cfg)
	if err != nil {
		return nil, err
	}

	// Normalize, filter non-positive cts, and group by (sample, gene)
	groups := make(map[sampleGene]*aggregate)
	order := make([]sampleGene, 0)
	columns := make(map[string]struct{})

	for _, r := range rows {
		ct := r.Ct.Value()
		if math.IsNaN(ct) || ct <= 0 || math.IsInf(ct, 0) {
			continue
		}

		key := sampleGene{r.SampleID, r.Gene}
		agg, exists := groups[key]
		if !exists {
			agg = &aggregate{metadata: make(map[string]string)}
			groups[key] = agg
			order = append(order, key)
		}
		agg.cts = append(agg.cts, ct)

		for col, val := range r.Metadata {
			columns[col] = struct{}{}

			prior, seen := agg.metadata[col]
			if !seen {
				agg.metadata[col] = val
				continue
			}
			if prior != val && opts.MetadataPolicy == RequireHomogeneous {
				return nil, &MetadataConflictError{
					SampleID: r.SampleID,
					Gene:     r.Gene,
					Column:   col,
					Values:   []string{prior, val},
				}
			}
		}
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].SampleID != order[j].SampleID {
			return order[i].SampleID < order[j].SampleID
		}
		return order[i].Gene < order[j].Gene
	})

	out := &Results{
		MetadataColumns: sortedKeys(columns),
		Rows:            make([]ResultRow, 0, len(order)),
	}

	for _, key := range order {
		agg := groups[key]
		out.Rows = append(out.Rows, ResultRow{
			SampleID: key.SampleID,
			Gene:     key.Gene,
			Ct:       GeoMean(agg.cts),
			N:        len(agg.cts),
			Metadata: agg.metadata,
		})
	}

	// Reference Ct per sample
	refCts := make(map[string][]float64)
	for _, row := range out.Rows {
		if cfg.IsReferenceGene(row.Gene) {
			refCts[row.SampleID] = append(refCts[row.SampleID], row.Ct)
		}
	}

	deltas := make([]float64, len(out.Rows))
	for i := range out.Rows {
		refCt := math.NaN()
		if cts, exists := refCts[out.Rows[i].SampleID]; exists {
			refCt = GeoMean(cts)
		}
		deltas[i] = out.Rows[i].Ct - refCt
		out.Rows[i].RefCt = nullable(refCt)
		out.Rows[i].DeltaCt = nullable(deltas[i])
	}

	// Reference ΔCt per gene, from rows in the reference condition
	refDeltas := make(map[string][]float64)
	for i, row := range out.Rows {
		if val, exists := row.Metadata[axis]; exists && val == cfg.ReferenceCondition {
			refDeltas[row.Gene] = append(refDeltas[row.Gene], deltas[i])
		}
	}

	refDeltaByGene := make(map[string]float64, len(refDeltas))
	for gene, ds := range refDeltas {
		refDeltaByGene[gene] = mean(ds)
	}

	for i := range out.Rows {
		refDelta, exists := refDeltaByGene[out.Rows[i].Gene]
		if !exists {
			refDelta = math.NaN()
		}
		ddct := deltas[i] - refDelta

		out.Rows[i].DeltaCtRef = nullable(refDelta)
		out.Rows[i].DeltaDeltaCt = nullable(ddct)
		out.Rows[i].FoldChange = nullable(math.Pow(2, -ddct))
	}

	return out, nil
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
