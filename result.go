package ddct

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"

	"gopkg.in/guregu/null.v3"
)

// Output column names, shared by the flat table and JSON forms.
const (
	ColSampleID     = "sample_id"
	ColGene         = "gene"
	ColCt           = "ct"
	ColN            = "n"
	ColRefCt        = "ref_ct"
	ColDeltaCt      = "ΔCt"
	ColDeltaCtRef   = "ΔCt_ref"
	ColDeltaDeltaCt = "ΔΔCt"
	ColFoldChange   = "Fold Change"
)

// ResultColumns are the computed columns in output order. Metadata columns
// follow them.
var ResultColumns = []string{
	ColSampleID, ColGene, ColCt, ColN, ColRefCt, ColDeltaCt, ColDeltaCtRef, ColDeltaDeltaCt, ColFoldChange,
}

// ResultRow is the outcome for one (sample, gene). Values that could not be
// computed, for example because the sample has no reference gene, are
// invalid null.Floats.
type ResultRow struct {
	SampleID     string
	Gene         string
	Ct           float64
	N            int
	RefCt        null.Float
	DeltaCt      null.Float
	DeltaCtRef   null.Float
	DeltaDeltaCt null.Float
	FoldChange   null.Float
	Metadata     map[string]string
}

func nullable(v float64) null.Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return null.NewFloat(0, false)
	}
	return null.FloatFrom(v)
}

// Number returns the named numeric column. The second return is false when
// the column is missing for this row or is not numeric.
func (r ResultRow) Number(column string) (float64, bool) {
	var f null.Float
	switch column {
	case ColCt:
		return r.Ct, !math.IsNaN(r.Ct)
	case ColN:
		return float64(r.N), true
	case ColRefCt:
		f = r.RefCt
	case ColDeltaCt:
		f = r.DeltaCt
	case ColDeltaCtRef:
		f = r.DeltaCtRef
	case ColDeltaDeltaCt:
		f = r.DeltaDeltaCt
	case ColFoldChange:
		f = r.FoldChange
	default:
		return 0, false
	}
	return f.Float64, f.Valid
}

// Label returns a column rendered as text: identifiers and metadata verbatim,
// numbers formatted, missing values as the empty string.
func (r ResultRow) Label(column string) string {
	switch column {
	case ColSampleID:
		return r.SampleID
	case ColGene:
		return r.Gene
	}

	if v, ok := r.Number(column); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	return r.Metadata[column]
}

func (r ResultRow) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(ResultColumns)+len(r.Metadata))
	for k, v := range r.Metadata {
		out[k] = v
	}

	out[ColSampleID] = r.SampleID
	out[ColGene] = r.Gene
	out[ColCt] = jsonFloat(r.Ct)
	out[ColN] = r.N
	out[ColRefCt] = r.RefCt
	out[ColDeltaCt] = r.DeltaCt
	out[ColDeltaCtRef] = r.DeltaCtRef
	out[ColDeltaDeltaCt] = r.DeltaDeltaCt
	out[ColFoldChange] = r.FoldChange

	return json.Marshal(out)
}

func (r *ResultRow) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = ResultRow{Metadata: make(map[string]string)}

	for key, val := range raw {
		var err error
		switch key {
		case ColSampleID:
			err = json.Unmarshal(val, &r.SampleID)
		case ColGene:
			err = json.Unmarshal(val, &r.Gene)
		case ColCt:
			var f null.Float
			err = json.Unmarshal(val, &f)
			r.Ct = math.NaN()
			if f.Valid {
				r.Ct = f.Float64
			}
		case ColN:
			err = json.Unmarshal(val, &r.N)
		case ColRefCt:
			err = json.Unmarshal(val, &r.RefCt)
		case ColDeltaCt:
			err = json.Unmarshal(val, &r.DeltaCt)
		case ColDeltaCtRef:
			err = json.Unmarshal(val, &r.DeltaCtRef)
		case ColDeltaDeltaCt:
			err = json.Unmarshal(val, &r.DeltaDeltaCt)
		case ColFoldChange:
			err = json.Unmarshal(val, &r.FoldChange)
		default:
			var s null.String
			if err = json.Unmarshal(val, &s); err == nil && s.Valid {
				r.Metadata[key] = s.String
			}
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	return nil
}

// Results is the output table of one analysis.
type Results struct {
	MetadataColumns []string
	Rows            []ResultRow
}

// Columns lists every column in table order.
func (res *Results) Columns() []string {
	return append(append([]string(nil), ResultColumns...), res.MetadataColumns...)
}

// MarshalJSON emits the table as an array of flat records.
func (res *Results) MarshalJSON() ([]byte, error) {
	if res.Rows == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(res.Rows)
}

// UnmarshalJSON reads an array of flat records and recovers the metadata
// column list from the keys seen.
func (res *Results) UnmarshalJSON(data []byte) error {
	var rows []ResultRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}

	cols := make(map[string]struct{})
	for _, r := range rows {
		for k := range r.Metadata {
			cols[k] = struct{}{}
		}
	}

	res.Rows = rows
	res.MetadataColumns = sortedKeys(cols)

	return nil
}

// WriteDelimited writes a header line and one line per row, with missing
// values as empty cells.
func (res *Results) WriteDelimited(w io.Writer, delimiter rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = delimiter

	cols := res.Columns()
	if err := cw.Write(cols); err != nil {
		return err
	}

	line := make([]string, len(cols))
	for _, row := range res.Rows {
		for i, col := range cols {
			line[i] = row.Label(col)
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
