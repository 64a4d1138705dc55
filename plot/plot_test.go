package plot

import (
	"bytes"
	"math"
	"testing"

	"github.com/carbocation/ddct"
	null "gopkg.in/guregu/null.v3"
)

const tolerance = 1e-9

func fixture() *ddct.Results {
	row := func(sample, gene string, ddctValue float64, valid bool, meta map[string]string) ddct.ResultRow {
		r := ddct.ResultRow{SampleID: sample, Gene: gene, Ct: 25, N: 1, Metadata: meta}
		if valid {
			r.DeltaDeltaCt = null.FloatFrom(ddctValue)
			r.FoldChange = null.FloatFrom(math.Pow(2, -ddctValue))
		}
		return r
	}

	return &ddct.Results{
		MetadataColumns: []string{"Sex", "Treatment"},
		Rows: []ddct.ResultRow{
			row("S1", "IL6", 0, true, map[string]string{"Treatment": "vehicle", "Sex": "F"}),
			row("S2", "IL6", 1, true, map[string]string{"Treatment": "drug", "Sex": "F"}),
			row("S3", "IL6", 3, true, map[string]string{"Treatment": "drug", "Sex": "M"}),
			row("S4", "TNF", -1, true, map[string]string{"Treatment": "drug", "Sex": "M"}),
			row("NTC 1", "IL6", 0, false, map[string]string{"Treatment": "vehicle"}),
			row("NTC_plate", "IL6", 5, true, map[string]string{"Treatment": "vehicle", "Sex": "F"}),
		},
	}
}

func TestParseYScale(t *testing.T) {
	cases := map[string]YScale{
		"":               FoldChange,
		"Fold Change":    FoldChange,
		"ΔΔCt":           DeltaDeltaCt,
		"ddct":           DeltaDeltaCt,
		"log2FoldChange": Log2FoldChange,
	}

	for input, expected := range cases {
		got, err := ParseYScale(input)
		if err != nil {
			t.Fatalf("%q: %v", input, err)
		}
		if got != expected {
			t.Fatalf("%q: expected %s, got %s", input, expected, got)
		}
	}

	if _, err := ParseYScale("ct"); err == nil {
		t.Fatal("Expected an error for an unknown scale")
	}
}

func TestPrepareFiltersAndLabels(t *testing.T) {
	points, err := Prepare(fixture(), Options{
		Genes:   []string{"IL6"},
		GroupBy: []string{"Gene", "Treatment"},
		YScale:  DeltaDeltaCt,
		HideNTC: true,
		ColorBy: "Sex",
	})
	if err != nil {
		t.Fatal(err)
	}

	// "NTC 1" is dropped by the NTC filter, but "NTC_plate" is not a
	// whole-word match and stays.
	if len(points) != 4 {
		t.Fatalf("Expected 4 points, got %d: %+v", len(points), points)
	}

	if points[1].XLabel != "IL6_drug" {
		t.Fatalf("Expected x label IL6_drug, got %q", points[1].XLabel)
	}

	if points[2].Keys["Sex"] != "M" {
		t.Fatalf("Expected color key to be recorded, got %v", points[2].Keys)
	}
}

func TestPrepareLog2(t *testing.T) {
	points, err := Prepare(fixture(), Options{Genes: []string{"TNF"}, YScale: Log2FoldChange})
	if err != nil {
		t.Fatal(err)
	}

	if len(points) != 1 || math.Abs(points[0].Value-1) > tolerance {
		t.Fatalf("Expected log2 fold change of 1, got %+v", points)
	}
}

func TestPrepareLog2OfZeroIsMissing(t *testing.T) {
	res := &ddct.Results{Rows: []ddct.ResultRow{
		{SampleID: "S1", Gene: "IL6", FoldChange: null.FloatFrom(0)},
		{SampleID: "S2", Gene: "IL6", FoldChange: null.FloatFrom(4)},
	}}

	points, err := Prepare(res, Options{YScale: Log2FoldChange})
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 1 || points[0].SampleID != "S2" {
		t.Fatalf("Expected only S2 to be plotted, got %+v", points)
	}
}

func TestPrepareAllMissing(t *testing.T) {
	res := &ddct.Results{Rows: []ddct.ResultRow{{SampleID: "S1", Gene: "IL6"}}}

	if _, err := Prepare(res, Options{YScale: DeltaDeltaCt}); err == nil {
		t.Fatal("Expected an error when no ΔΔCt values exist")
	}
}

func TestSummarize(t *testing.T) {
	points := []Point{
		{XLabel: "drug", Value: 1, Keys: map[string]string{}},
		{XLabel: "drug", Value: 3, Keys: map[string]string{}},
		{XLabel: "vehicle", Value: 0, Keys: map[string]string{}},
	}

	got := Summarize(points, nil)
	if len(got) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(got))
	}

	drug := got[0]
	if drug.XLabel != "drug" || drug.Count != 2 || math.Abs(drug.Mean-2) > tolerance {
		t.Fatalf("Unexpected drug summary: %+v", drug)
	}
	if math.Abs(drug.Std-math.Sqrt2) > tolerance || math.Abs(drug.SEM-1) > tolerance {
		t.Fatalf("Expected std sqrt(2) and SEM 1, got %+v", drug)
	}

	if vehicle := got[1]; vehicle.Count != 1 || !math.IsNaN(vehicle.Std) {
		t.Fatalf("Expected a single-point group to have undefined std, got %+v", vehicle)
	}
}

func TestFacets(t *testing.T) {
	opts := Options{GroupBy: []string{"Treatment"}, FacetRow: "Sex", FacetCol: "Gene", YScale: DeltaDeltaCt}

	points, err := Prepare(fixture(), opts)
	if err != nil {
		t.Fatal(err)
	}

	facets := Facets(points, opts)

	labels := make([]string, 0, len(facets))
	for _, f := range facets {
		labels = append(labels, f.Label)
	}

	expected := []string{"Sex=F, gene=IL6", "Sex=M, gene=IL6", "Sex=M, gene=TNF"}
	if len(labels) != len(expected) {
		t.Fatalf("Expected facets %v, got %v", expected, labels)
	}
	for i := range expected {
		if labels[i] != expected[i] {
			t.Fatalf("Expected facets %v, got %v", expected, labels)
		}
	}

	if len(facets[0].Points) != 3 {
		t.Fatalf("Expected 3 points in %s, got %d", facets[0].Label, len(facets[0].Points))
	}
}

func TestFacetsNone(t *testing.T) {
	points := []Point{{XLabel: "a", Value: 1}}

	facets := Facets(points, Options{})
	if len(facets) != 1 || facets[0].Label != "" || len(facets[0].Points) != 1 {
		t.Fatalf("Expected a single unlabeled facet, got %+v", facets)
	}
}

func TestRender(t *testing.T) {
	pngMagic := []byte{0x89, 'P', 'N', 'G'}

	for _, kind := range []Kind{Bar, Points} {
		opts := Options{GroupBy: []string{"Treatment"}, YScale: DeltaDeltaCt, Kind: kind, ColorBy: "Sex"}

		points, err := Prepare(fixture(), opts)
		if err != nil {
			t.Fatal(err)
		}

		var buf bytes.Buffer
		if err := Render(&buf, Facets(points, opts)[0], opts); err != nil {
			t.Fatalf("%s: %v", kind, err)
		}

		if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
			t.Fatalf("%s: output is not a PNG", kind)
		}
	}
}

func TestRenderSingleValue(t *testing.T) {
	facet := Facet{Points: []Point{{XLabel: "a", Value: 2}}}

	var buf bytes.Buffer
	if err := Render(&buf, facet, Options{Kind: Bar}); err != nil {
		t.Fatal(err)
	}
}
