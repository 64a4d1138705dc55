package ddct

import (
	"math"
	"testing"
)

func TestCollapsePair(t *testing.T) {
	in := []RawCtRecord{
		{SampleID: "S1", Gene: "GAPDH", Ct: 23.11, SourceFile: "run1.xls", OriginalSampleID: "S1"},
		{SampleID: "S1", Gene: "GAPDH", Ct: 23.09, SourceFile: "run1.xls", OriginalSampleID: "S1"},
	}

	out := Collapse(in)
	if len(out) != 1 {
		t.Fatalf("Expected 1 collapsed row, got %d", len(out))
	}

	row := out[0]
	if math.Abs(row.Ct-23.10) > 1e-9 {
		t.Errorf("Ct = %f, expected 23.10", row.Ct)
	}
	if row.N != 2 {
		t.Errorf("n = %d, expected 2", row.N)
	}
	if len(row.Replicates) != 2 || row.Replicates[0] != 23.11 || row.Replicates[1] != 23.09 {
		t.Errorf("Replicates = %v, expected [23.11 23.09]", row.Replicates)
	}
	if row.SourceFile != "run1.xls" || row.OriginalSampleID != "S1" {
		t.Errorf("Group keys not carried: %+v", row)
	}
}

func TestCollapseSingleton(t *testing.T) {
	out := Collapse([]RawCtRecord{{SampleID: "S1", Gene: "ACTB", Ct: 19.456, SourceFile: "a", OriginalSampleID: "S1"}})
	if len(out) != 1 || out[0].N != 1 || len(out[0].Replicates) != 1 {
		t.Fatalf("Unexpected singleton collapse: %+v", out)
	}
	if math.Abs(out[0].Ct-19.46) > 1e-9 || math.Abs(out[0].Replicates[0]-19.46) > 1e-9 {
		t.Errorf("Expected rounding to 19.46, got %+v", out[0])
	}
}

func TestCollapseRoundsTiesToEven(t *testing.T) {
	in := []RawCtRecord{
		{SampleID: "S1", Gene: "GAPDH", Ct: 23.125, SourceFile: "a", OriginalSampleID: "S1"},
		{SampleID: "S2", Gene: "GAPDH", Ct: 0.375, SourceFile: "a", OriginalSampleID: "S2"},
		{SampleID: "S3", Gene: "GAPDH", Ct: 0.125, SourceFile: "a", OriginalSampleID: "S3"},
	}

	expected := map[string]float64{"S1": 23.12, "S2": 0.38, "S3": 0.12}

	out := Collapse(in)
	if len(out) != 3 {
		t.Fatalf("Expected 3 collapsed rows, got %d", len(out))
	}
	for _, row := range out {
		want := expected[row.SampleID]
		if math.Abs(row.Ct-want) > 1e-9 || math.Abs(row.Replicates[0]-want) > 1e-9 {
			t.Errorf("%s: got ct=%v replicates=%v, expected %v", row.SampleID, row.Ct, row.Replicates, want)
		}
	}
}

func TestCollapseGroupsBySourceFile(t *testing.T) {
	in := []RawCtRecord{
		{SampleID: "S2", Gene: "ACTB", Ct: 20, SourceFile: "b", OriginalSampleID: "S2"},
		{SampleID: "S1", Gene: "ACTB", Ct: 21, SourceFile: "b", OriginalSampleID: "S1"},
		{SampleID: "S1", Gene: "ACTB", Ct: 22, SourceFile: "a", OriginalSampleID: "S1"},
		{SampleID: "S1", Gene: "ACTB", Ct: math.NaN(), SourceFile: "a", OriginalSampleID: "S1"},
	}

	out := Collapse(in)
	if len(out) != 3 {
		t.Fatalf("Expected 3 groups, got %d: %+v", len(out), out)
	}

	order := []struct {
		Sample, File string
		N            int
	}{{"S1", "a", 1}, {"S1", "b", 1}, {"S2", "b", 1}}
	for i, o := range order {
		if out[i].SampleID != o.Sample || out[i].SourceFile != o.File || out[i].N != o.N {
			t.Errorf("Row %d = %+v, expected %+v", i, out[i], o)
		}
	}

	if !math.IsNaN(in[3].Ct) {
		t.Error("Collapse modified its input")
	}
}

func TestRenameCollapsedMerges(t *testing.T) {
	rows := []CollapsedRow{
		{SampleID: "ctrl-1", Gene: "gapdh", Ct: 20, Replicates: ReplicateList{20, 20}, N: 2, OriginalSampleID: "ctrl-1", SourceFile: "a"},
		{SampleID: "Ctrl 1", Gene: "GAPDH", Ct: 22, Replicates: ReplicateList{22}, N: 1, OriginalSampleID: "Ctrl 1", SourceFile: "b"},
		{SampleID: "T1", Gene: "GAPDH", Ct: 25, Replicates: ReplicateList{25}, N: 1, OriginalSampleID: "T1", SourceFile: "b"},
	}

	out := RenameCollapsed(rows, map[string]string{"ctrl-1": "Ctrl 1"}, map[string]string{"gapdh": "GAPDH"})
	if len(out) != 2 {
		t.Fatalf("Expected 2 rows after merge, got %d: %+v", len(out), out)
	}

	m := out[0]
	if m.SampleID != "Ctrl 1" || m.Gene != "GAPDH" {
		t.Fatalf("Unexpected first row %+v", m)
	}
	if m.N != 3 || len(m.Replicates) != 3 {
		t.Errorf("Expected n=3 with 3 replicates, got %+v", m)
	}
	if math.Abs(m.Ct-21) > 1e-9 {
		t.Errorf("Merged Ct = %f, expected 21", m.Ct)
	}
	if m.SourceFile != "a" || m.OriginalSampleID != "ctrl-1" {
		t.Errorf("Expected first source/original id to win, got %+v", m)
	}

	if rows[0].SampleID != "ctrl-1" || len(rows[0].Replicates) != 2 {
		t.Error("RenameCollapsed modified its input")
	}
}

func TestReplicateListCSV(t *testing.T) {
	s, err := ReplicateList{23.11, 23.09}.MarshalCSV()
	if err != nil {
		t.Fatal(err)
	}
	if s != "23.11;23.09" {
		t.Fatalf("MarshalCSV = %q", s)
	}

	var r ReplicateList
	if err := r.UnmarshalCSV("[23.11, 23.09]"); err != nil {
		t.Fatal(err)
	}
	if len(r) != 2 || r[1] != 23.09 {
		t.Fatalf("UnmarshalCSV = %v", r)
	}
}
