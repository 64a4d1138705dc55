package ddct

import (
	"strings"
	"testing"
)

func treatmentConfig() ExperimentConfig {
	return ExperimentConfig{
		Genes:          []string{"GAPDH", "IL6"},
		ReferenceGenes: []string{"GAPDH"},
		GroupingVariables: []GroupingVariable{
			{Name: "Treatment", Values: []string{"N/A", "vehicle", "drug"}},
		},
		ReferenceGrouping:  "Treatment",
		ReferenceCondition: "vehicle",
	}.Normalize()
}

func TestValidateMissingReferenceGene(t *testing.T) {
	rows := []CtRow{
		{SampleID: "S1", Gene: "IL6", Ct: CtScalar(28)},
		{SampleID: "S2", Gene: "IL6", Ct: CtScalar(27)},
	}

	errs := Validate(rows, treatmentConfig())
	if len(errs) != 1 {
		t.Fatalf("Expected exactly 1 error, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0], "GAPDH") {
		t.Errorf("Expected the error to name GAPDH: %q", errs[0])
	}
}

func TestValidateCollectsEverything(t *testing.T) {
	cfg := treatmentConfig()
	cfg.ReferenceCondition = "placebo"

	rows := []CtRow{
		{SampleID: "S1", Gene: "IL6", Ct: MissingCt()},
		{SampleID: "S2", Gene: "IL6", Ct: CtReplicates()},
		{SampleID: "S3", Gene: "IL6", Ct: CtScalar(27)},
	}

	errs := Validate(rows, cfg)
	if len(errs) != 4 {
		t.Fatalf("Expected 4 errors, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs[1], "placebo") || !strings.Contains(errs[1], "Treatment") {
		t.Errorf("Mismatch error should name both values: %q", errs[1])
	}
	if errs[2] != "missing Ct value for sample 'S1', gene 'IL6'" {
		t.Errorf("Unexpected message %q", errs[2])
	}
}

func TestValidateClean(t *testing.T) {
	rows := []CtRow{
		{SampleID: "S1", Gene: "GAPDH", Ct: CtScalar(18)},
		{SampleID: "S1", Gene: "IL6", Ct: CtReplicates(28, 28.2)},
	}
	if errs := Validate(rows, treatmentConfig()); len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}
}

func TestValidateNoGroupingVariables(t *testing.T) {
	cfg := ExperimentConfig{ReferenceCondition: "vehicle"}
	errs := Validate(nil, cfg)
	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %v", errs)
	}
}

func TestReadiness(t *testing.T) {
	if missing := Readiness(treatmentConfig()); len(missing) != 0 {
		t.Fatalf("Expected a ready config, got %v", missing)
	}

	if missing := Readiness(ExperimentConfig{}); len(missing) != 6 {
		t.Fatalf("Expected 6 missing items for an empty config, got %d: %v", len(missing), missing)
	}

	cfg := treatmentConfig()
	cfg.GroupingVariables[0].Values = []string{"vehicle"}
	cfg = cfg.Normalize()
	missing := Readiness(cfg)
	if len(missing) != 1 || !strings.Contains(missing[0], "2 conditions") {
		t.Fatalf("Expected the 2-condition requirement, got %v", missing)
	}
}
