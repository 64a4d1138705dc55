package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/carbocation/ddct"
)

func TestLoadSessionFromConfigAndData(t *testing.T) {
	dir := t.TempDir()

	configPath := filepath.Join(dir, "config.json")
	config := `{"genes": ["GAPDH", "IL6"], "reference_genes": ["GAPDH"], "grouping_variables": [{"name": "Treatment", "values": ["N/A", "vehicle", "drug"]}], "reference_condition": "vehicle"}`
	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatal(err)
	}

	dataPath := filepath.Join(dir, "data.tsv")
	data := "sample_id\tgene\tct\tTreatment\nS1\tGAPDH\t20\tvehicle\nS1\tIL6\t25\tvehicle\nS2\tGAPDH\t20\tdrug\nS2\tIL6\t22;24\tdrug\n"
	if err := os.WriteFile(dataPath, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	sess, err := LoadSession(context.Background(), "", configPath, dataPath, nil)
	if err != nil {
		t.Fatal(err)
	}

	results, problems, err := sess.Run(ddct.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) > 0 {
		t.Fatalf("Unexpected problems: %v", problems)
	}

	if len(results.Rows) != 4 {
		t.Fatalf("Expected 4 result rows, got %d", len(results.Rows))
	}
}

func TestWriteResultsUnknownFormat(t *testing.T) {
	if err := WriteResults(&ddct.Results{}, "xlsx"); err == nil {
		t.Fatal("Expected an error for an unknown format")
	}
}
