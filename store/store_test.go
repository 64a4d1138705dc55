package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/carbocation/ddct"
	"github.com/carbocation/ddct/session"
)

func testSession() *session.Session {
	s := &session.Session{
		Config: ddct.ExperimentConfig{
			Genes:              []string{"GAPDH", "IL6"},
			ReferenceGenes:     []string{"GAPDH"},
			GroupingVariables:  []ddct.GroupingVariable{ddct.NewGroupingVariable("Treatment", []string{"vehicle", "drug"})},
			ReferenceCondition: "vehicle",
		}.Normalize(),
		Rows: []ddct.CtRow{
			{SampleID: "S1", Gene: "GAPDH", Ct: ddct.CtScalar(20)},
			{SampleID: "S1", Gene: "IL6", Ct: ddct.CtScalar(25)},
			{SampleID: "S2", Gene: "GAPDH", Ct: ddct.CtScalar(20)},
			{SampleID: "S2", Gene: "IL6", Ct: ddct.CtScalar(23)},
		},
	}
	s.Assign("S1", "Treatment", "vehicle")
	s.Assign("S2", "Treatment", "drug")
	return s
}

func TestSaveLoadRun(t *testing.T) {
	ctx := context.Background()

	db, err := Open(filepath.Join(t.TempDir(), "runs.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	sess := testSession()
	results, problems, err := sess.Run(ddct.Options{})
	if err != nil || len(problems) > 0 {
		t.Fatalf("Run failed: %v %v", err, problems)
	}

	id, err := db.SaveRun(ctx, sess, results)
	if err != nil {
		t.Fatal(err)
	}

	runs, err := db.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != id || runs[0].Samples != 2 || runs[0].Genes != 2 {
		t.Fatalf("Unexpected run list: %+v", runs)
	}
	if _, err := runs[0].Created(); err != nil {
		t.Fatal(err)
	}

	got, err := db.LoadRun(ctx, id)
	if err != nil {
		t.Fatal(err)
	}

	if got.Session.SampleMetadata["S2"]["Treatment"] != "drug" {
		t.Fatalf("Session did not survive: %+v", got.Session)
	}

	if len(got.Results.Rows) != len(results.Rows) {
		t.Fatalf("Expected %d result rows, got %d", len(results.Rows), len(got.Results.Rows))
	}

	if cols := got.Results.MetadataColumns; len(cols) != 1 || cols[0] != "Treatment" {
		t.Fatalf("Expected metadata columns to survive, got %v", cols)
	}
}

func TestLoadRunNotFound(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "runs.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	_, err = db.LoadRun(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()

	db, err := Open(filepath.Join(t.TempDir(), "runs.sqlite"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	sess := testSession()
	results, _, err := sess.Run(ddct.Options{})
	if err != nil {
		t.Fatal(err)
	}

	base := time.Date(2022, 3, 1, 0, 0, 5, 0, time.UTC)
	older, err := db.saveRunAt(ctx, sess, results, base)
	if err != nil {
		t.Fatal(err)
	}
	newer, err := db.saveRunAt(ctx, sess, results, base.Add(500*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	runs, err := db.ListRuns(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].ID != newer || runs[1].ID != older {
		t.Fatalf("Expected %s before %s, got %+v", newer, older, runs)
	}

	created, err := runs[1].Created()
	if err != nil {
		t.Fatal(err)
	}
	if !created.Equal(base) {
		t.Errorf("Created() = %v, expected %v", created, base)
	}
}
