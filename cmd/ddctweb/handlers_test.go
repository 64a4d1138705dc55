package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/carbocation/ddct/store"
)

const sessionJSON = `{
  "experiment_config": {
    "genes": ["GAPDH", "IL6"],
    "reference_genes": ["GAPDH"],
    "grouping_variables": [{"name": "Treatment", "values": ["N/A", "vehicle", "drug"]}],
    "reference_grouping": "Treatment",
    "reference_condition": "vehicle"
  },
  "ct_rows": [
    {"sample_id": "S1", "gene": "GAPDH", "ct": 20, "metadata": {}},
    {"sample_id": "S1", "gene": "IL6", "ct": 25, "metadata": {}},
    {"sample_id": "S2", "gene": "GAPDH", "ct": 20, "metadata": {}},
    {"sample_id": "S2", "gene": "IL6", "ct": [22, 24], "metadata": {}}
  ],
  "sample_metadata": {"S1": {"Treatment": "vehicle"}, "S2": {"Treatment": "drug"}}
}`

func testServer(t *testing.T, withDB bool) *httptest.Server {
	g := &Global{
		Site: "test",
		log:  log.New(io.Discard, "", 0),
	}

	if withDB {
		db, err := store.Open(filepath.Join(t.TempDir(), "runs.sqlite"))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { db.Close() })
		g.db = db
	}

	srv := httptest.NewServer(router(g))
	t.Cleanup(srv.Close)

	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestValidateEndpoint(t *testing.T) {
	srv := testServer(t, false)

	broken := strings.Replace(sessionJSON, `"reference_genes": ["GAPDH"]`, `"reference_genes": ["ACTB"]`, 1)
	resp := post(t, srv.URL+"/validate", broken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	out := struct {
		Readiness []string `json:"readiness"`
		Problems  []string `json:"problems"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}

	if len(out.Problems) != 1 || out.Problems[0] != "missing reference gene: ACTB" {
		t.Fatalf("Unexpected problems: %v", out.Problems)
	}
}

func TestValidateBadJSON(t *testing.T) {
	srv := testServer(t, false)

	resp := post(t, srv.URL+"/validate", `{"experiment_config":`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestProcessAndArchive(t *testing.T) {
	srv := testServer(t, true)

	resp := post(t, srv.URL+"/process?archive=true", sessionJSON)
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}

	out := struct {
		RunID   string                   `json:"run_id"`
		Results []map[string]interface{} `json:"results"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}

	if out.RunID == "" || len(out.Results) != 4 {
		t.Fatalf("Unexpected output: %+v", out)
	}

	runResp, err := http.Get(srv.URL + "/runs/" + out.RunID)
	if err != nil {
		t.Fatal(err)
	}
	defer runResp.Body.Close()
	if runResp.StatusCode != http.StatusOK {
		t.Fatalf("Expected archived run to be retrievable, got %d", runResp.StatusCode)
	}

	listResp, err := http.Get(srv.URL + "/runs")
	if err != nil {
		t.Fatal(err)
	}
	defer listResp.Body.Close()

	runs := []store.Run{}
	if err := json.NewDecoder(listResp.Body).Decode(&runs); err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != out.RunID {
		t.Fatalf("Unexpected run list: %+v", runs)
	}
}

func TestProcessConfigurationError(t *testing.T) {
	srv := testServer(t, false)

	resp := post(t, srv.URL+"/process?reference_axis=Sex", sessionJSON)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("Expected 422, got %d", resp.StatusCode)
	}
}

func TestRunsWithoutArchive(t *testing.T) {
	srv := testServer(t, false)

	resp, err := http.Get(srv.URL + "/runs")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestPlotEndpoint(t *testing.T) {
	srv := testServer(t, false)

	resp := post(t, srv.URL+"/process", sessionJSON)
	processed := struct {
		Results json.RawMessage `json:"results"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&processed); err != nil {
		t.Fatal(err)
	}

	body, err := json.Marshal(map[string]interface{}{
		"results": processed.Results,
		"options": map[string]interface{}{
			"genes":    []string{"IL6"},
			"group_by": []string{"Treatment"},
			"y_scale":  "ΔΔCt",
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	plotResp := post(t, srv.URL+"/plot.png", string(body))
	if plotResp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(plotResp.Body)
		t.Fatalf("Expected 200, got %d: %s", plotResp.StatusCode, msg)
	}

	png, err := io.ReadAll(plotResp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(png, []byte{0x89, 'P', 'N', 'G'}) {
		t.Fatal("Expected a PNG")
	}
}

func TestVersionEndpoint(t *testing.T) {
	srv := testServer(t, false)

	resp, err := http.Get(srv.URL + "/version")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/json" {
		t.Fatalf("Unexpected response: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
}
