package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/carbocation/ddct"
	"github.com/carbocation/ddct/compileinfo"
	"github.com/carbocation/ddct/plot"
	"github.com/carbocation/ddct/session"
	"github.com/carbocation/ddct/store"
	"github.com/gorilla/mux"
)

// Request bodies are small JSON documents.
const maxBodyBytes = 32 << 20

func (h *handler) Version(w http.ResponseWriter, r *http.Request) {
	writeJSON(h, w, r, http.StatusOK, compileinfo.Get())
}

// Validate reports both configuration gaps and data problems for the
// posted session.
func (h *handler) Validate(w http.ResponseWriter, r *http.Request) {
	sess, err := session.Import(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		JSONError(h, w, r, err, http.StatusBadRequest)
		return
	}

	output := struct {
		Readiness []string `json:"readiness"`
		Problems  []string `json:"problems"`
	}{
		Readiness: ddct.Readiness(sess.Config),
		Problems:  ddct.Validate(sess.AnalysisRows(), sess.Config),
	}

	writeJSON(h, w, r, http.StatusOK, output)
}

type processOutput struct {
	RunID    string        `json:"run_id,omitempty"`
	Problems []string      `json:"problems,omitempty"`
	Results  *ddct.Results `json:"results,omitempty"`
}

// Process runs the analysis on the posted session. Query parameters:
// reference_axis, strict (true/false) and archive (true/false).
func (h *handler) Process(w http.ResponseWriter, r *http.Request) {
	sess, err := session.Import(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		JSONError(h, w, r, err, http.StatusBadRequest)
		return
	}

	opts := ddct.Options{ReferenceAxis: r.FormValue("reference_axis")}
	if strict, _ := strconv.ParseBool(r.FormValue("strict")); strict {
		opts.MetadataPolicy = ddct.RequireHomogeneous
	}

	results, problems, err := sess.Run(opts)
	var confErr *ddct.ConfigurationError
	var conflict *ddct.MetadataConflictError
	if errors.As(err, &confErr) || errors.As(err, &conflict) {
		JSONError(h, w, r, err, http.StatusUnprocessableEntity)
		return
	} else if err != nil {
		JSONError(h, w, r, err)
		return
	}

	if len(problems) > 0 {
		writeJSON(h, w, r, http.StatusUnprocessableEntity, processOutput{Problems: problems})
		return
	}

	output := processOutput{Results: results}

	if archive, _ := strconv.ParseBool(r.FormValue("archive")); archive {
		if h.db == nil {
			JSONError(h, w, r, fmt.Errorf("this server does not archive runs"), http.StatusBadRequest)
			return
		}

		output.RunID, err = h.db.SaveRun(r.Context(), sess, results)
		if err != nil {
			JSONError(h, w, r, err)
			return
		}
	}

	writeJSON(h, w, r, http.StatusOK, output)
}

type plotRequest struct {
	Results *ddct.Results `json:"results"`
	Options plot.Options  `json:"options"`
}

// Plot renders one facet of posted results as a PNG. The facet query
// parameter picks which, in label order; the default is the first.
func (h *handler) Plot(w http.ResponseWriter, r *http.Request) {
	req := plotRequest{}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		JSONError(h, w, r, err, http.StatusBadRequest)
		return
	}

	var err error
	if req.Options.YScale, err = plot.ParseYScale(string(req.Options.YScale)); err != nil {
		JSONError(h, w, r, err, http.StatusBadRequest)
		return
	}
	if req.Options.Kind, err = plot.ParseKind(string(req.Options.Kind)); err != nil {
		JSONError(h, w, r, err, http.StatusBadRequest)
		return
	}

	points, err := plot.Prepare(req.Results, req.Options)
	if err != nil {
		JSONError(h, w, r, err, http.StatusUnprocessableEntity)
		return
	}

	facets := plot.Facets(points, req.Options)
	facetIndex := 0
	if f := r.FormValue("facet"); f != "" {
		facetIndex, err = strconv.Atoi(f)
		if err != nil || facetIndex < 0 || facetIndex >= len(facets) {
			JSONError(h, w, r, fmt.Errorf("facet must be between 0 and %d", len(facets)-1), http.StatusBadRequest)
			return
		}
	}

	// Render fully before writing so that a failure can still be reported
	var buf bytes.Buffer
	if err := plot.Render(&buf, facets[facetIndex], req.Options); err != nil {
		JSONError(h, w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Facet-Count", strconv.Itoa(len(facets)))
	w.Header().Set("X-Facet-Label", facets[facetIndex].Label)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Println(r.Host, r.URL.Path, ":", err)
	}
}

func (h *handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		JSONError(h, w, r, fmt.Errorf("this server does not archive runs"), http.StatusNotFound)
		return
	}

	runs, err := h.db.ListRuns(r.Context())
	if err != nil {
		JSONError(h, w, r, err)
		return
	}

	writeJSON(h, w, r, http.StatusOK, runs)
}

func (h *handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		JSONError(h, w, r, fmt.Errorf("this server does not archive runs"), http.StatusNotFound)
		return
	}

	run, err := h.db.LoadRun(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		JSONError(h, w, r, err, http.StatusNotFound)
		return
	} else if err != nil {
		JSONError(h, w, r, err)
		return
	}

	writeJSON(h, w, r, http.StatusOK, run)
}
