package session

import (
	"sort"

	"github.com/carbocation/ddct"
)

// LoadCollapsed turns a collapsed replicate table into analysis rows. The
// configuration's Samples grouping variable is created, or extended, so that
// it lists every sample, and its genes default to those seen when none were set.
func LoadCollapsed(cfg ddct.ExperimentConfig, collapsed []ddct.CollapsedRow) (ddct.ExperimentConfig, []ddct.CtRow) {
	cfg = cfg.Clone()

	rows := make([]ddct.CtRow, 0, len(collapsed))
	samples := make(map[string]struct{})
	genes := make(map[string]struct{})
	for _, c := range collapsed {
		rows = append(rows, ddct.CtRow{
			SampleID: c.SampleID,
			Gene:     c.Gene,
			Ct:       ddct.CtScalar(c.Ct),
			Metadata: make(map[string]string),
		})
		samples[c.SampleID] = struct{}{}
		genes[c.Gene] = struct{}{}
	}

	merged := false
	for i, gv := range cfg.GroupingVariables {
		if gv.Name != ddct.SamplesGrouping {
			continue
		}
		// Existing samples keep their order; newly seen ones follow.
		values := append(append([]string{}, gv.Values...), sortedSet(samples)...)
		cfg.GroupingVariables[i] = ddct.NewGroupingVariable(ddct.SamplesGrouping, values)
		merged = true
	}
	if !merged {
		gv := ddct.NewGroupingVariable(ddct.SamplesGrouping, sortedSet(samples))
		cfg.GroupingVariables = append([]ddct.GroupingVariable{gv}, cfg.GroupingVariables...)
	}

	if len(cfg.Genes) == 0 {
		cfg.Genes = sortedSet(genes)
	}

	cfg.Groups = cfg.DeriveGroups()

	return cfg, rows
}

// AssignMetadata stamps every row with its sample's condition for each
// grouping variable. The Samples variable defaults to the sample ID. A
// condition nobody assigned is left unset; metadata already on the row for
// other keys is kept.
func AssignMetadata(rows []ddct.CtRow, sampleMetadata map[string]map[string]string, gvs []ddct.GroupingVariable) []ddct.CtRow {
	out := make([]ddct.CtRow, 0, len(rows))

	for _, r := range rows {
		row := r.Clone()
		if row.Metadata == nil {
			row.Metadata = make(map[string]string)
		}

		for _, gv := range gvs {
			value := sampleMetadata[row.SampleID][gv.Name]
			if value == "" && gv.Name == ddct.SamplesGrouping {
				value = row.SampleID
			}
			if value == "" {
				continue
			}
			row.Metadata[gv.Name] = value
		}

		out = append(out, row)
	}

	return out
}

// Load replaces the session's rows with a collapsed table.
func (s *Session) Load(collapsed []ddct.CollapsedRow) {
	s.Config, s.Rows = LoadCollapsed(s.Config, collapsed)
}

// Assign records one sample's condition for a grouping variable.
func (s *Session) Assign(sampleID, variable, value string) {
	if s.SampleMetadata == nil {
		s.SampleMetadata = make(map[string]map[string]string)
	}
	if s.SampleMetadata[sampleID] == nil {
		s.SampleMetadata[sampleID] = make(map[string]string)
	}
	s.SampleMetadata[sampleID][variable] = value
}

// Snapshot is a deep copy that later edits to s cannot reach.
func (s *Session) Snapshot() *Session {
	out := &Session{
		Config: s.Config.Clone(),
		Rows:   make([]ddct.CtRow, 0, len(s.Rows)),
	}

	for _, r := range s.Rows {
		out.Rows = append(out.Rows, r.Clone())
	}

	if s.SampleMetadata != nil {
		out.SampleMetadata = make(map[string]map[string]string, len(s.SampleMetadata))
		for sample, assigned := range s.SampleMetadata {
			m := make(map[string]string, len(assigned))
			for k, v := range assigned {
				m[k] = v
			}
			out.SampleMetadata[sample] = m
		}
	}

	return out
}

// AnalysisRows are the session's rows with sample metadata applied.
func (s *Session) AnalysisRows() []ddct.CtRow {
	return AssignMetadata(s.Rows, s.SampleMetadata, s.Config.GroupingVariables)
}

// Run validates a snapshot of the session and, if it is clean, processes
// it. Validation problems are returned instead of results; they are not an
// error.
func (s *Session) Run(opts ddct.Options) (*ddct.Results, []string, error) {
	snap := s.Snapshot()
	rows := snap.AnalysisRows()

	if problems := ddct.Validate(rows, snap.Config); len(problems) > 0 {
		return nil, problems, nil
	}

	res, err := ddct.Process(rows, snap.Config, opts)
	if err != nil {
		return nil, nil, err
	}

	return res, nil, nil
}

func sortedSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
