package ddct

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SamplesGrouping is the built-in grouping variable whose values are the
// sample IDs themselves.
const SamplesGrouping = "Samples"

// NotAssigned is the placeholder condition offered on every user-defined
// grouping variable.
const NotAssigned = "N/A"

// CtRow is one Ct measurement for a sample and gene, along with that row's
// grouping-variable assignments.
type CtRow struct {
	SampleID string            `json:"sample_id"`
	Gene     string            `json:"gene"`
	Ct       CtValue           `json:"ct"`
	Metadata map[string]string `json:"metadata"`
}

// Check rejects rows that are structurally malformed. Bad Ct values are not
// structural problems; they are reported by Validate and filtered by
// Process.
func (r CtRow) Check() error {
	if strings.TrimSpace(r.SampleID) == "" {
		return fmt.Errorf("row has an empty sample_id (gene %q)", r.Gene)
	}
	if strings.TrimSpace(r.Gene) == "" {
		return fmt.Errorf("row has an empty gene (sample %q)", r.SampleID)
	}
	return nil
}

// CheckRows runs Check on every row and reports the first failure with its
// index.
func CheckRows(rows []CtRow) error {
	for i, r := range rows {
		if err := r.Check(); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the row.
func (r CtRow) Clone() CtRow {
	out := r
	out.Ct = CtValue{values: r.Ct.Values(), sequence: r.Ct.sequence}
	if r.Metadata != nil {
		out.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

type GroupingVariable struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// NewGroupingVariable trims and de-duplicates values. Every variable other
// than the Samples axis gets NotAssigned as its first value.
func NewGroupingVariable(name string, values []string) GroupingVariable {
	name = strings.TrimSpace(name)

	seen := make(map[string]struct{})
	out := make([]string, 0, len(values)+1)
	if name != SamplesGrouping {
		out = append(out, NotAssigned)
		seen[NotAssigned] = struct{}{}
	}

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	return GroupingVariable{Name: name, Values: out}
}

// Has reports whether value is one of the variable's conditions.
func (g GroupingVariable) Has(value string) bool {
	for _, v := range g.Values {
		if v == value {
			return true
		}
	}
	return false
}

// UnmarshalJSON also accepts "acceptable_values", which older session files
// used for the value list.
func (g *GroupingVariable) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name             string   `json:"name"`
		Values           []string `json:"values"`
		AcceptableValues []string `json:"acceptable_values"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	g.Name = raw.Name
	g.Values = raw.Values
	if g.Values == nil {
		g.Values = raw.AcceptableValues
	}

	return nil
}

// ExperimentConfig describes one analysis. Genes and ReferenceGenes are sets
// but are kept as slices so that the user's ordering survives a round trip.
type ExperimentConfig struct {
	Genes              []string            `json:"genes"`
	ReferenceGenes     []string            `json:"reference_genes"`
	GroupingVariables  []GroupingVariable  `json:"grouping_variables"`
	ReferenceGrouping  string              `json:"reference_grouping"`
	ReferenceCondition string              `json:"reference_condition"`
	Groups             map[string][]string `json:"groups"`
}

// DeriveGroups builds the name => values view of the grouping variables.
func (c ExperimentConfig) DeriveGroups() map[string][]string {
	out := make(map[string][]string, len(c.GroupingVariables))
	for _, gv := range c.GroupingVariables {
		vals := make([]string, len(gv.Values))
		copy(vals, gv.Values)
		out[gv.Name] = vals
	}
	return out
}

// Normalize returns a copy whose Groups view matches GroupingVariables and
// whose ReferenceGrouping defaults to the first grouping variable.
func (c ExperimentConfig) Normalize() ExperimentConfig {
	out := c.Clone()
	out.Groups = out.DeriveGroups()
	if out.ReferenceGrouping == "" && len(out.GroupingVariables) > 0 {
		out.ReferenceGrouping = out.GroupingVariables[0].Name
	}
	return out
}

// GroupValues returns the acceptable values for the named grouping
// variable, preferring the denormalized Groups view when it is populated.
func (c ExperimentConfig) GroupValues(name string) ([]string, bool) {
	if c.Groups != nil {
		vals, ok := c.Groups[name]
		return vals, ok
	}

	for _, gv := range c.GroupingVariables {
		if gv.Name == name {
			return gv.Values, true
		}
	}

	return nil, false
}

// LookupGroupingVariable finds a grouping variable by name.
func (c ExperimentConfig) LookupGroupingVariable(name string) (GroupingVariable, bool) {
	for _, gv := range c.GroupingVariables {
		if gv.Name == name {
			return gv, true
		}
	}
	return GroupingVariable{}, false
}

// IsReferenceGene reports whether gene is one of the housekeeping genes.
func (c ExperimentConfig) IsReferenceGene(gene string) bool {
	for _, g := range c.ReferenceGenes {
		if g == gene {
			return true
		}
	}
	return false
}

// TargetGenes are the configured genes that are not reference genes.
func (c ExperimentConfig) TargetGenes() []string {
	out := make([]string, 0, len(c.Genes))
	for _, g := range c.Genes {
		if !c.IsReferenceGene(g) {
			out = append(out, g)
		}
	}
	return out
}

// Clone returns a deep copy of the configuration.
func (c ExperimentConfig) Clone() ExperimentConfig {
	out := ExperimentConfig{
		Genes:              append([]string(nil), c.Genes...),
		ReferenceGenes:     append([]string(nil), c.ReferenceGenes...),
		ReferenceGrouping:  c.ReferenceGrouping,
		ReferenceCondition: c.ReferenceCondition,
	}

	if c.GroupingVariables != nil {
		out.GroupingVariables = make([]GroupingVariable, 0, len(c.GroupingVariables))
		for _, gv := range c.GroupingVariables {
			out.GroupingVariables = append(out.GroupingVariables, GroupingVariable{
				Name:   gv.Name,
				Values: append([]string(nil), gv.Values...),
			})
		}
	}

	if c.Groups != nil {
		out.Groups = make(map[string][]string, len(c.Groups))
		for k, v := range c.Groups {
			out.Groups[k] = append([]string(nil), v...)
		}
	}

	return out
}
