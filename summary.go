package ddct

import (
	"fmt"
	"strings"
)

// MethodsSummary drafts the methods paragraph for a configured experiment.
func MethodsSummary(cfg ExperimentConfig, sampleCount int) string {
	others := make([]string, 0)
	vals, _ := cfg.GroupValues(cfg.ReferenceGrouping)
	for _, v := range vals {
		if v != cfg.ReferenceCondition {
			others = append(others, v)
		}
	}

	groupings := make([]string, 0, len(cfg.GroupingVariables))
	for _, gv := range cfg.GroupingVariables {
		groupings = append(groupings, fmt.Sprintf("%s (%s)", gv.Name, strings.Join(gv.Values, ", ")))
	}

	b := strings.Builder{}
	fmt.Fprintf(&b, "Gene expression analysis was performed on %d samples across %d targets ", sampleCount, len(cfg.Genes))
	fmt.Fprintf(&b, "(%s, normalized to %s) using the ΔΔCt method. ", strings.Join(cfg.TargetGenes(), ", "), strings.Join(cfg.ReferenceGenes, ", "))
	fmt.Fprintf(&b, "Samples were grouped by %s, with %s defined as the reference condition", cfg.ReferenceGrouping, cfg.ReferenceCondition)
	if len(others) > 0 {
		fmt.Fprintf(&b, " and comparisons made against other conditions including %s", strings.Join(others, ", "))
	}
	b.WriteString(".")
	if len(groupings) > 0 {
		fmt.Fprintf(&b, "\n\nExperimental grouping variables included: %s.", strings.Join(groupings, "; "))
	}

	return b.String()
}

// SampleCount counts distinct sample IDs.
func SampleCount(rows []CtRow) int {
	seen := make(map[string]struct{})
	for _, r := range rows {
		seen[r.SampleID] = struct{}{}
	}
	return len(seen)
}
