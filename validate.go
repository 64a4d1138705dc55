package ddct

import "fmt"

// Validate checks a configuration against a row set and returns
// human-readable problems. An empty result means the data can be
// processed. Every check runs; nothing short-circuits.
func Validate(rows []CtRow, cfg ExperimentConfig) []string {
	errs := make([]string, 0)

	genes := make(map[string]struct{})
	for _, r := range rows {
		genes[r.Gene] = struct{}{}
	}

	for _, ref := range cfg.ReferenceGenes {
		if _, exists := genes[ref]; !exists {
			errs = append(errs, fmt.Sprintf("missing reference gene: %s", ref))
		}
	}

	if len(cfg.GroupingVariables) == 0 {
		errs = append(errs, fmt.Sprintf("reference condition '%s' cannot be checked: no grouping variables are defined", cfg.ReferenceCondition))
	} else {
		axis := cfg.GroupingVariables[0].Name
		vals, _ := cfg.GroupValues(axis)
		if !contains(vals, cfg.ReferenceCondition) {
			errs = append(errs, fmt.Sprintf("reference condition '%s' not found in group '%s'", cfg.ReferenceCondition, axis))
		}
	}

	for _, r := range rows {
		if r.Ct.IsMissing() {
			errs = append(errs, fmt.Sprintf("missing Ct value for sample '%s', gene '%s'", r.SampleID, r.Gene))
		}
	}

	return errs
}

// Readiness lists what still has to be configured before an analysis makes
// sense. It complements Validate, which looks at the data.
func Readiness(cfg ExperimentConfig) []string {
	missing := make([]string, 0)

	if len(cfg.Genes) < 2 {
		missing = append(missing, "at least 2 genes must be defined")
	}
	if len(cfg.ReferenceGenes) < 1 {
		missing = append(missing, "select at least 1 reference gene")
	}
	if len(cfg.TargetGenes()) < 1 {
		missing = append(missing, "add at least 1 non-reference gene")
	}
	if len(cfg.GroupingVariables) == 0 {
		missing = append(missing, "define at least 1 grouping variable")
	}
	if cfg.ReferenceGrouping == "" {
		missing = append(missing, "select a reference grouping variable")
	}
	if cfg.ReferenceCondition == "" {
		missing = append(missing, "choose a reference condition for the selected grouping")
	} else if vals, _ := cfg.GroupValues(cfg.ReferenceGrouping); len(vals) < 2 {
		missing = append(missing, "the selected grouping must have at least 2 conditions")
	}

	return missing
}

func contains(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
