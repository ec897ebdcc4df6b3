package planner

import (
	"fmt"
	"sort"

	"github.com/nogap/remedy/pkg/goal"
	"github.com/nogap/remedy/pkg/input"
)

// sortCandidates establishes the canonical deterministic order: risk score
// descending, soft penalty ascending on ties, then policy ID for a total
// order.
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].risk != candidates[j].risk {
			return candidates[i].risk > candidates[j].risk
		}
		if candidates[i].eval.TotalPenalty != candidates[j].eval.TotalPenalty {
			return candidates[i].eval.TotalPenalty < candidates[j].eval.TotalPenalty
		}
		return candidates[i].policyID < candidates[j].policyID
	})
}

// restrictPool narrows the candidate pool for focus goals before ranking.
// A compliance-threshold goal may also carry an optional severity filter.
func restrictPool(candidates []candidate, g goal.Goal) []candidate {
	severities := severitySet(g)
	categories := categorySet(g)
	if severities == nil && categories == nil {
		return candidates
	}

	out := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if severities != nil && !severities[c.policy.Severity] {
			continue
		}
		if categories != nil && !categories[c.policy.Category] {
			continue
		}
		out = append(out, c)
	}
	return out
}

func severitySet(g goal.Goal) map[string]bool {
	if g.Kind != goal.KindSeverityFocus && g.Kind != goal.KindComplianceThreshold {
		return nil
	}
	if len(g.Parameters.TargetSeverities) == 0 {
		return nil
	}
	set := make(map[string]bool, len(g.Parameters.TargetSeverities))
	for _, s := range g.Parameters.TargetSeverities {
		set[s] = true
	}
	return set
}

func categorySet(g goal.Goal) map[string]bool {
	if g.Kind != goal.KindCategoryFocus || len(g.Parameters.TargetCategories) == 0 {
		return nil
	}
	set := make(map[string]bool, len(g.Parameters.TargetCategories))
	for _, c := range g.Parameters.TargetCategories {
		set[c] = true
	}
	return set
}

// applyComplianceThreshold keeps adding ranked candidates until the projected
// compliance rate reaches the goal's target. Other goal kinds keep the full
// ranked set.
func applyComplianceThreshold(candidates []candidate, g goal.Goal, in *input.PlannerInput) ([]candidate, string) {
	if g.Kind != goal.KindComplianceThreshold || g.Parameters.ComplianceThreshold == nil {
		return candidates, ""
	}

	target := *g.Parameters.ComplianceThreshold
	total := len(in.CurrentAudit)
	if total == 0 {
		return nil, "compliance target already met; no steps planned"
	}

	passed := 0
	for _, r := range in.CurrentAudit {
		if r.Passed {
			passed++
		}
	}

	selected := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if float64(passed)/float64(total) >= target {
			break
		}
		selected = append(selected, c)
		passed++
	}

	if len(selected) == 0 {
		return nil, "compliance target already met; no steps planned"
	}
	if len(selected) < len(candidates) {
		return selected, fmt.Sprintf("compliance target %.0f%% reached; %d candidates not scheduled",
			target*100, len(candidates)-len(selected))
	}
	return selected, ""
}
