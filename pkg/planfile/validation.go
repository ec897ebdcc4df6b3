package planfile

import (
	"fmt"
	"strings"
)

// ValidationError reports every structural invariant a plan violates
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("plan validation failed: %s", strings.Join(e.Violations, "; "))
}

// Validate checks a fully assembled plan against the structural invariants.
// It runs unconditionally after synthesis and again after every document
// mutation; a plan that fails validation is never handed to a caller.
//
// knownIDs is the set of policy identifiers from the planning input (the
// candidate set at synthesis time, the policy catalogue after user edits).
// When knownIDs is nil the membership check is skipped; every other check
// still applies.
func Validate(plan *Plan, knownIDs map[string]bool) error {
	if plan == nil {
		return &ValidationError{Violations: []string{"plan is nil"}}
	}

	var violations []string

	if plan.PlanType != PlanType {
		violations = append(violations, fmt.Sprintf("unsupported plan type: %q", plan.PlanType))
	}

	// A policy appears in at most one of steps, deferred, excluded
	seen := make(map[string]string)
	record := func(id, section string) {
		if prev, ok := seen[id]; ok {
			violations = append(violations,
				fmt.Sprintf("policy %q appears in both %s and %s", id, prev, section))
			return
		}
		seen[id] = section
	}
	for _, s := range plan.Steps {
		record(s.PolicyID, "steps")
	}
	for _, d := range plan.Deferred {
		record(d.PolicyID, "deferred")
	}
	for _, x := range plan.Excluded {
		record(x.PolicyID, "excluded")
	}

	if knownIDs != nil {
		for id := range seen {
			if !knownIDs[id] {
				violations = append(violations,
					fmt.Sprintf("policy %q not present in planning input", id))
			}
		}
	}

	// Priorities must be exactly 1..N
	for i, s := range plan.Steps {
		if s.Priority != i+1 {
			violations = append(violations,
				fmt.Sprintf("non-sequential priority: expected %d, got %d for policy %q", i+1, s.Priority, s.PolicyID))
		}
	}

	for _, s := range plan.Steps {
		if s.Confidence < 0.0 || s.Confidence > 1.0 {
			violations = append(violations,
				fmt.Sprintf("invalid confidence %.2f for policy %q", s.Confidence, s.PolicyID))
		}
		if s.Source != SourcePlanner && s.Source != SourceUser {
			violations = append(violations,
				fmt.Sprintf("invalid step source %q for policy %q", s.Source, s.PolicyID))
		}
	}

	if !plan.RequiresHumanApproval {
		violations = append(violations, "requires_human_approval must always be true")
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}
