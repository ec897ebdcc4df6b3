package constraint

import (
	"strings"

	"github.com/nogap/remedy/pkg/input"
)

// Evaluator classifies candidate policies against the constraint catalogue.
// Evaluation is a pure lookup over the supplied snapshot; it never mutates
// the input.
type Evaluator struct {
	// FailureThreshold is the failure count at which the historical-failure
	// soft constraint starts to apply
	FailureThreshold int
}

// NewEvaluator returns an evaluator with the given failure threshold.
// A threshold below 1 is treated as 1.
func NewEvaluator(failureThreshold int) Evaluator {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return Evaluator{FailureThreshold: failureThreshold}
}

// Evaluate returns the hard and soft constraints that apply to one candidate
// policy given the full planner input.
func (ev Evaluator) Evaluate(policyID string, in *input.PlannerInput) (Evaluation, error) {
	eval := Evaluation{PolicyID: policyID}

	policy := in.PolicyByID(policyID)
	if policy == nil {
		// Input validation rejects this case before planning starts
		eval.addHard(Hard{Kind: NotApplicable})
		return eval, nil
	}

	ev.checkHard(policy, in, &eval)
	if eval.Deferred() {
		return eval, nil
	}

	if err := ev.checkSoft(policy, in, &eval); err != nil {
		return eval, err
	}
	return eval, nil
}

func (ev Evaluator) checkHard(policy *input.PolicyMetadata, in *input.PlannerInput, eval *Evaluation) {
	if !PlatformMatches(policy.Platform, in.CurrentPlatform) {
		eval.addHard(Hard{Kind: PlatformMismatch})
	}

	if !policy.IsApplicable() {
		eval.addHard(Hard{Kind: NotApplicable})
	}

	passing := in.PassingSet()
	for _, prereq := range policy.Prerequisites {
		if !passing[prereq] {
			eval.addHard(Hard{Kind: MissingPrerequisite, PrerequisiteID: prereq})
		}
	}

	if in.IsDisabled(policy.ID) {
		eval.addHard(Hard{Kind: ExplicitlyDisabled})
	}
}

func (ev Evaluator) checkSoft(policy *input.PolicyMetadata, in *input.PlannerInput, eval *Evaluation) error {
	if policy.RebootRequired {
		if err := eval.addSoft(Soft{Kind: RequiresReboot}); err != nil {
			return err
		}
	}

	if !policy.IsReversible() {
		if err := eval.addSoft(Soft{Kind: RollbackUnavailable}); err != nil {
			return err
		}
	}

	if failures := in.FailureCount(policy.ID); failures >= ev.FailureThreshold {
		if err := eval.addSoft(Soft{Kind: HistoricalFailure, FailureCount: failures}); err != nil {
			return err
		}
	}

	if len(policy.AffectedServices) > 1 {
		if err := eval.addSoft(Soft{Kind: HighBlastRadius, AffectedServices: policy.AffectedServices}); err != nil {
			return err
		}
	}

	if policy.DisruptionRisk != "" {
		if err := eval.addSoft(Soft{Kind: ServiceDisruptionRisk, DisruptionLevel: policy.DisruptionRisk}); err != nil {
			return err
		}
	}

	for _, conflict := range policy.ConflictsWith {
		if err := eval.addSoft(Soft{Kind: ConflictsWithPolicy, ConflictingID: conflict}); err != nil {
			return err
		}
	}

	return nil
}

// PlatformMatches reports whether a policy's declared platform covers the
// current system. "all" covers everything; "windows" and "linux" match their
// common distribution variants.
func PlatformMatches(policyPlatform, currentPlatform string) bool {
	policy := strings.ToLower(policyPlatform)
	current := strings.ToLower(currentPlatform)

	if policy == current || policy == "all" {
		return true
	}

	if policy == "windows" {
		return strings.Contains(current, "windows") ||
			strings.Contains(current, "win32") ||
			strings.Contains(current, "win64")
	}

	if policy == "linux" {
		for _, variant := range []string{"linux", "ubuntu", "debian", "rhel", "centos"} {
			if strings.Contains(current, variant) {
				return true
			}
		}
	}

	return false
}
