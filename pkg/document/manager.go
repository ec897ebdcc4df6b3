// Package document owns the lifecycle of a generated plan: human approval,
// user edits (remove, restore, add), and re-approval gating after edits.
// The manager holds at most one plan document per operator session.
package document

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nogap/remedy/pkg/constraint"
	"github.com/nogap/remedy/pkg/input"
	"github.com/nogap/remedy/pkg/planfile"
)

// MutationError reports a rejected plan mutation. The prior plan document is
// always left unchanged when one is returned.
type MutationError struct {
	Op     string
	Reason string
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// Manager serializes all mutations of the current plan document. Every
// mutation edits a clone and swaps the whole document in on success, so a
// concurrent read never observes a torn plan.
type Manager struct {
	mu       sync.Mutex
	plan     *planfile.Plan
	snapshot *input.PlannerInput

	evaluator constraint.Evaluator
}

// NewManager creates an empty plan document manager. The failure threshold
// mirrors the planner's and is used when eligibility-checking user additions.
func NewManager(failureThreshold int) *Manager {
	return &Manager{evaluator: constraint.NewEvaluator(failureThreshold)}
}

// SetPlan installs a freshly generated plan together with the input snapshot
// it was generated from. It replaces any existing document.
func (m *Manager) SetPlan(plan *planfile.Plan, snapshot *input.PlannerInput) error {
	if plan == nil {
		return &MutationError{Op: "set_plan", Reason: "plan is nil"}
	}
	if err := planfile.Validate(plan, m.knownIDs(snapshot)); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.plan = plan.Clone()
	m.snapshot = snapshot
	return nil
}

// Current returns a copy of the current plan document, or nil when no plan
// is loaded.
func (m *Manager) Current() *planfile.Plan {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.plan == nil {
		return nil
	}
	return m.plan.Clone()
}

// Clear drops the current plan document.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plan = nil
	m.snapshot = nil
}

// Remove moves a step into the excluded list, retaining its original source
// and priority so it can be restored later. Remaining steps are renumbered
// and any approval is revoked.
func (m *Manager) Remove(policyID, reason string) (*planfile.Plan, error) {
	if reason == "" {
		reason = "Removed by user"
	}

	return m.mutate("remove_step", func(plan *planfile.Plan) error {
		idx := plan.StepIndex(policyID)
		if idx < 0 {
			return &MutationError{Op: "remove_step", Reason: fmt.Sprintf("policy %s is not a step in the current plan", policyID)}
		}

		step := plan.Steps[idx]
		plan.Excluded = append(plan.Excluded, planfile.ExcludedEntry{
			PolicyID:         step.PolicyID,
			Reason:           reason,
			ExcludedAt:       time.Now(),
			OriginalPriority: step.Priority,
			OriginalSource:   step.Source,
			RiskScore:        step.RiskScore,
		})
		plan.Steps = append(plan.Steps[:idx], plan.Steps[idx+1:]...)
		plan.Renumber()
		return nil
	})
}

// Restore moves an excluded entry back into the steps, appended at the next
// priority with its original source tag preserved.
func (m *Manager) Restore(policyID string) (*planfile.Plan, error) {
	return m.mutate("restore_step", func(plan *planfile.Plan) error {
		idx := plan.ExcludedIndex(policyID)
		if idx < 0 {
			return &MutationError{Op: "restore_step", Reason: fmt.Sprintf("policy %s is not excluded from the current plan", policyID)}
		}

		entry := plan.Excluded[idx]
		plan.Excluded = append(plan.Excluded[:idx], plan.Excluded[idx+1:]...)
		plan.Steps = append(plan.Steps, planfile.Step{
			PolicyID:              entry.PolicyID,
			Priority:              len(plan.Steps) + 1,
			Reason:                "Restored by user",
			RiskScore:             entry.RiskScore,
			Confidence:            userStepConfidence,
			ConstraintsConsidered: []string{},
			Source:                entry.OriginalSource,
		})
		return nil
	})
}

// userStepConfidence is the confidence assigned to manually added or
// restored steps, which carry no planner constraint evaluation
const userStepConfidence = 0.5

// Add appends a user-chosen policy as a new step. The policy must be absent
// from the plan, currently failing its audit, and free of hard constraints
// against the latest input snapshot.
func (m *Manager) Add(policyID string) (*planfile.Plan, error) {
	return m.mutate("add_step", func(plan *planfile.Plan) error {
		if plan.HasPolicy(policyID) {
			return &MutationError{Op: "add_step", Reason: fmt.Sprintf("policy %s is already present in the plan", policyID)}
		}
		if m.snapshot == nil {
			return &MutationError{Op: "add_step", Reason: "no input snapshot available to check eligibility"}
		}

		policy := m.snapshot.PolicyByID(policyID)
		if policy == nil {
			return &MutationError{Op: "add_step", Reason: fmt.Sprintf("policy %s is not in the policy catalogue", policyID)}
		}
		if passed, known := m.snapshot.AuditStatus(policyID); known && passed {
			return &MutationError{Op: "add_step", Reason: fmt.Sprintf("policy %s is already compliant", policyID)}
		}

		eval, err := m.evaluator.Evaluate(policyID, m.snapshot)
		if err != nil {
			return err
		}
		if eval.Deferred() {
			return &MutationError{Op: "add_step", Reason: fmt.Sprintf("policy %s is blocked: %s", policyID, strings.Join(eval.HardNames(), ", "))}
		}

		risk, ok := m.snapshot.RiskScores[policyID]
		if !ok {
			risk = input.RiskForSeverity(policy.Severity)
		}

		plan.Steps = append(plan.Steps, planfile.Step{
			PolicyID:              policyID,
			Priority:              len(plan.Steps) + 1,
			Reason:                "Manually added by user",
			RiskScore:             risk,
			Confidence:            userStepConfidence,
			ConstraintsConsidered: eval.SoftNames(),
			Source:                planfile.SourceUser,
		})
		return nil
	})
}

// Approve marks the current plan as approved. Approving a user-modified plan
// requires explicit acknowledgment of the modifications. Approving an
// already-approved plan is a no-op.
func (m *Manager) Approve(planID string, acknowledgeModifications bool) (*planfile.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.plan == nil {
		return nil, &MutationError{Op: "approve_plan", Reason: "no plan document loaded"}
	}
	if planID != "" && planID != m.plan.PlanID {
		return nil, &MutationError{Op: "approve_plan", Reason: fmt.Sprintf("plan id %s does not match current plan %s", planID, m.plan.PlanID)}
	}

	if m.plan.IsApproved {
		return m.plan.Clone(), nil
	}

	if m.plan.IsUserModified && !acknowledgeModifications {
		return nil, &MutationError{
			Op: "approve_plan",
			Reason: fmt.Sprintf("plan has %d user-added and %d excluded steps; approval requires acknowledging the modifications",
				m.plan.UserAddedCount(), len(m.plan.Excluded)),
		}
	}

	next := m.plan.Clone()
	now := time.Now()
	next.IsApproved = true
	next.ApprovedAt = &now

	if err := planfile.Validate(next, m.knownIDs(m.snapshot)); err != nil {
		return nil, err
	}

	m.plan = next
	return next.Clone(), nil
}

// mutate runs an edit against a clone of the current plan, revokes approval,
// re-validates, and swaps the clone in. Any error leaves the prior document
// untouched.
func (m *Manager) mutate(op string, edit func(*planfile.Plan) error) (*planfile.Plan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.plan == nil {
		return nil, &MutationError{Op: op, Reason: "no plan document loaded"}
	}

	next := m.plan.Clone()
	if err := edit(next); err != nil {
		return nil, err
	}

	// Every successful edit revokes approval and marks the plan modified
	next.IsUserModified = true
	next.IsApproved = false
	next.ApprovedAt = nil

	if err := planfile.Validate(next, m.knownIDs(m.snapshot)); err != nil {
		return nil, err
	}

	m.plan = next
	return next.Clone(), nil
}

// knownIDs builds the membership set for plan validation from the policy
// catalogue. User additions come from the catalogue, not only from the
// recommender's candidates, so the catalogue is the membership universe here.
func (m *Manager) knownIDs(snapshot *input.PlannerInput) map[string]bool {
	if snapshot == nil {
		return nil
	}
	known := make(map[string]bool, len(snapshot.Policies))
	for i := range snapshot.Policies {
		known[snapshot.Policies[i].ID] = true
	}
	return known
}
