package planfile

import (
	"time"

	"github.com/nogap/remedy/pkg/goal"
)

// PlanType is the only plan type this engine produces
const PlanType = "remediation"

// StepSource records who put a step into the plan
type StepSource string

const (
	// SourcePlanner marks a system-proposed step
	SourcePlanner StepSource = "planner"
	// SourceUser marks a manually added step
	SourceUser StepSource = "user"
)

// Step is a single ordered remediation action awaiting human approval
type Step struct {
	PolicyID string `json:"policy_id" yaml:"policy_id"`
	// Priority is the 1-based execution order, contiguous across the plan
	Priority int `json:"priority" yaml:"priority"`
	// Reason explains why this step is in the plan
	Reason string `json:"reason" yaml:"reason"`
	// RiskScore is the score used to rank this step
	RiskScore float64 `json:"risk_score" yaml:"risk_score"`
	// Confidence is in [0,1] and degrades with applied soft constraints
	Confidence float64 `json:"confidence" yaml:"confidence"`
	// ConstraintsConsidered names the soft constraints weighed during planning
	ConstraintsConsidered []string   `json:"constraints_considered" yaml:"constraints_considered"`
	ExpectedImpact        string     `json:"expected_impact,omitempty" yaml:"expected_impact,omitempty"`
	EstimatedDurationMins int        `json:"estimated_duration_minutes,omitempty" yaml:"estimated_duration_minutes,omitempty"`
	Source                StepSource `json:"source" yaml:"source"`
}

// DeferredEntry is a policy the engine itself excluded, either by hard
// constraint or by step-cap overflow
type DeferredEntry struct {
	PolicyID            string   `json:"policy_id" yaml:"policy_id"`
	Reason              string   `json:"reason" yaml:"reason"`
	BlockingConstraints []string `json:"blocking_constraints" yaml:"blocking_constraints"`
}

// ExcludedEntry is a step a human removed from the plan. Original source and
// priority are retained so the step can be restored without losing provenance.
type ExcludedEntry struct {
	PolicyID         string     `json:"policy_id" yaml:"policy_id"`
	Reason           string     `json:"reason" yaml:"reason"`
	ExcludedAt       time.Time  `json:"excluded_at" yaml:"excluded_at"`
	OriginalPriority int        `json:"original_priority" yaml:"original_priority"`
	OriginalSource   StepSource `json:"original_source" yaml:"original_source"`
	RiskScore        float64    `json:"risk_score" yaml:"risk_score"`
}

// SnapshotSummary summarizes the audit snapshot a plan was generated from
type SnapshotSummary struct {
	Timestamp      time.Time `json:"timestamp" yaml:"timestamp"`
	Source         string    `json:"source" yaml:"source"`
	PolicyCount    int       `json:"policy_count" yaml:"policy_count"`
	ComplianceRate float64   `json:"compliance_rate" yaml:"compliance_rate"`
	DriftEvents    int       `json:"drift_events,omitempty" yaml:"drift_events,omitempty"`
}

// Metadata records how a plan was generated
type Metadata struct {
	AIAssisted bool   `json:"ai_assisted" yaml:"ai_assisted"`
	AIModel    string `json:"ai_model,omitempty" yaml:"ai_model,omitempty"`
	// UsedDeterministicFallback is set when the AI ordering was rejected or
	// unavailable and the deterministic algorithm produced the order
	UsedDeterministicFallback bool     `json:"used_deterministic_fallback" yaml:"used_deterministic_fallback"`
	Warnings                  []string `json:"warnings" yaml:"warnings"`
	CandidatesConsidered      int      `json:"candidates_considered" yaml:"candidates_considered"`
	PlanningDurationMS        int64    `json:"planning_duration_ms" yaml:"planning_duration_ms"`
}

// Plan is the canonical remediation plan object. It is inert: nothing in it
// is ever executed without explicit human approval, and RequiresHumanApproval
// is true on every plan this engine emits.
type Plan struct {
	PlanID           string           `json:"plan_id" yaml:"plan_id"`
	PlanType         string           `json:"plan_type" yaml:"plan_type"`
	Goal             goal.Goal        `json:"goal" yaml:"goal"`
	GeneratedAt      time.Time        `json:"generated_at" yaml:"generated_at"`
	SourceSnapshot   SnapshotSummary  `json:"source_snapshot" yaml:"source_snapshot"`
	PreviousSnapshot *SnapshotSummary `json:"previous_snapshot,omitempty" yaml:"previous_snapshot,omitempty"`

	Steps    []Step          `json:"steps" yaml:"steps"`
	Deferred []DeferredEntry `json:"deferred" yaml:"deferred"`
	Excluded []ExcludedEntry `json:"excluded" yaml:"excluded"`

	RequiresHumanApproval bool       `json:"requires_human_approval" yaml:"requires_human_approval"`
	IsApproved            bool       `json:"is_approved" yaml:"is_approved"`
	ApprovedAt            *time.Time `json:"approved_at,omitempty" yaml:"approved_at,omitempty"`
	IsUserModified        bool       `json:"is_user_modified" yaml:"is_user_modified"`

	Metadata Metadata `json:"metadata" yaml:"metadata"`
}

// Clone returns a deep copy of the plan. Mutation workflows copy, edit and
// swap so readers never observe a torn document.
func (p *Plan) Clone() *Plan {
	c := *p

	c.Steps = make([]Step, len(p.Steps))
	copy(c.Steps, p.Steps)
	for i := range c.Steps {
		c.Steps[i].ConstraintsConsidered = append([]string(nil), p.Steps[i].ConstraintsConsidered...)
	}

	c.Deferred = make([]DeferredEntry, len(p.Deferred))
	copy(c.Deferred, p.Deferred)
	for i := range c.Deferred {
		c.Deferred[i].BlockingConstraints = append([]string(nil), p.Deferred[i].BlockingConstraints...)
	}

	c.Excluded = append([]ExcludedEntry(nil), p.Excluded...)
	c.Metadata.Warnings = append([]string(nil), p.Metadata.Warnings...)

	if p.PreviousSnapshot != nil {
		prev := *p.PreviousSnapshot
		c.PreviousSnapshot = &prev
	}
	if p.ApprovedAt != nil {
		at := *p.ApprovedAt
		c.ApprovedAt = &at
	}

	c.Goal.Parameters.TargetSeverities = append([]string(nil), p.Goal.Parameters.TargetSeverities...)
	c.Goal.Parameters.TargetCategories = append([]string(nil), p.Goal.Parameters.TargetCategories...)

	return &c
}

// StepIndex returns the index of the step for a policy, or -1
func (p *Plan) StepIndex(policyID string) int {
	for i := range p.Steps {
		if p.Steps[i].PolicyID == policyID {
			return i
		}
	}
	return -1
}

// ExcludedIndex returns the index of the excluded entry for a policy, or -1
func (p *Plan) ExcludedIndex(policyID string) int {
	for i := range p.Excluded {
		if p.Excluded[i].PolicyID == policyID {
			return i
		}
	}
	return -1
}

// HasPolicy reports whether a policy appears anywhere in the plan
// (steps, deferred or excluded)
func (p *Plan) HasPolicy(policyID string) bool {
	if p.StepIndex(policyID) >= 0 || p.ExcludedIndex(policyID) >= 0 {
		return true
	}
	for i := range p.Deferred {
		if p.Deferred[i].PolicyID == policyID {
			return true
		}
	}
	return false
}

// Renumber reassigns contiguous 1..N priorities in current step order
func (p *Plan) Renumber() {
	for i := range p.Steps {
		p.Steps[i].Priority = i + 1
	}
}

// UserAddedCount returns the number of steps added manually by a user
func (p *Plan) UserAddedCount() int {
	n := 0
	for i := range p.Steps {
		if p.Steps[i].Source == SourceUser {
			n++
		}
	}
	return n
}
