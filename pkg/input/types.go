// Package input defines the read-only snapshot of collaborator outputs the
// planner consumes: audit results, risk scores, policy metadata, recommender
// candidates, execution history, and drift context. The planner owns none of
// these; it only reads them for the duration of one planning call.
package input

import (
	"fmt"
	"time"
)

// AuditResult is a single pass/fail outcome from the audit engine
type AuditResult struct {
	PolicyID string `json:"policy_id" yaml:"policy_id"`
	Passed   bool   `json:"passed" yaml:"passed"`
	Message  string `json:"message" yaml:"message"`
}

// PolicyMetadata describes a policy as declared by the policy catalogue.
// The planner treats every field as opaque caller-supplied fact.
type PolicyMetadata struct {
	ID          string `json:"policy_id" yaml:"policy_id"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Platform    string `json:"platform" yaml:"platform"`
	Severity    string `json:"severity" yaml:"severity"`
	Category    string `json:"category,omitempty" yaml:"category,omitempty"`

	// Prerequisites lists policy IDs that must be passing before this
	// policy can be remediated
	Prerequisites []string `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
	// ConflictsWith lists policy IDs whose remediation conflicts with this one
	ConflictsWith []string `json:"conflicts_with,omitempty" yaml:"conflicts_with,omitempty"`
	// AffectedServices lists services disrupted by remediating this policy
	AffectedServices []string `json:"affected_services,omitempty" yaml:"affected_services,omitempty"`
	// DisruptionRisk is "", "low", "medium" or "high"
	DisruptionRisk string `json:"disruption_risk,omitempty" yaml:"disruption_risk,omitempty"`

	// Reversible defaults to true when unset
	Reversible *bool `json:"reversible,omitempty" yaml:"reversible,omitempty"`
	// Applicable defaults to true when unset
	Applicable *bool `json:"applicable,omitempty" yaml:"applicable,omitempty"`
	// RebootRequired marks policies whose remediation needs a reboot
	RebootRequired bool `json:"reboot_required,omitempty" yaml:"reboot_required,omitempty"`
}

// IsReversible reports whether remediation of this policy can be rolled back.
// Unset means reversible.
func (p *PolicyMetadata) IsReversible() bool {
	return p.Reversible == nil || *p.Reversible
}

// IsApplicable reports whether this policy applies to the current
// configuration. Unset means applicable.
func (p *PolicyMetadata) IsApplicable() bool {
	return p.Applicable == nil || *p.Applicable
}

// Candidate is a policy the external recommender proposed for remediation.
// The planner never invents candidates beyond this set.
type Candidate struct {
	PolicyID  string  `json:"policy_id" yaml:"policy_id"`
	Relevance float64 `json:"relevance,omitempty" yaml:"relevance,omitempty"`
	Reason    string  `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Recommendations is the recommender output: candidates plus any warnings it
// raised while producing them
type Recommendations struct {
	Candidates []Candidate `json:"candidates" yaml:"candidates"`
	Warnings   []string    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// ExecutionOutcome is one historical remediation attempt for a policy
type ExecutionOutcome struct {
	PolicyID          string    `json:"policy_id" yaml:"policy_id"`
	Timestamp         time.Time `json:"timestamp" yaml:"timestamp"`
	Success           bool      `json:"success" yaml:"success"`
	ErrorMessage      string    `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	RollbackAvailable bool      `json:"rollback_available" yaml:"rollback_available"`
	DurationMS        int64     `json:"duration_ms" yaml:"duration_ms"`
}

// DriftSummary is optional drift-detector context. It is attached to the
// plan's snapshot summary and never alters constraint logic.
type DriftSummary struct {
	Events      int    `json:"events" yaml:"events"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// PlannerInput is the immutable snapshot of everything the planner may
// consult during one planning call
type PlannerInput struct {
	CurrentAudit     []AuditResult      `json:"current_audit" yaml:"current_audit"`
	PreviousAudit    []AuditResult      `json:"previous_audit,omitempty" yaml:"previous_audit,omitempty"`
	RiskScores       map[string]float64 `json:"risk_scores" yaml:"risk_scores"`
	Policies         []PolicyMetadata   `json:"policies" yaml:"policies"`
	ExecutionHistory []ExecutionOutcome `json:"execution_history,omitempty" yaml:"execution_history,omitempty"`
	Recommendations  Recommendations    `json:"recommendations" yaml:"recommendations"`
	Drift            *DriftSummary      `json:"drift,omitempty" yaml:"drift,omitempty"`
	DisabledPolicies []string           `json:"disabled_policies,omitempty" yaml:"disabled_policies,omitempty"`
	CurrentPlatform  string             `json:"current_platform" yaml:"current_platform"`

	// SnapshotTime is when the current audit was taken
	SnapshotTime time.Time `json:"snapshot_time,omitempty" yaml:"snapshot_time,omitempty"`
	// SnapshotSource tags where the audit came from (e.g. "agent_sense")
	SnapshotSource string `json:"snapshot_source,omitempty" yaml:"snapshot_source,omitempty"`
}

// RiskForSeverity maps a policy severity to a default risk score, used when
// the external scorer supplied no score for a policy
func RiskForSeverity(severity string) float64 {
	switch severity {
	case "critical":
		return 0.9
	case "high":
		return 0.7
	case "medium":
		return 0.5
	case "low":
		return 0.3
	default:
		return 0.5
	}
}

// PolicyByID returns the metadata for a policy, or nil if unknown
func (in *PlannerInput) PolicyByID(id string) *PolicyMetadata {
	for i := range in.Policies {
		if in.Policies[i].ID == id {
			return &in.Policies[i]
		}
	}
	return nil
}

// AuditStatus returns (passed, known) for a policy in the current audit
func (in *PlannerInput) AuditStatus(id string) (bool, bool) {
	for _, r := range in.CurrentAudit {
		if r.PolicyID == id {
			return r.Passed, true
		}
	}
	return false, false
}

// PassingSet returns the set of policy IDs passing the current audit
func (in *PlannerInput) PassingSet() map[string]bool {
	passing := make(map[string]bool, len(in.CurrentAudit))
	for _, r := range in.CurrentAudit {
		if r.Passed {
			passing[r.PolicyID] = true
		}
	}
	return passing
}

// IsDisabled reports whether the operator explicitly disabled a policy
func (in *PlannerInput) IsDisabled(id string) bool {
	for _, d := range in.DisabledPolicies {
		if d == id {
			return true
		}
	}
	return false
}

// FailureCount returns the number of failed remediation attempts recorded
// for a policy
func (in *PlannerInput) FailureCount(id string) int {
	count := 0
	for _, o := range in.ExecutionHistory {
		if o.PolicyID == id && !o.Success {
			count++
		}
	}
	return count
}

// ComplianceRate returns the fraction of current audit results that passed.
// An empty audit counts as fully compliant.
func (in *PlannerInput) ComplianceRate() float64 {
	if len(in.CurrentAudit) == 0 {
		return 1.0
	}
	passed := 0
	for _, r := range in.CurrentAudit {
		if r.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(in.CurrentAudit))
}

// Validate checks the snapshot for the malformed-input conditions that abort
// planning: a missing platform identifier or a recommended candidate with no
// matching policy metadata.
func (in *PlannerInput) Validate() error {
	if in.CurrentPlatform == "" {
		return fmt.Errorf("planner input: current_platform is required")
	}
	for _, c := range in.Recommendations.Candidates {
		if c.PolicyID == "" {
			return fmt.Errorf("planner input: candidate with empty policy_id")
		}
		if in.PolicyByID(c.PolicyID) == nil {
			return fmt.Errorf("planner input: candidate %q has no matching policy metadata", c.PolicyID)
		}
	}
	return nil
}
