// Package constraint implements the closed catalogue of hard and soft
// remediation constraints and the evaluator that classifies candidate
// policies against it. Hard constraints disqualify a candidate from the plan;
// soft constraints carry penalties that affect ordering and confidence only.
package constraint

import (
	"fmt"
)

// HardKind identifies a disqualifying constraint
type HardKind string

const (
	// PlatformMismatch means the policy platform does not match the current system
	PlatformMismatch HardKind = "platform_mismatch"
	// NotApplicable means the policy does not apply to the current configuration
	NotApplicable HardKind = "policy_not_applicable"
	// MissingPrerequisite means a declared prerequisite policy is not passing
	MissingPrerequisite HardKind = "missing_prerequisite"
	// ExplicitlyDisabled means the operator disabled the policy
	ExplicitlyDisabled HardKind = "explicitly_disabled_by_user"
)

// Hard is one applied hard constraint
type Hard struct {
	Kind           HardKind `json:"kind" yaml:"kind"`
	PrerequisiteID string   `json:"prerequisite_id,omitempty" yaml:"prerequisite_id,omitempty"`
}

// Description returns the human-readable reason for this constraint
func (h Hard) Description() string {
	switch h.Kind {
	case PlatformMismatch:
		return "Policy platform does not match current system"
	case NotApplicable:
		return "Policy is not applicable to current configuration"
	case MissingPrerequisite:
		return fmt.Sprintf("Missing prerequisite policy: %s", h.PrerequisiteID)
	case ExplicitlyDisabled:
		return "Policy explicitly disabled by user"
	default:
		return fmt.Sprintf("Unknown constraint: %s", h.Kind)
	}
}

// SoftKind identifies a penalty-weighted constraint
type SoftKind string

const (
	// RequiresReboot penalizes remediations that need a system reboot
	RequiresReboot SoftKind = "requires_reboot"
	// HistoricalFailure penalizes policies that failed remediation before
	HistoricalFailure SoftKind = "historical_failure"
	// RollbackUnavailable penalizes irreversible remediations
	RollbackUnavailable SoftKind = "rollback_unavailable"
	// HighBlastRadius penalizes remediations affecting many services
	HighBlastRadius SoftKind = "high_blast_radius"
	// ServiceDisruptionRisk penalizes remediations that may disrupt services
	ServiceDisruptionRisk SoftKind = "service_disruption_risk"
	// ConflictsWithPolicy penalizes policies that conflict with another policy
	ConflictsWithPolicy SoftKind = "conflicts_with_other_policy"
)

// Soft is one applied soft constraint with its supporting data
type Soft struct {
	Kind SoftKind `json:"kind" yaml:"kind"`

	FailureCount     int      `json:"failure_count,omitempty" yaml:"failure_count,omitempty"`
	AffectedServices []string `json:"affected_services,omitempty" yaml:"affected_services,omitempty"`
	// DisruptionLevel is "low", "medium" or "high"
	DisruptionLevel string `json:"disruption_level,omitempty" yaml:"disruption_level,omitempty"`
	ConflictingID   string `json:"conflicting_id,omitempty" yaml:"conflicting_id,omitempty"`
}

// Penalty returns the ordering penalty for this constraint, in [0,1].
// An unrecognized kind is a fatal configuration error, never silently zero.
func (s Soft) Penalty() (float64, error) {
	switch s.Kind {
	case RequiresReboot:
		return 0.30, nil
	case HistoricalFailure:
		n := float64(s.FailureCount)
		if n > 3 {
			n = 3
		}
		return 0.20 * n, nil
	case RollbackUnavailable:
		return 0.40, nil
	case HighBlastRadius:
		return 0.35, nil
	case ServiceDisruptionRisk:
		switch s.DisruptionLevel {
		case "high":
			return 0.50, nil
		case "medium":
			return 0.25, nil
		default:
			return 0.10, nil
		}
	case ConflictsWithPolicy:
		return 0.45, nil
	default:
		return 0, fmt.Errorf("unrecognized soft constraint kind: %q", s.Kind)
	}
}

// Evaluation is the combined constraint result for one candidate policy
type Evaluation struct {
	PolicyID     string  `json:"policy_id" yaml:"policy_id"`
	Hard         []Hard  `json:"hard_constraints" yaml:"hard_constraints"`
	Soft         []Soft  `json:"soft_constraints" yaml:"soft_constraints"`
	TotalPenalty float64 `json:"total_penalty" yaml:"total_penalty"`
}

// Deferred reports whether any hard constraint applies
func (e *Evaluation) Deferred() bool {
	return len(e.Hard) > 0
}

// HardNames returns the catalogue names of all blocking constraints
func (e *Evaluation) HardNames() []string {
	names := make([]string, 0, len(e.Hard))
	for _, h := range e.Hard {
		names = append(names, string(h.Kind))
	}
	return names
}

// SoftNames returns the catalogue names of all applied soft constraints
func (e *Evaluation) SoftNames() []string {
	names := make([]string, 0, len(e.Soft))
	for _, s := range e.Soft {
		names = append(names, string(s.Kind))
	}
	return names
}

func (e *Evaluation) addHard(h Hard) {
	e.Hard = append(e.Hard, h)
}

func (e *Evaluation) addSoft(s Soft) error {
	penalty, err := s.Penalty()
	if err != nil {
		return err
	}
	e.TotalPenalty += penalty
	e.Soft = append(e.Soft, s)
	return nil
}
