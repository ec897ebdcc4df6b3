// Package goal defines the explicit planning objectives the remediation
// planner works toward. Goals are always supplied by the caller; the planner
// never infers one.
package goal

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies the type of planning goal for specialized handling
type Kind string

const (
	// KindComplianceThreshold maintains a minimum compliance percentage
	KindComplianceThreshold Kind = "compliance_threshold"
	// KindSeverityFocus targets specific severity levels
	KindSeverityFocus Kind = "severity_focus"
	// KindCategoryFocus targets specific policy categories
	KindCategoryFocus Kind = "category_focus"
	// KindRiskMinimization reduces the overall system risk score
	KindRiskMinimization Kind = "risk_minimization"
	// KindCustom is a flexible goal with caller-defined parameters
	KindCustom Kind = "custom"
)

// IsValid checks whether a kind belongs to the closed goal catalogue
func (k Kind) IsValid() bool {
	switch k {
	case KindComplianceThreshold, KindSeverityFocus, KindCategoryFocus, KindRiskMinimization, KindCustom:
		return true
	default:
		return false
	}
}

// ValidKinds returns all valid goal kind strings
func ValidKinds() []string {
	return []string{
		string(KindComplianceThreshold),
		string(KindSeverityFocus),
		string(KindCategoryFocus),
		string(KindRiskMinimization),
		string(KindCustom),
	}
}

// Parameters holds kind-specific goal parameters
type Parameters struct {
	// ComplianceThreshold is the target compliance fraction (0.0 to 1.0)
	ComplianceThreshold *float64 `json:"compliance_threshold,omitempty" yaml:"compliance_threshold,omitempty"`
	// TargetSeverities restricts the goal to the named severity levels
	TargetSeverities []string `json:"target_severities,omitempty" yaml:"target_severities,omitempty"`
	// TargetCategories restricts the goal to the named policy categories
	TargetCategories []string `json:"target_categories,omitempty" yaml:"target_categories,omitempty"`
	// MaxRiskScore is the risk score the system should be reduced below
	MaxRiskScore *float64 `json:"max_risk_score,omitempty" yaml:"max_risk_score,omitempty"`
	// Custom holds free-form key-value parameters for custom goals
	Custom map[string]string `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// Goal is an explicit, caller-supplied planning objective. Immutable once
// attached to a plan.
type Goal struct {
	ID          string     `json:"goal_id" yaml:"goal_id"`
	Description string     `json:"description" yaml:"description"`
	Kind        Kind       `json:"kind" yaml:"kind"`
	Parameters  Parameters `json:"parameters" yaml:"parameters"`
	Priority    int        `json:"priority" yaml:"priority"`
	Active      bool       `json:"active" yaml:"active"`
}

// ComplianceThreshold creates a goal that keeps compliance at or above the
// given fraction, optionally restricted to specific severities.
// Example: "Maintain >=80% compliance on critical policies"
func ComplianceThreshold(threshold float64, severities []string) Goal {
	desc := fmt.Sprintf("Maintain >=%.0f%% compliance", threshold*100)
	if len(severities) > 0 {
		desc += fmt.Sprintf(" on %s policies", strings.Join(severities, ", "))
	}
	return Goal{
		ID:          uuid.NewString(),
		Description: desc,
		Kind:        KindComplianceThreshold,
		Parameters: Parameters{
			ComplianceThreshold: &threshold,
			TargetSeverities:    severities,
		},
		Priority: 1,
		Active:   true,
	}
}

// MinimizeRisk creates a goal that reduces the system risk score below maxScore
func MinimizeRisk(maxScore float64) Goal {
	return Goal{
		ID:          uuid.NewString(),
		Description: fmt.Sprintf("Reduce system risk score below %.2f", maxScore),
		Kind:        KindRiskMinimization,
		Parameters:  Parameters{MaxRiskScore: &maxScore},
		Priority:    1,
		Active:      true,
	}
}

// SeverityFocus creates a goal that remediates only the named severity levels
func SeverityFocus(severities []string) Goal {
	return Goal{
		ID:          uuid.NewString(),
		Description: fmt.Sprintf("Remediate %s severity policies", strings.Join(severities, ", ")),
		Kind:        KindSeverityFocus,
		Parameters:  Parameters{TargetSeverities: severities},
		Priority:    1,
		Active:      true,
	}
}

// CategoryFocus creates a goal that remediates only the named policy categories
func CategoryFocus(categories []string) Goal {
	return Goal{
		ID:          uuid.NewString(),
		Description: fmt.Sprintf("Remediate policies in categories: %s", strings.Join(categories, ", ")),
		Kind:        KindCategoryFocus,
		Parameters:  Parameters{TargetCategories: categories},
		Priority:    1,
		Active:      true,
	}
}

// Custom creates a goal with caller-defined semantics
func Custom(description string, params map[string]string) Goal {
	return Goal{
		ID:          uuid.NewString(),
		Description: description,
		Kind:        KindCustom,
		Parameters:  Parameters{Custom: params},
		Priority:    1,
		Active:      true,
	}
}
