// Package planner implements plan synthesis: it partitions recommended
// candidates against the constraint catalogue, orders the survivors toward an
// explicit goal, and assembles a validated remediation plan that stays inert
// until a human approves it.
package planner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/nogap/remedy/pkg/constraint"
	"github.com/nogap/remedy/pkg/goal"
	"github.com/nogap/remedy/pkg/input"
	"github.com/nogap/remedy/pkg/planfile"
	"github.com/nogap/remedy/pkg/provider"
)

// Planner generates remediation plans from planner input snapshots.
type Planner struct {
	config Config
}

// New creates a new Planner with the given configuration, filling in
// defaults for unset limits.
func New(config Config) *Planner {
	return &Planner{config: config.withDefaults()}
}

// candidate is one recommended policy joined with its metadata, risk score
// and constraint evaluation.
type candidate struct {
	policyID string
	policy   *input.PolicyMetadata
	risk     float64
	eval     constraint.Evaluation

	// Filled only when an AI ordering proposal was accepted
	aiReason     string
	aiConfidence float64
	aiOrdered    bool
}

// Generate synthesizes a remediation plan for the given goal from an input
// snapshot. The returned plan has passed structural validation; on any
// validation failure no plan is returned.
func (p *Planner) Generate(ctx context.Context, in *input.PlannerInput, g goal.Goal) (*Result, error) {
	start := time.Now()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	if !g.Kind.IsValid() {
		return nil, fmt.Errorf("planner input: unknown goal kind %q", g.Kind)
	}

	warnings := append([]string(nil), in.Recommendations.Warnings...)

	// Join candidates with metadata and risk, dropping already-compliant ones
	candidates := p.extractCandidates(in)

	// Partition by hard constraints
	eligible, deferred, err := p.partition(candidates, in)
	if err != nil {
		return nil, err
	}

	// Goal pool restriction, then canonical deterministic ranking
	eligible = restrictPool(eligible, g)
	sortCandidates(eligible)

	// Optional AI ordering pass over the ranked eligible set. Any rejection
	// leaves the deterministic order untouched.
	aiUsed := false
	fallback := false
	tokensUsed := 0
	aiCost := 0.0
	if p.config.UseAIOrdering && p.config.Provider != nil {
		accepted, warn, tokens, cost := p.proposeOrdering(ctx, eligible, g)
		tokensUsed = tokens
		aiCost = cost
		if accepted {
			aiUsed = true
		} else {
			fallback = true
			warnings = append(warnings, warn)
		}
	}

	// Compliance-threshold goals stop once the projected rate meets the target
	selected, thresholdWarn := applyComplianceThreshold(eligible, g, in)
	if thresholdWarn != "" {
		warnings = append(warnings, thresholdWarn)
	}

	// Step cap: overflow is deferred, never silently dropped
	if len(selected) > p.config.MaxSteps {
		for _, c := range selected[p.config.MaxSteps:] {
			deferred = append(deferred, planfile.DeferredEntry{
				PolicyID:            c.policyID,
				Reason:              "exceeds step cap",
				BlockingConstraints: []string{},
			})
		}
		selected = selected[:p.config.MaxSteps]
	}

	plan := p.buildPlan(selected, deferred, in, g)
	plan.Metadata.AIAssisted = aiUsed
	if p.config.Provider != nil {
		plan.Metadata.AIModel = p.config.Provider.Model()
	}
	plan.Metadata.UsedDeterministicFallback = fallback
	plan.Metadata.Warnings = warnings
	plan.Metadata.CandidatesConsidered = len(in.Recommendations.Candidates)
	plan.Metadata.PlanningDurationMS = time.Since(start).Milliseconds()

	// Unconditional post-assembly validation regardless of ordering path
	known := make(map[string]bool, len(in.Recommendations.Candidates))
	for _, c := range in.Recommendations.Candidates {
		known[c.PolicyID] = true
	}
	if err := planfile.Validate(plan, known); err != nil {
		return nil, fmt.Errorf("generated plan failed validation: %w", err)
	}

	planPath := ""
	if p.config.OutputPath != "" {
		if err := os.MkdirAll(p.config.OutputPath, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		planPath = filepath.Join(p.config.OutputPath, "plan.yaml")
		if err := planfile.SavePlan(plan, planPath); err != nil {
			return nil, fmt.Errorf("failed to save plan: %w", err)
		}
	}

	return &Result{
		Plan:          plan,
		PlanPath:      planPath,
		TotalSteps:    len(plan.Steps),
		TotalDeferred: len(plan.Deferred),
		TokensUsed:    tokensUsed,
		AICost:        aiCost,
	}, nil
}

// extractCandidates joins recommender candidates with policy metadata and
// risk scores. Candidates already passing their audit are not planned.
func (p *Planner) extractCandidates(in *input.PlannerInput) []candidate {
	out := make([]candidate, 0, len(in.Recommendations.Candidates))
	for _, rec := range in.Recommendations.Candidates {
		if passed, known := in.AuditStatus(rec.PolicyID); known && passed {
			continue
		}

		policy := in.PolicyByID(rec.PolicyID)

		risk, ok := in.RiskScores[rec.PolicyID]
		if !ok {
			risk = input.RiskForSeverity(policy.Severity)
		}

		out = append(out, candidate{
			policyID: rec.PolicyID,
			policy:   policy,
			risk:     risk,
		})
	}
	return out
}

// partition splits candidates into the eligible set and hard-constraint
// deferred entries.
func (p *Planner) partition(candidates []candidate, in *input.PlannerInput) ([]candidate, []planfile.DeferredEntry, error) {
	evaluator := constraint.NewEvaluator(p.config.FailureThreshold)

	eligible := make([]candidate, 0, len(candidates))
	deferred := make([]planfile.DeferredEntry, 0)

	for i, c := range candidates {
		eval, err := evaluator.Evaluate(c.policyID, in)
		if err != nil {
			return nil, nil, fmt.Errorf("constraint evaluation for %s: %w", c.policyID, err)
		}
		if p.config.Progress != nil {
			p.config.Progress(i+1, len(candidates))
		}

		if eval.Deferred() {
			deferred = append(deferred, planfile.DeferredEntry{
				PolicyID:            c.policyID,
				Reason:              deferralReason(eval.Hard),
				BlockingConstraints: eval.HardNames(),
			})
			continue
		}

		c.eval = eval
		eligible = append(eligible, c)
	}

	return eligible, deferred, nil
}

func deferralReason(hard []constraint.Hard) string {
	reason := ""
	for i, h := range hard {
		if i > 0 {
			reason += "; "
		}
		reason += h.Description()
	}
	return reason
}

// buildPlan assembles the plan object from the final ordered selection.
func (p *Planner) buildPlan(selected []candidate, deferred []planfile.DeferredEntry, in *input.PlannerInput, g goal.Goal) *planfile.Plan {
	steps := make([]planfile.Step, 0, len(selected))
	for i, c := range selected {
		confidence := 1.0 - c.eval.TotalPenalty
		if confidence < p.config.MinConfidenceFloor {
			confidence = p.config.MinConfidenceFloor
		}

		reason := fmt.Sprintf("%s severity policy with risk score %.2f", c.policy.Severity, c.risk)
		if c.aiOrdered {
			if c.aiReason != "" {
				reason = c.aiReason
			}
			// An accepted proposal may lower confidence, never raise it
			if c.aiConfidence < confidence {
				confidence = c.aiConfidence
			}
		}

		steps = append(steps, planfile.Step{
			PolicyID:              c.policyID,
			Priority:              i + 1,
			Reason:                reason,
			RiskScore:             c.risk,
			Confidence:            confidence,
			ConstraintsConsidered: c.eval.SoftNames(),
			ExpectedImpact:        fmt.Sprintf("Resolves %s severity compliance failure", c.policy.Severity),
			EstimatedDurationMins: defaultStepDurationMins,
			Source:                planfile.SourcePlanner,
		})
	}

	snapshotTime := in.SnapshotTime
	if snapshotTime.IsZero() {
		snapshotTime = time.Now()
	}

	plan := &planfile.Plan{
		PlanID:      uuid.NewString(),
		PlanType:    planfile.PlanType,
		Goal:        g,
		GeneratedAt: time.Now(),
		SourceSnapshot: planfile.SnapshotSummary{
			Timestamp:      snapshotTime,
			Source:         in.SnapshotSource,
			PolicyCount:    len(in.Policies),
			ComplianceRate: in.ComplianceRate(),
		},
		Steps:                 steps,
		Deferred:              deferred,
		Excluded:              []planfile.ExcludedEntry{},
		RequiresHumanApproval: true,
		IsApproved:            false,
	}

	if in.Drift != nil {
		plan.SourceSnapshot.DriftEvents = in.Drift.Events
	}

	if len(in.PreviousAudit) > 0 {
		prev := previousSummary(in)
		plan.PreviousSnapshot = &prev
	}

	return plan
}

func previousSummary(in *input.PlannerInput) planfile.SnapshotSummary {
	passed := 0
	for _, r := range in.PreviousAudit {
		if r.Passed {
			passed++
		}
	}
	return planfile.SnapshotSummary{
		Source:         in.SnapshotSource,
		PolicyCount:    len(in.PreviousAudit),
		ComplianceRate: float64(passed) / float64(len(in.PreviousAudit)),
	}
}

// proposeOrdering runs the bounded AI ordering call and applies the accepted
// proposal in place. It returns accepted=false with a warning on any
// transport error, timeout, or acceptance-rule violation; the eligible slice
// keeps its deterministic order in that case.
func (p *Planner) proposeOrdering(ctx context.Context, eligible []candidate, g goal.Goal) (accepted bool, warning string, tokens int, cost float64) {
	if len(eligible) == 0 {
		return false, "ai ordering skipped: no eligible candidates", 0, 0
	}

	req := provider.OrderingRequest{
		Goal:       g,
		Candidates: make([]provider.OrderingCandidate, 0, len(eligible)),
		MaxSteps:   p.config.MaxSteps,
	}
	for _, c := range eligible {
		req.Candidates = append(req.Candidates, provider.OrderingCandidate{
			PolicyID:    c.policyID,
			RiskScore:   c.risk,
			SoftPenalty: c.eval.TotalPenalty,
			Severity:    c.policy.Severity,
			Constraints: c.eval.SoftNames(),
		})
	}

	callCtx, cancel := context.WithTimeout(ctx, p.config.AITimeout)
	defer cancel()

	resp, err := p.config.Provider.ProposeOrdering(callCtx, req)
	if err != nil {
		return false, fmt.Sprintf("ai ordering failed, used deterministic ordering: %v", err), 0, 0
	}

	if err := acceptOrdering(resp, eligible, g); err != nil {
		return false, fmt.Sprintf("ai ordering rejected, used deterministic ordering: %v", err), resp.TokensUsed, resp.Cost
	}

	applyOrdering(resp, eligible)
	return true, "", resp.TokensUsed, resp.Cost
}
