package planner

import (
	"fmt"
	"strings"

	"github.com/nogap/remedy/pkg/goal"
	"github.com/nogap/remedy/pkg/provider"
)

// executionPhrases are rejected in proposed step reasoning: an ordering
// proposal must never recommend execution or bypassing human approval.
var executionPhrases = []string{
	"execute",
	"auto-approve",
	"auto approve",
	"bypass",
	"skip approval",
	"without approval",
}

// acceptOrdering checks an ordering proposal against the acceptance rules.
// Any violation rejects the proposal in its entirety; proposals are never
// partially merged.
func acceptOrdering(resp *provider.OrderingResponse, eligible []candidate, g goal.Goal) error {
	if resp.GoalID != g.ID {
		return fmt.Errorf("goal altered: got goal_id %q, want %q", resp.GoalID, g.ID)
	}

	if len(resp.Entries) != len(eligible) {
		return fmt.Errorf("expected %d entries, got %d", len(eligible), len(resp.Entries))
	}

	eligibleIDs := make(map[string]bool, len(eligible))
	for _, c := range eligible {
		eligibleIDs[c.policyID] = true
	}

	seenIDs := make(map[string]bool, len(resp.Entries))
	seenOrders := make(map[int]bool, len(resp.Entries))
	for _, e := range resp.Entries {
		if !eligibleIDs[e.PolicyID] {
			return fmt.Errorf("invented policy id %q", e.PolicyID)
		}
		if seenIDs[e.PolicyID] {
			return fmt.Errorf("duplicate policy id %q", e.PolicyID)
		}
		seenIDs[e.PolicyID] = true

		if e.Order < 1 || e.Order > len(resp.Entries) || seenOrders[e.Order] {
			return fmt.Errorf("orders are not a contiguous 1..%d sequence", len(resp.Entries))
		}
		seenOrders[e.Order] = true

		if e.Confidence < 0 || e.Confidence > 1 {
			return fmt.Errorf("confidence %.2f for %s out of [0,1]", e.Confidence, e.PolicyID)
		}

		reason := strings.ToLower(e.Reason)
		for _, phrase := range executionPhrases {
			if strings.Contains(reason, phrase) {
				return fmt.Errorf("step %s recommends execution or approval bypass", e.PolicyID)
			}
		}
	}

	return nil
}

// applyOrdering reorders the eligible slice in place per an accepted
// proposal, attaching per-step reasoning and confidence.
func applyOrdering(resp *provider.OrderingResponse, eligible []candidate) {
	byID := make(map[string]candidate, len(eligible))
	for _, c := range eligible {
		byID[c.policyID] = c
	}

	for _, e := range resp.Entries {
		c := byID[e.PolicyID]
		c.aiReason = e.Reason
		c.aiConfidence = e.Confidence
		c.aiOrdered = true
		eligible[e.Order-1] = c
	}
}
