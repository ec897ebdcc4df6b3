package provider

import (
	"encoding/json"
	"fmt"
)

// BuildOrderingPrompt constructs the ordering prompt shared by all
// providers. The RULES block is part of the safety contract: the response is
// rejected outright if the model invents policies, changes the goal, or
// recommends execution.
func BuildOrderingPrompt(req OrderingRequest) string {
	candidatesJSON, _ := json.MarshalIndent(req.Candidates, "", "  ")

	return fmt.Sprintf(`You are a security remediation planner. Order the following candidate policies for remediation. You are proposing an order for human review only; nothing you output is executed.

GOAL (id: %s): %s

CANDIDATES:
%s

RULES:
1. You MUST NOT invent new policies - use only the policy_ids listed above
2. You MUST include every listed policy_id exactly once
3. You MUST NOT change the goal
4. You MUST NOT suggest executing, applying, or auto-approving anything
5. Default ordering heuristic: risk_score descending, then soft_penalty ascending
6. Provide a confidence between 0.0 and 1.0 for each ordering decision
7. Orders must be the contiguous sequence 1..N with no duplicates

OUTPUT FORMAT: Return a single JSON object:
{
  "goal_id": "%s",
  "entries": [
    {"policy_id": "POL-001", "order": 1, "confidence": 0.9, "reason": "highest risk, no soft constraints"}
  ]
}

Return ONLY the JSON object with no additional text or markdown formatting.`,
		req.Goal.ID,
		req.Goal.Description,
		string(candidatesJSON),
		req.Goal.ID,
	)
}
