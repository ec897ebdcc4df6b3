package provider

import (
	"context"

	"github.com/nogap/remedy/pkg/goal"
)

// Provider defines the interface for AI-assisted step ordering. A provider
// only proposes an order over the eligible candidates it is given; it never
// executes anything, and its output is always re-validated by the planner
// before use.
type Provider interface {
	// Name returns the provider name (e.g., "claude", "openai")
	Name() string

	// Model returns the model identifier used for requests
	Model() string

	// ProposeOrdering asks the reasoning service to order the eligible
	// candidates toward the goal, with per-step reasoning and confidence
	ProposeOrdering(ctx context.Context, req OrderingRequest) (*OrderingResponse, error)
}

// Config holds provider configuration
type Config struct {
	Name        string  // Provider name: claude, openai
	APIKey      string  // API key
	Model       string  // Model to use
	Temperature float64 // Temperature (0.0-1.0)
	BaseURL     string  // Optional override for OpenAI-compatible APIs
}

// OrderingCandidate is one eligible policy presented to the provider
type OrderingCandidate struct {
	PolicyID    string   `json:"policy_id"`
	RiskScore   float64  `json:"risk_score"`
	SoftPenalty float64  `json:"soft_penalty"`
	Severity    string   `json:"severity"`
	Constraints []string `json:"constraints"`
}

// OrderingRequest contains everything a provider may see: the eligible
// candidates, the goal, and risk/constraint data. Nothing else leaves the
// engine.
type OrderingRequest struct {
	Goal       goal.Goal
	Candidates []OrderingCandidate
	MaxSteps   int
}

// OrderedEntry is one proposed step in the provider's ordering
type OrderedEntry struct {
	PolicyID   string  `json:"policy_id"`
	Order      int     `json:"order"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// OrderingResponse is the provider's proposal. GoalID echoes the request
// goal so the planner can verify the goal was not altered.
type OrderingResponse struct {
	GoalID     string         `json:"goal_id"`
	Entries    []OrderedEntry `json:"entries"`
	TokensUsed int            `json:"-"`
	Cost       float64        `json:"-"`
}
