package planner

import (
	"time"

	"github.com/nogap/remedy/pkg/planfile"
	"github.com/nogap/remedy/pkg/provider"
)

// Config holds planner configuration
type Config struct {
	// Provider is the optional AI ordering provider. Nil disables AI assistance.
	Provider provider.Provider
	// UseAIOrdering enables the AI-assisted ordering pass
	UseAIOrdering bool
	// AITimeout bounds the single AI ordering call (default 30s)
	AITimeout time.Duration

	// MaxSteps caps the number of steps per plan (default 50); overflow
	// candidates become deferred entries rather than being dropped
	MaxSteps int
	// MinConfidenceFloor is the lowest confidence ever assigned to a step
	// (default 0.1)
	MinConfidenceFloor float64
	// FailureThreshold is the prior-failure count at which the
	// historical-failure soft constraint applies (default 2)
	FailureThreshold int

	// OutputPath, when set, is the directory the generated plan is saved to
	// as plan.yaml
	OutputPath string

	// Progress, when set, is invoked after each candidate's constraint
	// evaluation with the number evaluated so far and the total
	Progress func(evaluated, total int)
}

// Result contains the plan generation output
type Result struct {
	Plan     *planfile.Plan
	PlanPath string // Empty when no OutputPath was configured

	TotalSteps    int
	TotalDeferred int
	TokensUsed    int
	AICost        float64
}

const (
	defaultMaxSteps           = 50
	defaultMinConfidenceFloor = 0.1
	defaultFailureThreshold   = 2
	defaultAITimeout          = 30 * time.Second

	// defaultStepDurationMins is the per-step duration estimate when the
	// policy catalogue provides none
	defaultStepDurationMins = 5
)

func (c Config) withDefaults() Config {
	if c.MaxSteps <= 0 {
		c.MaxSteps = defaultMaxSteps
	}
	if c.MinConfidenceFloor <= 0 {
		c.MinConfidenceFloor = defaultMinConfidenceFloor
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = defaultFailureThreshold
	}
	if c.AITimeout <= 0 {
		c.AITimeout = defaultAITimeout
	}
	return c
}
