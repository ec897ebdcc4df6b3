package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nogap/remedy/pkg/goal"
	"github.com/nogap/remedy/pkg/input"
	"github.com/nogap/remedy/pkg/planfile"
	"github.com/nogap/remedy/pkg/provider"
)

// fakeProvider returns a scripted ordering response, or an error
type fakeProvider struct {
	resp *provider.OrderingResponse
	err  error
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-model" }
func (f *fakeProvider) ProposeOrdering(ctx context.Context, req provider.OrderingRequest) (*provider.OrderingResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func snapshot(policies []input.PolicyMetadata, failing []string) *input.PlannerInput {
	in := &input.PlannerInput{
		CurrentPlatform: "linux",
		Policies:        policies,
		RiskScores:      map[string]float64{},
	}
	failingSet := make(map[string]bool)
	for _, id := range failing {
		failingSet[id] = true
	}
	for _, p := range policies {
		in.CurrentAudit = append(in.CurrentAudit, input.AuditResult{PolicyID: p.ID, Passed: !failingSet[p.ID]})
	}
	for _, id := range failing {
		in.Recommendations.Candidates = append(in.Recommendations.Candidates, input.Candidate{PolicyID: id})
	}
	return in
}

func TestGenerateScenarios(t *testing.T) {
	t.Run("platform mismatch produces deferred entry and no steps", func(t *testing.T) {
		in := snapshot([]input.PolicyMetadata{
			{ID: "pol-win", Platform: "windows", Severity: "high"},
		}, []string{"pol-win"})

		result, err := New(Config{}).Generate(context.Background(), in, goal.MinimizeRisk(1.0))
		require.NoError(t, err)

		assert.Empty(t, result.Plan.Steps)
		require.Len(t, result.Plan.Deferred, 1)
		assert.Equal(t, "pol-win", result.Plan.Deferred[0].PolicyID)
		assert.Contains(t, result.Plan.Deferred[0].BlockingConstraints, "platform_mismatch")
	})

	t.Run("steps ordered by risk descending with full confidence", func(t *testing.T) {
		in := snapshot([]input.PolicyMetadata{
			{ID: "pol-low", Platform: "linux", Severity: "medium"},
			{ID: "pol-high", Platform: "linux", Severity: "high"},
		}, []string{"pol-low", "pol-high"})
		in.RiskScores["pol-low"] = 0.4
		in.RiskScores["pol-high"] = 0.9

		result, err := New(Config{}).Generate(context.Background(), in, goal.MinimizeRisk(1.0))
		require.NoError(t, err)

		require.Len(t, result.Plan.Steps, 2)
		assert.Equal(t, "pol-high", result.Plan.Steps[0].PolicyID)
		assert.Equal(t, 1, result.Plan.Steps[0].Priority)
		assert.Equal(t, "pol-low", result.Plan.Steps[1].PolicyID)
		assert.Equal(t, 2, result.Plan.Steps[1].Priority)
		assert.Equal(t, 1.0, result.Plan.Steps[0].Confidence)
		assert.Equal(t, 1.0, result.Plan.Steps[1].Confidence)
	})

	t.Run("soft constraint degrades confidence", func(t *testing.T) {
		in := snapshot([]input.PolicyMetadata{
			{ID: "pol-reboot", Platform: "linux", Severity: "high", RebootRequired: true},
		}, []string{"pol-reboot"})

		result, err := New(Config{}).Generate(context.Background(), in, goal.MinimizeRisk(1.0))
		require.NoError(t, err)

		require.Len(t, result.Plan.Steps, 1)
		assert.InDelta(t, 0.70, result.Plan.Steps[0].Confidence, 1e-9)
		assert.Contains(t, result.Plan.Steps[0].ConstraintsConsidered, "requires_reboot")
	})

	t.Run("equal risk breaks ties by lighter penalty", func(t *testing.T) {
		in := snapshot([]input.PolicyMetadata{
			{ID: "pol-a", Platform: "linux", Severity: "high", RebootRequired: true},
			{ID: "pol-b", Platform: "linux", Severity: "high"},
		}, []string{"pol-a", "pol-b"})
		in.RiskScores["pol-a"] = 0.7
		in.RiskScores["pol-b"] = 0.7

		result, err := New(Config{}).Generate(context.Background(), in, goal.MinimizeRisk(1.0))
		require.NoError(t, err)

		require.Len(t, result.Plan.Steps, 2)
		assert.Equal(t, "pol-b", result.Plan.Steps[0].PolicyID)
	})

	t.Run("confidence never drops below the floor", func(t *testing.T) {
		reversible := false
		in := snapshot([]input.PolicyMetadata{
			{ID: "pol-heavy", Platform: "linux", Severity: "critical",
				RebootRequired: true, Reversible: &reversible,
				AffectedServices: []string{"a", "b", "c"}, DisruptionRisk: "high"},
		}, []string{"pol-heavy"})

		result, err := New(Config{}).Generate(context.Background(), in, goal.MinimizeRisk(1.0))
		require.NoError(t, err)

		require.Len(t, result.Plan.Steps, 1)
		assert.InDelta(t, 0.1, result.Plan.Steps[0].Confidence, 1e-9)
	})

	t.Run("already passing candidates are not planned", func(t *testing.T) {
		in := snapshot([]input.PolicyMetadata{
			{ID: "pol-ok", Platform: "linux", Severity: "high"},
			{ID: "pol-bad", Platform: "linux", Severity: "high"},
		}, []string{"pol-bad"})
		in.Recommendations.Candidates = append(in.Recommendations.Candidates, input.Candidate{PolicyID: "pol-ok"})

		result, err := New(Config{}).Generate(context.Background(), in, goal.MinimizeRisk(1.0))
		require.NoError(t, err)

		require.Len(t, result.Plan.Steps, 1)
		assert.Equal(t, "pol-bad", result.Plan.Steps[0].PolicyID)
	})

	t.Run("severity defaults risk when no score supplied", func(t *testing.T) {
		in := snapshot([]input.PolicyMetadata{
			{ID: "pol-crit", Platform: "linux", Severity: "critical"},
		}, []string{"pol-crit"})

		result, err := New(Config{}).Generate(context.Background(), in, goal.MinimizeRisk(1.0))
		require.NoError(t, err)
		require.Len(t, result.Plan.Steps, 1)
		assert.Equal(t, 0.9, result.Plan.Steps[0].RiskScore)
	})

	t.Run("missing platform aborts planning", func(t *testing.T) {
		in := snapshot(nil, nil)
		in.CurrentPlatform = ""

		_, err := New(Config{}).Generate(context.Background(), in, goal.MinimizeRisk(1.0))
		assert.Error(t, err)
	})

	t.Run("candidate without metadata aborts planning", func(t *testing.T) {
		in := snapshot(nil, nil)
		in.Recommendations.Candidates = []input.Candidate{{PolicyID: "pol-ghost"}}

		_, err := New(Config{}).Generate(context.Background(), in, goal.MinimizeRisk(1.0))
		assert.Error(t, err)
	})
}

func TestGenerateStepCap(t *testing.T) {
	in := snapshot([]input.PolicyMetadata{
		{ID: "pol-1", Platform: "linux", Severity: "high"},
		{ID: "pol-2", Platform: "linux", Severity: "high"},
		{ID: "pol-3", Platform: "linux", Severity: "high"},
	}, []string{"pol-1", "pol-2", "pol-3"})
	in.RiskScores = map[string]float64{"pol-1": 0.9, "pol-2": 0.8, "pol-3": 0.7}

	result, err := New(Config{MaxSteps: 2}).Generate(context.Background(), in, goal.MinimizeRisk(1.0))
	require.NoError(t, err)

	assert.Len(t, result.Plan.Steps, 2)
	require.Len(t, result.Plan.Deferred, 1)
	assert.Equal(t, "pol-3", result.Plan.Deferred[0].PolicyID)
	assert.Equal(t, "exceeds step cap", result.Plan.Deferred[0].Reason)
}

func TestGenerateProgressCallback(t *testing.T) {
	in := snapshot([]input.PolicyMetadata{
		{ID: "pol-1", Platform: "linux", Severity: "high"},
		{ID: "pol-2", Platform: "linux", Severity: "medium"},
		{ID: "pol-win", Platform: "windows", Severity: "low"},
	}, []string{"pol-1", "pol-2", "pol-win"})

	var calls [][2]int
	cfg := Config{Progress: func(evaluated, total int) {
		calls = append(calls, [2]int{evaluated, total})
	}}

	_, err := New(cfg).Generate(context.Background(), in, goal.MinimizeRisk(1.0))
	require.NoError(t, err)

	// One call per candidate, hard-deferred ones included
	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, calls)
}

func TestGenerateGoalFiltering(t *testing.T) {
	t.Run("compliance threshold stops at projected target", func(t *testing.T) {
		policies := make([]input.PolicyMetadata, 0, 10)
		failing := []string{"pol-6", "pol-7", "pol-8", "pol-9"}
		for _, id := range []string{"pol-0", "pol-1", "pol-2", "pol-3", "pol-4", "pol-5", "pol-6", "pol-7", "pol-8", "pol-9"} {
			policies = append(policies, input.PolicyMetadata{ID: id, Platform: "linux", Severity: "medium"})
		}
		in := snapshot(policies, failing)

		// 6 of 10 passing; 70% target needs exactly one more remediation
		result, err := New(Config{}).Generate(context.Background(), in, goal.ComplianceThreshold(0.7, nil))
		require.NoError(t, err)

		assert.Len(t, result.Plan.Steps, 1)
		assert.NotEmpty(t, result.Plan.Metadata.Warnings)
	})

	t.Run("severity focus restricts the pool", func(t *testing.T) {
		in := snapshot([]input.PolicyMetadata{
			{ID: "pol-crit", Platform: "linux", Severity: "critical"},
			{ID: "pol-low", Platform: "linux", Severity: "low"},
		}, []string{"pol-crit", "pol-low"})

		result, err := New(Config{}).Generate(context.Background(), in, goal.SeverityFocus([]string{"critical"}))
		require.NoError(t, err)

		require.Len(t, result.Plan.Steps, 1)
		assert.Equal(t, "pol-crit", result.Plan.Steps[0].PolicyID)
	})

	t.Run("category focus restricts the pool", func(t *testing.T) {
		in := snapshot([]input.PolicyMetadata{
			{ID: "pol-net", Platform: "linux", Severity: "high", Category: "network"},
			{ID: "pol-fs", Platform: "linux", Severity: "high", Category: "filesystem"},
		}, []string{"pol-net", "pol-fs"})

		result, err := New(Config{}).Generate(context.Background(), in, goal.CategoryFocus([]string{"network"}))
		require.NoError(t, err)

		require.Len(t, result.Plan.Steps, 1)
		assert.Equal(t, "pol-net", result.Plan.Steps[0].PolicyID)
	})

	t.Run("unknown goal kind aborts", func(t *testing.T) {
		in := snapshot([]input.PolicyMetadata{
			{ID: "pol-1", Platform: "linux", Severity: "high"},
		}, []string{"pol-1"})

		_, err := New(Config{}).Generate(context.Background(), in, goal.Goal{ID: "g", Kind: goal.Kind("bogus")})
		assert.Error(t, err)
	})
}

func aiInput() *input.PlannerInput {
	in := snapshot([]input.PolicyMetadata{
		{ID: "pol-1", Platform: "linux", Severity: "high"},
		{ID: "pol-2", Platform: "linux", Severity: "medium"},
	}, []string{"pol-1", "pol-2"})
	in.RiskScores = map[string]float64{"pol-1": 0.9, "pol-2": 0.5}
	return in
}

func TestGenerateAIOrdering(t *testing.T) {
	t.Run("accepted proposal reorders steps", func(t *testing.T) {
		g := goal.MinimizeRisk(1.0)
		fake := &fakeProvider{resp: &provider.OrderingResponse{
			GoalID: g.ID,
			Entries: []provider.OrderedEntry{
				{PolicyID: "pol-2", Order: 1, Confidence: 0.9, Reason: "lower disruption first"},
				{PolicyID: "pol-1", Order: 2, Confidence: 0.8, Reason: "schedule after dependencies settle"},
			},
		}}

		result, err := New(Config{Provider: fake, UseAIOrdering: true}).Generate(context.Background(), aiInput(), g)
		require.NoError(t, err)

		require.Len(t, result.Plan.Steps, 2)
		assert.Equal(t, "pol-2", result.Plan.Steps[0].PolicyID)
		assert.Equal(t, "lower disruption first", result.Plan.Steps[0].Reason)
		assert.Equal(t, 0.9, result.Plan.Steps[0].Confidence)
		assert.True(t, result.Plan.Metadata.AIAssisted)
		assert.False(t, result.Plan.Metadata.UsedDeterministicFallback)
		assert.Equal(t, "fake-model", result.Plan.Metadata.AIModel)
	})

	rejections := []struct {
		name string
		resp *provider.OrderingResponse
		err  error
	}{
		{
			name: "transport error",
			err:  errors.New("connection refused"),
		},
		{
			name: "invented policy id",
			resp: &provider.OrderingResponse{Entries: []provider.OrderedEntry{
				{PolicyID: "pol-invented", Order: 1, Confidence: 0.9},
				{PolicyID: "pol-1", Order: 2, Confidence: 0.9},
			}},
		},
		{
			name: "missing entry",
			resp: &provider.OrderingResponse{Entries: []provider.OrderedEntry{
				{PolicyID: "pol-1", Order: 1, Confidence: 0.9},
			}},
		},
		{
			name: "non-contiguous orders",
			resp: &provider.OrderingResponse{Entries: []provider.OrderedEntry{
				{PolicyID: "pol-1", Order: 1, Confidence: 0.9},
				{PolicyID: "pol-2", Order: 3, Confidence: 0.9},
			}},
		},
		{
			name: "confidence out of range",
			resp: &provider.OrderingResponse{Entries: []provider.OrderedEntry{
				{PolicyID: "pol-1", Order: 1, Confidence: 1.5},
				{PolicyID: "pol-2", Order: 2, Confidence: 0.9},
			}},
		},
		{
			name: "recommends execution",
			resp: &provider.OrderingResponse{Entries: []provider.OrderedEntry{
				{PolicyID: "pol-1", Order: 1, Confidence: 0.9, Reason: "execute this immediately"},
				{PolicyID: "pol-2", Order: 2, Confidence: 0.9},
			}},
		},
		{
			name: "altered goal",
			resp: &provider.OrderingResponse{GoalID: "some-other-goal", Entries: []provider.OrderedEntry{
				{PolicyID: "pol-1", Order: 1, Confidence: 0.9},
				{PolicyID: "pol-2", Order: 2, Confidence: 0.9},
			}},
		},
	}

	for _, tt := range rejections {
		t.Run(tt.name+" falls back to deterministic plan", func(t *testing.T) {
			g := goal.MinimizeRisk(1.0)
			if tt.resp != nil && tt.resp.GoalID == "" {
				tt.resp.GoalID = g.ID
			}

			baseline, err := New(Config{}).Generate(context.Background(), aiInput(), g)
			require.NoError(t, err)

			fake := &fakeProvider{resp: tt.resp, err: tt.err}
			result, err := New(Config{Provider: fake, UseAIOrdering: true}).Generate(context.Background(), aiInput(), g)
			require.NoError(t, err)

			// The fallback plan must match the deterministic plan exactly
			assert.Equal(t, baseline.Plan.Steps, result.Plan.Steps)
			assert.Equal(t, baseline.Plan.Deferred, result.Plan.Deferred)

			assert.False(t, result.Plan.Metadata.AIAssisted)
			assert.True(t, result.Plan.Metadata.UsedDeterministicFallback)
			assert.NotEmpty(t, result.Plan.Metadata.Warnings)
		})
	}

	t.Run("accepted proposal cannot raise deterministic confidence", func(t *testing.T) {
		in := aiInput()
		in.Policies[0].RebootRequired = true // deterministic confidence 0.70 for pol-1

		g := goal.MinimizeRisk(1.0)
		fake := &fakeProvider{resp: &provider.OrderingResponse{
			GoalID: g.ID,
			Entries: []provider.OrderedEntry{
				{PolicyID: "pol-1", Order: 1, Confidence: 1.0},
				{PolicyID: "pol-2", Order: 2, Confidence: 1.0},
			},
		}}

		result, err := New(Config{Provider: fake, UseAIOrdering: true}).Generate(context.Background(), in, g)
		require.NoError(t, err)
		assert.InDelta(t, 0.70, result.Plan.Steps[0].Confidence, 1e-9)
	})
}

func TestGenerateMetadata(t *testing.T) {
	in := aiInput()
	in.SnapshotSource = "agent_sense"
	in.Recommendations.Warnings = []string{"recommender saw stale data"}
	in.Drift = &input.DriftSummary{Events: 3}

	result, err := New(Config{}).Generate(context.Background(), in, goal.MinimizeRisk(1.0))
	require.NoError(t, err)

	plan := result.Plan
	assert.Equal(t, planfile.PlanType, plan.PlanType)
	assert.True(t, plan.RequiresHumanApproval)
	assert.False(t, plan.IsApproved)
	assert.NotEmpty(t, plan.PlanID)
	assert.Equal(t, 2, plan.Metadata.CandidatesConsidered)
	assert.Contains(t, plan.Metadata.Warnings, "recommender saw stale data")
	assert.Equal(t, "agent_sense", plan.SourceSnapshot.Source)
	assert.Equal(t, 3, plan.SourceSnapshot.DriftEvents)
	assert.InDelta(t, 0.0, plan.SourceSnapshot.ComplianceRate, 1e-9)
}
