package constraint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nogap/remedy/pkg/input"
)

func boolPtr(b bool) *bool { return &b }

func testInput() *input.PlannerInput {
	return &input.PlannerInput{
		CurrentPlatform: "linux",
		CurrentAudit: []input.AuditResult{
			{PolicyID: "pol-base", Passed: true},
			{PolicyID: "pol-1", Passed: false},
		},
		Policies: []input.PolicyMetadata{
			{ID: "pol-base", Platform: "linux", Severity: "low"},
			{ID: "pol-1", Platform: "linux", Severity: "high"},
		},
	}
}

func TestPlatformMatches(t *testing.T) {
	tests := []struct {
		name    string
		policy  string
		current string
		want    bool
	}{
		{"exact match", "linux", "linux", true},
		{"all matches anything", "all", "freebsd", true},
		{"case insensitive", "Linux", "LINUX", true},
		{"linux covers ubuntu", "linux", "ubuntu-22.04", true},
		{"linux covers rhel", "linux", "rhel9", true},
		{"linux covers debian", "linux", "debian-12", true},
		{"linux covers centos", "linux", "centos-stream", true},
		{"windows covers win32", "windows", "win32", true},
		{"windows covers win64", "windows", "win64", true},
		{"windows does not cover linux", "windows", "ubuntu-22.04", false},
		{"linux does not cover windows", "linux", "windows-11", false},
		{"unrelated platforms", "macos", "linux", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlatformMatches(tt.policy, tt.current))
		})
	}
}

func TestEvaluateHardConstraints(t *testing.T) {
	ev := NewEvaluator(2)

	t.Run("platform mismatch defers", func(t *testing.T) {
		in := testInput()
		in.Policies[1].Platform = "windows"

		eval, err := ev.Evaluate("pol-1", in)
		require.NoError(t, err)
		assert.True(t, eval.Deferred())
		assert.Contains(t, eval.HardNames(), string(PlatformMismatch))
	})

	t.Run("not applicable defers", func(t *testing.T) {
		in := testInput()
		in.Policies[1].Applicable = boolPtr(false)

		eval, err := ev.Evaluate("pol-1", in)
		require.NoError(t, err)
		assert.Contains(t, eval.HardNames(), string(NotApplicable))
	})

	t.Run("missing prerequisite defers", func(t *testing.T) {
		in := testInput()
		in.Policies[1].Prerequisites = []string{"pol-missing"}

		eval, err := ev.Evaluate("pol-1", in)
		require.NoError(t, err)
		require.Len(t, eval.Hard, 1)
		assert.Equal(t, MissingPrerequisite, eval.Hard[0].Kind)
		assert.Equal(t, "pol-missing", eval.Hard[0].PrerequisiteID)
		assert.Contains(t, eval.Hard[0].Description(), "pol-missing")
	})

	t.Run("passing prerequisite does not defer", func(t *testing.T) {
		in := testInput()
		in.Policies[1].Prerequisites = []string{"pol-base"}

		eval, err := ev.Evaluate("pol-1", in)
		require.NoError(t, err)
		assert.False(t, eval.Deferred())
	})

	t.Run("explicitly disabled defers", func(t *testing.T) {
		in := testInput()
		in.DisabledPolicies = []string{"pol-1"}

		eval, err := ev.Evaluate("pol-1", in)
		require.NoError(t, err)
		assert.Contains(t, eval.HardNames(), string(ExplicitlyDisabled))
	})

	t.Run("hard failure skips soft evaluation", func(t *testing.T) {
		in := testInput()
		in.Policies[1].Platform = "windows"
		in.Policies[1].RebootRequired = true

		eval, err := ev.Evaluate("pol-1", in)
		require.NoError(t, err)
		assert.Empty(t, eval.Soft)
		assert.Zero(t, eval.TotalPenalty)
	})
}

func TestEvaluateSoftConstraints(t *testing.T) {
	ev := NewEvaluator(2)

	t.Run("no constraints means no penalty", func(t *testing.T) {
		eval, err := ev.Evaluate("pol-1", testInput())
		require.NoError(t, err)
		assert.False(t, eval.Deferred())
		assert.Empty(t, eval.Soft)
		assert.Zero(t, eval.TotalPenalty)
	})

	t.Run("reboot required", func(t *testing.T) {
		in := testInput()
		in.Policies[1].RebootRequired = true

		eval, err := ev.Evaluate("pol-1", in)
		require.NoError(t, err)
		assert.Contains(t, eval.SoftNames(), string(RequiresReboot))
		assert.InDelta(t, 0.30, eval.TotalPenalty, 1e-9)
	})

	t.Run("rollback unavailable", func(t *testing.T) {
		in := testInput()
		in.Policies[1].Reversible = boolPtr(false)

		eval, err := ev.Evaluate("pol-1", in)
		require.NoError(t, err)
		assert.InDelta(t, 0.40, eval.TotalPenalty, 1e-9)
	})

	t.Run("historical failures below threshold ignored", func(t *testing.T) {
		in := testInput()
		in.ExecutionHistory = []input.ExecutionOutcome{
			{PolicyID: "pol-1", Timestamp: time.Now(), Success: false},
		}

		eval, err := ev.Evaluate("pol-1", in)
		require.NoError(t, err)
		assert.Empty(t, eval.Soft)
	})

	t.Run("historical failure penalty scales and caps", func(t *testing.T) {
		in := testInput()
		for i := 0; i < 5; i++ {
			in.ExecutionHistory = append(in.ExecutionHistory, input.ExecutionOutcome{
				PolicyID: "pol-1", Timestamp: time.Now(), Success: false,
			})
		}

		eval, err := ev.Evaluate("pol-1", in)
		require.NoError(t, err)
		require.Len(t, eval.Soft, 1)
		assert.Equal(t, 5, eval.Soft[0].FailureCount)
		// Capped at 3 failures worth of penalty
		assert.InDelta(t, 0.60, eval.TotalPenalty, 1e-9)
	})

	t.Run("high blast radius needs more than one service", func(t *testing.T) {
		in := testInput()
		in.Policies[1].AffectedServices = []string{"sshd"}

		eval, err := ev.Evaluate("pol-1", in)
		require.NoError(t, err)
		assert.Empty(t, eval.Soft)

		in.Policies[1].AffectedServices = []string{"sshd", "nginx"}
		eval, err = ev.Evaluate("pol-1", in)
		require.NoError(t, err)
		assert.InDelta(t, 0.35, eval.TotalPenalty, 1e-9)
	})

	t.Run("disruption risk by level", func(t *testing.T) {
		for level, want := range map[string]float64{"low": 0.10, "medium": 0.25, "high": 0.50} {
			in := testInput()
			in.Policies[1].DisruptionRisk = level

			eval, err := ev.Evaluate("pol-1", in)
			require.NoError(t, err)
			assert.InDelta(t, want, eval.TotalPenalty, 1e-9, "level %s", level)
		}
	})

	t.Run("conflicting policies accumulate", func(t *testing.T) {
		in := testInput()
		in.Policies[1].ConflictsWith = []string{"pol-a", "pol-b"}

		eval, err := ev.Evaluate("pol-1", in)
		require.NoError(t, err)
		assert.Len(t, eval.Soft, 2)
		assert.InDelta(t, 0.90, eval.TotalPenalty, 1e-9)
	})
}

func TestPenaltyUnknownKind(t *testing.T) {
	_, err := Soft{Kind: SoftKind("made_up")}.Penalty()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "made_up")
}
