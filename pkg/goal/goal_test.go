package goal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindIsValid(t *testing.T) {
	for _, k := range ValidKinds() {
		assert.True(t, Kind(k).IsValid(), k)
	}
	assert.False(t, Kind("speedrun").IsValid())
	assert.False(t, Kind("").IsValid())
}

func TestComplianceThreshold(t *testing.T) {
	g := ComplianceThreshold(0.8, []string{"critical", "high"})

	assert.Equal(t, KindComplianceThreshold, g.Kind)
	require.NotNil(t, g.Parameters.ComplianceThreshold)
	assert.Equal(t, 0.8, *g.Parameters.ComplianceThreshold)
	assert.Equal(t, []string{"critical", "high"}, g.Parameters.TargetSeverities)
	assert.Contains(t, g.Description, "80%")
	assert.Contains(t, g.Description, "critical, high")
	assert.NotEmpty(t, g.ID)
	assert.True(t, g.Active)
}

func TestMinimizeRisk(t *testing.T) {
	g := MinimizeRisk(0.3)

	assert.Equal(t, KindRiskMinimization, g.Kind)
	require.NotNil(t, g.Parameters.MaxRiskScore)
	assert.Equal(t, 0.3, *g.Parameters.MaxRiskScore)
}

func TestFocusGoals(t *testing.T) {
	s := SeverityFocus([]string{"critical"})
	assert.Equal(t, KindSeverityFocus, s.Kind)
	assert.Equal(t, []string{"critical"}, s.Parameters.TargetSeverities)

	c := CategoryFocus([]string{"network", "auth"})
	assert.Equal(t, KindCategoryFocus, c.Kind)
	assert.Contains(t, c.Description, "network, auth")
}

func TestCustom(t *testing.T) {
	g := Custom("Quarterly hardening pass", map[string]string{"quarter": "Q3"})

	assert.Equal(t, KindCustom, g.Kind)
	assert.Equal(t, "Quarterly hardening pass", g.Description)
	assert.Equal(t, "Q3", g.Parameters.Custom["quarter"])
}

func TestGoalIDsAreUnique(t *testing.T) {
	assert.NotEqual(t, MinimizeRisk(0.5).ID, MinimizeRisk(0.5).ID)
}
