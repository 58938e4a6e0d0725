package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskLevelForScore(t *testing.T) {
	tests := []struct {
		score    int
		expected RiskLevel
	}{
		{0, RiskLevelNone},
		{1, RiskLevelLow},
		{2, RiskLevelMedium},
		{3, RiskLevelMedium},
		{4, RiskLevelHigh},
		{12, RiskLevelHigh},
		{-1, RiskLevelNone},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, RiskLevelForScore(tt.score), "score %d", tt.score)
	}
}

func TestMatchSet(t *testing.T) {
	m := MatchSet{
		DetectorURL: {"https://example.com"},
		DetectorSSN: {},
	}

	assert.True(t, m.Has(DetectorURL))
	assert.False(t, m.Has(DetectorSSN), "empty match list counts as no match")
	assert.False(t, m.Has(DetectorPassword))
	assert.Equal(t, []string{"https://example.com"}, m.Get(DetectorURL))
	assert.Nil(t, m.Get(DetectorPassword))
}

func TestZeroVerdict(t *testing.T) {
	v := ZeroVerdict()

	assert.Equal(t, RiskLevelNone, v.RiskLevel)
	assert.Zero(t, v.RiskScore)
	assert.NotNil(t, v.ThreatCategories)
	assert.NotNil(t, v.Indicators)
	assert.NotNil(t, v.Recommendations)
}

func TestHasCategory(t *testing.T) {
	v := &ThreatVerdict{ThreatCategories: []string{CategoryPhishing, CategoryMalware}}

	assert.True(t, v.HasCategory(CategoryPhishing))
	assert.True(t, v.HasCategory(CategoryMalware))
	assert.False(t, v.HasCategory(CategoryDataExposure))
}
