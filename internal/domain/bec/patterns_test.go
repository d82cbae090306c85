package bec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegismail/threat-engine/internal/domain"
)

func TestMatchPatterns_WireFraud(t *testing.T) {
	matches := MatchPatterns(
		"Wire transfer needed",
		"Please arrange a transfer of $45,000 using the new bank account details below.",
	)

	require.NotEmpty(t, matches)
	byCategory := map[Category]Match{}
	for _, m := range matches {
		byCategory[m.Category] = m
	}

	wire, ok := byCategory[CategoryWireTransfer]
	require.True(t, ok)
	assert.Equal(t, "wire-fraud", wire.ID)
	assert.Equal(t, domain.SeverityCritical, wire.Pattern.Severity)
	// "wire transfer" + transfer-amount regex + "new bank account"
	assert.GreaterOrEqual(t, len(wire.Matches), 3)
	assert.Equal(t, 1.0, wire.Score)
}

func TestMatchPatterns_UrgencyAccumulates(t *testing.T) {
	matches := MatchPatterns(
		"URGENT",
		"This is time sensitive, I need it before end of day.",
	)

	require.Len(t, matches, 1)
	assert.Equal(t, CategoryUrgency, matches[0].Category)
	// 0.3 + 0.4 + 0.4, clamped to 1.0
	assert.Equal(t, 1.0, matches[0].Score)
	assert.GreaterOrEqual(t, len(matches[0].Matches), 3)
}

func TestMatchPatterns_ScopeRestriction(t *testing.T) {
	// "keep this confidential" is a body-only indicator
	matches := MatchPatterns("keep this confidential", "nothing of note here")
	for _, m := range matches {
		assert.NotEqual(t, CategorySecrecy, m.Category)
	}

	matches = MatchPatterns("meeting notes", "please keep this confidential")
	require.Len(t, matches, 1)
	assert.Equal(t, CategorySecrecy, matches[0].Category)
	assert.Equal(t, ScopeBody, matches[0].Matches[0].Location)
}

func TestMatchPatterns_ScoreClamped(t *testing.T) {
	body := "wire transfer wire the funds routing number swift code iban updated banking details new bank account"
	matches := MatchPatterns("", body)

	require.NotEmpty(t, matches)
	assert.Equal(t, CategoryWireTransfer, matches[0].Category)
	assert.Equal(t, 1.0, matches[0].Score)
}

func TestMatchPatterns_SortedByScore(t *testing.T) {
	matches := MatchPatterns(
		"Overdue invoice #4417",
		"Please remit payment immediately, payment details have changed.",
	)

	require.GreaterOrEqual(t, len(matches), 2)
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestMatchPatterns_CleanText(t *testing.T) {
	matches := MatchPatterns("Lunch on Friday?", "Shall we try the new place around the corner at noon?")
	assert.Empty(t, matches)
}

func TestExtractAmounts(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []float64
	}{
		{"symbol with separators", "I need $45,000 by Friday", []float64{45000}},
		{"thousands suffix", "roughly $50k total", []float64{50000}},
		{"millions suffix", "a $1.5M acquisition", []float64{1500000}},
		{"suffix labelled", "wire 45,000 dollars today", []float64{45000}},
		{"prefix labelled", "the amount is USD 9500", []float64{9500}},
		{"euro symbol", "invoice total €2.500,00 is wrong, use €2500", []float64{2.5, 2500}},
		{"no amounts", "see you at the meeting", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amounts := ExtractAmounts(tt.text)
			if tt.expected == nil {
				assert.Empty(t, amounts)
				return
			}
			require.Len(t, amounts, len(tt.expected))
			for i, want := range tt.expected {
				assert.InDelta(t, want, amounts[i], 0.01)
			}
		})
	}
}

func TestAssessAmountRisk(t *testing.T) {
	tests := []struct {
		name     string
		amounts  []float64
		expected domain.RiskLevel
	}{
		{"six figures", []float64{120000}, domain.RiskCritical},
		{"mid five figures", []float64{30000}, domain.RiskHigh},
		{"low five figures", []float64{6000}, domain.RiskMedium},
		{"small amount", []float64{100}, domain.RiskLow},
		{"max wins", []float64{50, 200000, 800}, domain.RiskCritical},
		{"empty", nil, domain.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			risk := AssessAmountRisk(tt.amounts)
			assert.Equal(t, tt.expected, risk.RiskLevel)
		})
	}
}

func TestHasHighRiskAmount(t *testing.T) {
	assert.True(t, HasHighRiskAmount([]float64{100, 5000}))
	assert.False(t, HasHighRiskAmount([]float64{4999.99}))
	assert.False(t, HasHighRiskAmount(nil))
}
