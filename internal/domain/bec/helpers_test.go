package bec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		s1, s2   string
		expected int
	}{
		{"company", "company", 0},
		{"compnay", "company", 1}, // adjacent transposition is one edit
		{"micros0ft", "microsoft", 1},
		{"company", "compan", 1},
		{"google", "goggle", 1},
		{"kitten", "sitting", 3},
		{"abc", "", 3},
		{"", "xy", 2},
		{"", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.s1+"/"+tt.s2, func(t *testing.T) {
			assert.Equal(t, tt.expected, editDistance(tt.s1, tt.s2))
			assert.Equal(t, tt.expected, editDistance(tt.s2, tt.s1))
		})
	}
}

func TestExtractDomain(t *testing.T) {
	assert.Equal(t, "company.com", extractDomain("ceo@company.com"))
	assert.Equal(t, "company.com", extractDomain("ceo@COMPANY.COM"))
	assert.Equal(t, "", extractDomain("not-an-address"))
	assert.Equal(t, "", extractDomain("a@b@c"))
}

func TestDomainBase(t *testing.T) {
	assert.Equal(t, "company", domainBase("company.com"))
	assert.Equal(t, "company.co", domainBase("company.co.uk"))
	assert.Equal(t, "localhost", domainBase("localhost"))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "john doe", normalizeName("  John   DOE "))
	assert.Equal(t, "", normalizeName("   "))
}

func TestSignificantWords(t *testing.T) {
	assert.Equal(t, []string{"john", "doe"}, significantWords("Mr. John Doe"))
	assert.Equal(t, []string{"jane", "smith"}, significantWords("Dr Jane Smith"))
	assert.Empty(t, significantWords("Mr."))
}
