package bec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aegismail/threat-engine/internal/domain"
)

// FinancialRisk summarizes monetary amounts found in a message
type FinancialRisk struct {
	HasFinancialRequest bool             `json:"has_financial_request"`
	Amounts             []float64        `json:"amounts,omitempty"`
	MaxAmount           float64          `json:"max_amount"`
	RiskLevel           domain.RiskLevel `json:"risk_level"`
}

// Three extraction passes: currency-symbol-prefixed, suffix-labelled and
// prefix-labelled numerics
var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[$€£¥]\s?\d[\d,]*(?:\.\d+)?(?:\s?[kKmM])?`),
	regexp.MustCompile(`(?i)\d[\d,]*(?:\.\d+)?\s?(?:dollars|usd|euros?|eur|pounds|gbp)`),
	regexp.MustCompile(`(?i)(?:usd|eur|gbp)\s?\d[\d,]*(?:\.\d+)?`),
}

var nonNumeric = regexp.MustCompile(`[^\d.]`)

// ExtractAmounts finds monetary amounts in free text
func ExtractAmounts(text string) []float64 {
	var amounts []float64
	for _, pattern := range amountPatterns {
		for _, raw := range pattern.FindAllString(text, -1) {
			multiplier := 1.0
			lower := strings.ToLower(raw)
			if strings.HasSuffix(lower, "k") {
				multiplier = 1_000
			} else if strings.HasSuffix(lower, "m") {
				multiplier = 1_000_000
			}

			cleaned := nonNumeric.ReplaceAllString(raw, "")
			value, err := strconv.ParseFloat(cleaned, 64)
			if err != nil || value == 0 {
				continue
			}
			amounts = append(amounts, value*multiplier)
		}
	}
	return amounts
}

// AssessAmountRisk buckets the maximum extracted amount.
// The thresholds mirror wire-fraud loss tiers: six figures is critical,
// anything at or above 5k counts as a high-risk amount.
func AssessAmountRisk(amounts []float64) FinancialRisk {
	risk := FinancialRisk{Amounts: amounts, RiskLevel: domain.RiskLow}
	for _, amount := range amounts {
		if amount > risk.MaxAmount {
			risk.MaxAmount = amount
		}
	}

	switch {
	case risk.MaxAmount >= 100_000:
		risk.RiskLevel = domain.RiskCritical
	case risk.MaxAmount >= 25_000:
		risk.RiskLevel = domain.RiskHigh
	case risk.MaxAmount >= 5_000:
		risk.RiskLevel = domain.RiskMedium
	}
	return risk
}

// HasHighRiskAmount reports whether any extracted amount is at least 5,000
func HasHighRiskAmount(amounts []float64) bool {
	for _, amount := range amounts {
		if amount >= 5_000 {
			return true
		}
	}
	return false
}
