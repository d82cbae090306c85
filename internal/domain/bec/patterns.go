// Package bec implements Business-Email-Compromise detection: a weighted
// pattern library over subject/body text, monetary-amount extraction,
// VIP-impersonation matching and compound-attack classification.
package bec

import (
	"regexp"
	"sort"
	"strings"

	"github.com/aegismail/threat-engine/internal/domain"
)

// Category names one BEC attack pattern family
type Category string

const (
	CategoryWireTransfer     Category = "wire_transfer"
	CategoryGiftCard         Category = "gift_card"
	CategoryInvoiceFraud     Category = "invoice_fraud"
	CategoryPayrollDiversion Category = "payroll_diversion"
	CategoryUrgency          Category = "urgency"
	CategorySecrecy          Category = "secrecy"
	CategoryAuthority        Category = "authority"

	// CategoryExecutiveSpoof is contributed by the impersonation detector,
	// not the text pattern library; compound-attack pairing needs it
	CategoryExecutiveSpoof Category = "executive_spoof"
)

// Scope restricts where an indicator may match
type Scope string

const (
	ScopeSubject Scope = "subject"
	ScopeBody    Scope = "body"
	ScopeBoth    Scope = "both"
)

// Indicator is one weighted keyword, phrase or regex within a pattern
type Indicator struct {
	Value  string
	Regex  *regexp.Regexp // nil for plain substring indicators
	Weight float64
	Scope  Scope
}

// Pattern is one named entry of the BEC pattern library
type Pattern struct {
	ID         string
	Category   Category
	Severity   domain.Severity
	Indicators []Indicator
}

// IndicatorMatch records one indicator hit with its location
type IndicatorMatch struct {
	Indicator string `json:"indicator"`
	Matched   string `json:"matched"`
	Location  Scope  `json:"location"`
}

// Match is one fired pattern with its clamped score
type Match struct {
	Pattern  Pattern          `json:"-"`
	ID       string           `json:"id"`
	Category Category         `json:"category"`
	Matches  []IndicatorMatch `json:"matches"`
	Score    float64          `json:"score"` // sum of matched indicator weights, clamped to [0,1]
}

func kw(value string, weight float64, scope Scope) Indicator {
	return Indicator{Value: value, Weight: weight, Scope: scope}
}

func rx(pattern string, weight float64, scope Scope) Indicator {
	return Indicator{Value: pattern, Regex: regexp.MustCompile(`(?i)` + pattern), Weight: weight, Scope: scope}
}

// patternLibrary is the fixed BEC pattern set, constructed once at startup.
// Weights are tuned so a single strong phrase fires a pattern near 0.5 and
// two or three corroborating indicators saturate it.
var patternLibrary = []Pattern{
	{
		ID:       "wire-fraud",
		Category: CategoryWireTransfer,
		Severity: domain.SeverityCritical,
		Indicators: []Indicator{
			kw("wire transfer", 0.5, ScopeBoth),
			kw("wire the funds", 0.6, ScopeBody),
			kw("bank transfer", 0.4, ScopeBoth),
			kw("routing number", 0.4, ScopeBody),
			kw("swift code", 0.4, ScopeBody),
			kw("iban", 0.3, ScopeBody),
			rx(`transfer\s+(?:of\s+)?\$?[\d,]+`, 0.5, ScopeBody),
			kw("updated banking details", 0.6, ScopeBody),
			kw("new bank account", 0.5, ScopeBody),
		},
	},
	{
		ID:       "gift-card-scam",
		Category: CategoryGiftCard,
		Severity: domain.SeverityCritical,
		Indicators: []Indicator{
			kw("gift card", 0.5, ScopeBoth),
			kw("gift cards", 0.5, ScopeBoth),
			kw("itunes card", 0.6, ScopeBody),
			kw("google play card", 0.6, ScopeBody),
			kw("scratch the back", 0.6, ScopeBody),
			rx(`(?:send|buy|purchase)\s+(?:me\s+)?(?:some\s+)?gift\s*cards?`, 0.7, ScopeBody),
			kw("card numbers and pins", 0.7, ScopeBody),
		},
	},
	{
		ID:       "invoice-fraud",
		Category: CategoryInvoiceFraud,
		Severity: domain.SeverityWarning,
		Indicators: []Indicator{
			kw("overdue invoice", 0.5, ScopeBoth),
			kw("outstanding invoice", 0.5, ScopeBoth),
			kw("unpaid invoice", 0.5, ScopeBoth),
			rx(`invoice\s*#?\s*\d+`, 0.3, ScopeBoth),
			kw("payment details have changed", 0.7, ScopeBody),
			kw("remit payment", 0.5, ScopeBody),
			kw("updated payment instructions", 0.7, ScopeBody),
		},
	},
	{
		ID:       "payroll-diversion",
		Category: CategoryPayrollDiversion,
		Severity: domain.SeverityWarning,
		Indicators: []Indicator{
			kw("direct deposit", 0.5, ScopeBoth),
			kw("update my payroll", 0.7, ScopeBody),
			kw("change my bank account", 0.6, ScopeBody),
			kw("payroll information", 0.4, ScopeBody),
			kw("salary account", 0.5, ScopeBody),
		},
	},
	{
		ID:       "urgency-pressure",
		Category: CategoryUrgency,
		Severity: domain.SeverityWarning,
		Indicators: []Indicator{
			kw("urgent", 0.3, ScopeBoth),
			kw("immediately", 0.3, ScopeBoth),
			kw("asap", 0.3, ScopeBoth),
			kw("right away", 0.3, ScopeBody),
			kw("before end of day", 0.4, ScopeBody),
			kw("time sensitive", 0.4, ScopeBoth),
			kw("needed today", 0.4, ScopeBoth),
			rx(`within\s+the\s+(?:next\s+)?(?:hour|few hours)`, 0.5, ScopeBody),
		},
	},
	{
		ID:       "secrecy-request",
		Category: CategorySecrecy,
		Severity: domain.SeverityWarning,
		Indicators: []Indicator{
			kw("keep this confidential", 0.6, ScopeBody),
			kw("do not discuss", 0.6, ScopeBody),
			kw("between us", 0.4, ScopeBody),
			kw("don't tell anyone", 0.6, ScopeBody),
			kw("discreet", 0.4, ScopeBody),
			kw("strictly confidential", 0.5, ScopeBoth),
		},
	},
	{
		ID:       "authority-manipulation",
		Category: CategoryAuthority,
		Severity: domain.SeverityWarning,
		Indicators: []Indicator{
			kw("i am in a meeting", 0.4, ScopeBody),
			kw("can't talk right now", 0.4, ScopeBody),
			kw("handle this for me", 0.4, ScopeBody),
			kw("i need you to", 0.3, ScopeBody),
			kw("as discussed", 0.3, ScopeBody),
			kw("per my instruction", 0.5, ScopeBody),
			kw("this is approved", 0.4, ScopeBody),
		},
	},
}

// MatchPatterns scans subject and body against the pattern library.
// A pattern fires when at least one indicator matches; its score is the sum
// of matched indicator weights clamped to [0,1]. Results are sorted by
// descending score.
func MatchPatterns(subject, body string) []Match {
	subjectLower := strings.ToLower(subject)
	bodyLower := strings.ToLower(body)

	matches := make([]Match, 0)
	for _, pattern := range patternLibrary {
		var hits []IndicatorMatch
		score := 0.0

		for _, ind := range pattern.Indicators {
			if ind.Scope == ScopeSubject || ind.Scope == ScopeBoth {
				if matched, ok := matchIndicator(ind, subject, subjectLower); ok {
					hits = append(hits, IndicatorMatch{Indicator: ind.Value, Matched: matched, Location: ScopeSubject})
					score += ind.Weight
					continue
				}
			}
			if ind.Scope == ScopeBody || ind.Scope == ScopeBoth {
				if matched, ok := matchIndicator(ind, body, bodyLower); ok {
					hits = append(hits, IndicatorMatch{Indicator: ind.Value, Matched: matched, Location: ScopeBody})
					score += ind.Weight
				}
			}
		}

		if len(hits) == 0 {
			continue
		}
		if score > 1.0 {
			score = 1.0
		}
		matches = append(matches, Match{
			Pattern:  pattern,
			ID:       pattern.ID,
			Category: pattern.Category,
			Matches:  hits,
			Score:    score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	return matches
}

func matchIndicator(ind Indicator, text, textLower string) (string, bool) {
	if ind.Regex != nil {
		if m := ind.Regex.FindString(text); m != "" {
			return m, true
		}
		return "", false
	}
	if strings.Contains(textLower, ind.Value) {
		return ind.Value, true
	}
	return "", false
}
