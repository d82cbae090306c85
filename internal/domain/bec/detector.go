package bec

import (
	"fmt"
	"strings"

	"github.com/aegismail/threat-engine/internal/domain"
)

// DetectionResult is the full BEC verdict for one message
type DetectionResult struct {
	IsBEC          bool                 `json:"is_bec"`
	Confidence     float64              `json:"confidence"`
	RiskLevel      domain.RiskLevel     `json:"risk_level"`
	Signals        []domain.Signal      `json:"signals"`
	PatternMatches []Match              `json:"pattern_matches"`
	Impersonation  *ImpersonationResult `json:"impersonation,omitempty"`
	Financial      FinancialRisk        `json:"financial"`
	Summary        string               `json:"summary"`
}

// Detector orchestrates pattern matching, amount extraction, impersonation
// and compound-attack classification into one BEC verdict
type Detector struct {
	freemailDomains []string
}

// NewDetector creates a BEC detector. A nil freemail list falls back to the
// built-in consumer-webmail set.
func NewDetector(freemailDomains []string) *Detector {
	return &Detector{freemailDomains: freemailDomains}
}

// Contribution caps: no single source can dominate the combined confidence
const (
	maxPatternContribution   = 0.4
	maxImpersonationContrib  = 0.4
	maxFinancialContribution = 0.2
	compoundBonus            = 0.15
	criticalFloor            = 0.8
)

// Detect runs the full BEC analysis for one message against a tenant's VIP
// list and organization domain.
func (d *Detector) Detect(msg domain.EmailMessage, vips []domain.VIPEntry, orgDomain string) DetectionResult {
	result := DetectionResult{Signals: []domain.Signal{}}

	// Text patterns
	result.PatternMatches = MatchPatterns(msg.Subject, msg.Body)
	fired := make(map[Category]bool, len(result.PatternMatches))
	for _, match := range result.PatternMatches {
		fired[match.Category] = true
		result.Signals = append(result.Signals, domain.Signal{
			Type:     domain.SignalBECPattern,
			Severity: match.Pattern.Severity,
			Score:    int(match.Score * 100),
			Detail:   fmt.Sprintf("pattern %s matched %d indicators", match.ID, len(match.Matches)),
			Metadata: map[string]string{"category": string(match.Category), "pattern": match.ID},
		})
	}

	// Impersonation
	impersonation := DetectImpersonation(ImpersonationInput{
		SenderEmail:     msg.SenderEmail,
		SenderName:      msg.SenderName,
		ReplyTo:         msg.ReplyTo,
		OrgDomain:       orgDomain,
		VIPs:            vips,
		FreemailDomains: d.freemailDomains,
	})
	result.Impersonation = &impersonation
	result.Signals = append(result.Signals, impersonation.Signals...)
	if impersonation.IsImpersonation {
		fired[CategoryExecutiveSpoof] = true
	}

	// Financial amounts
	amounts := ExtractAmounts(msg.Subject + " " + msg.Body)
	result.Financial = AssessAmountRisk(amounts)
	result.Financial.HasFinancialRequest = len(amounts) > 0 ||
		fired[CategoryWireTransfer] || fired[CategoryGiftCard] ||
		fired[CategoryInvoiceFraud] || fired[CategoryPayrollDiversion]
	if len(amounts) > 0 {
		result.Signals = append(result.Signals, domain.Signal{
			Type:     domain.SignalFinancialRequest,
			Severity: financialSeverity(result.Financial.RiskLevel),
			Score:    financialScore(result.Financial.RiskLevel),
			Detail:   fmt.Sprintf("monetary amounts mentioned, maximum %.2f", result.Financial.MaxAmount),
		})
	}

	// Compound attack
	compound := DetectCompound(fired)
	if compound.IsCompound {
		result.Signals = append(result.Signals, domain.Signal{
			Type:     domain.SignalCompoundAttack,
			Severity: compoundSeverity(compound.RiskLevel),
			Score:    compoundScore(compound.RiskLevel),
			Detail:   fmt.Sprintf("compound attack: %s", compound.Combination),
		})
	}

	result.Confidence = d.combineConfidence(result, impersonation, compound)
	result.RiskLevel = domain.RiskLevelFromConfidence(result.Confidence)
	result.IsBEC = result.Confidence >= 0.5 ||
		(impersonation.IsImpersonation && result.Financial.HasFinancialRequest) ||
		hasCriticalSignal(result.Signals)
	result.Summary = d.summarize(result, impersonation, compound)

	return result
}

// combineConfidence is a weighted sum with per-source caps: patterns up to
// 0.4, impersonation up to 0.4, financial risk up to 0.2, plus a compound
// bonus, capped at 1.0. Any critical signal floors the result at 0.8.
func (d *Detector) combineConfidence(result DetectionResult, imp ImpersonationResult, compound CompoundResult) float64 {
	patterns := 0.0
	for _, match := range result.PatternMatches {
		patterns += match.Score * 0.15
	}
	if patterns > maxPatternContribution {
		patterns = maxPatternContribution
	}

	impersonation := impersonationRiskScore(imp.Signals) * 0.4
	if impersonation > maxImpersonationContrib {
		impersonation = maxImpersonationContrib
	}

	financial := 0.0
	if result.Financial.HasFinancialRequest {
		financial = maxFinancialContribution * riskMultiplier(result.Financial.RiskLevel)
	}

	confidence := patterns + impersonation + financial
	if compound.IsCompound {
		confidence += compoundBonus
	}
	if confidence > 1.0 {
		confidence = 1.0
	}
	if hasCriticalSignal(result.Signals) && confidence < criticalFloor {
		confidence = criticalFloor
	}
	return confidence
}

// impersonationRiskScore is a severity-weighted normalized combination of
// the impersonation signals: each signal contributes by the risk level its
// score implies (critical 1.0, high 0.7, medium 0.4, low 0.2), the sum is
// halved and capped at 1.0.
func impersonationRiskScore(signals []domain.Signal) float64 {
	weights := map[domain.RiskLevel]float64{
		domain.RiskCritical: 1.0,
		domain.RiskHigh:     0.7,
		domain.RiskMedium:   0.4,
		domain.RiskLow:      0.2,
	}

	total := 0.0
	for _, sig := range signals {
		total += weights[domain.RiskLevelFromScore(sig.Score)]
	}
	score := total / 2
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func riskMultiplier(level domain.RiskLevel) float64 {
	switch level {
	case domain.RiskCritical:
		return 1.0
	case domain.RiskHigh:
		return 0.7
	case domain.RiskMedium:
		return 0.4
	default:
		return 0.2
	}
}

func hasCriticalSignal(signals []domain.Signal) bool {
	for _, sig := range signals {
		if sig.Severity == domain.SeverityCritical {
			return true
		}
	}
	return false
}

func financialSeverity(level domain.RiskLevel) domain.Severity {
	if level == domain.RiskCritical {
		return domain.SeverityCritical
	}
	if level == domain.RiskHigh {
		return domain.SeverityWarning
	}
	return domain.SeverityInfo
}

func financialScore(level domain.RiskLevel) int {
	switch level {
	case domain.RiskCritical:
		return 90
	case domain.RiskHigh:
		return 70
	case domain.RiskMedium:
		return 50
	default:
		return 20
	}
}

func compoundSeverity(level domain.RiskLevel) domain.Severity {
	if level == domain.RiskCritical {
		return domain.SeverityCritical
	}
	return domain.SeverityWarning
}

func compoundScore(level domain.RiskLevel) int {
	switch level {
	case domain.RiskCritical:
		return 90
	case domain.RiskHigh:
		return 70
	default:
		return 50
	}
}

// summarize builds the human-readable one-liner shown in review UIs
func (d *Detector) summarize(result DetectionResult, imp ImpersonationResult, compound CompoundResult) string {
	if !result.IsBEC && len(result.Signals) == 0 {
		return "no BEC indicators found"
	}

	var parts []string
	if len(result.PatternMatches) > 0 {
		var categories []string
		for _, match := range result.PatternMatches {
			categories = append(categories, string(match.Category))
		}
		parts = append(parts, fmt.Sprintf("patterns: %s", strings.Join(categories, ", ")))
	}
	if imp.IsImpersonation {
		parts = append(parts, fmt.Sprintf("impersonation (%s)", imp.Type))
	}
	if result.Financial.HasFinancialRequest && result.Financial.MaxAmount > 0 {
		parts = append(parts, fmt.Sprintf("financial request up to %.0f", result.Financial.MaxAmount))
	}
	if compound.IsCompound {
		parts = append(parts, fmt.Sprintf("compound attack (%s)", compound.RiskLevel))
	}
	if len(parts) == 0 {
		return "weak BEC indicators"
	}

	prefix := "possible BEC"
	if result.IsBEC {
		prefix = "likely BEC"
	}
	return fmt.Sprintf("%s: %s", prefix, strings.Join(parts, "; "))
}
