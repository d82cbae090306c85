package bec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aegismail/threat-engine/internal/domain"
)

// ImpersonationInput carries the sender identity under scrutiny plus the
// tenant context needed to judge it
type ImpersonationInput struct {
	SenderEmail     string
	SenderName      string
	ReplyTo         string
	OrgDomain       string
	VIPs            []domain.VIPEntry
	FreemailDomains []string
}

// ImpersonationResult is the combined outcome of all impersonation checks.
// Every firing check contributes a signal; Confidence is the maximum across
// them and IsImpersonation is derived as Confidence > 0.5.
type ImpersonationResult struct {
	IsImpersonation bool             `json:"is_impersonation"`
	Type            string           `json:"type,omitempty"`
	Confidence      float64          `json:"confidence"`
	MatchedVIP      *domain.VIPEntry `json:"matched_vip,omitempty"`
	Signals         []domain.Signal  `json:"signals"`
	Explanation     string           `json:"explanation,omitempty"`
}

// defaultFreemailDomains are consumer webmail providers an executive would
// not legitimately send corporate requests from
var defaultFreemailDomains = []string{
	"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "aol.com",
	"icloud.com", "mail.com", "protonmail.com", "gmx.com", "yandex.com",
}

var executiveTitlePattern = regexp.MustCompile(`(?i)\b(?:ceo|cfo|coo|cto|cio|president|vice\s+president|chairman|chief\s+\w+\s+officer|managing\s+director|director)\b`)

// homoglyphs maps Cyrillic and Greek look-alikes to the Latin letters they
// imitate. Any table hit in a display name or address is a deliberate
// spoofing technique, not an accident.
var homoglyphs = map[rune]rune{
	// Cyrillic
	'а': 'a', 'е': 'e', 'о': 'o', 'р': 'p', 'с': 'c', 'х': 'x', 'у': 'y',
	'і': 'i', 'ѕ': 's', 'ј': 'j', 'ԁ': 'd', 'ɡ': 'g', 'ⅼ': 'l',
	'А': 'A', 'В': 'B', 'Е': 'E', 'К': 'K', 'М': 'M', 'Н': 'H', 'О': 'O',
	'Р': 'P', 'С': 'C', 'Т': 'T', 'Х': 'X',
	// Greek
	'ο': 'o', 'ν': 'v', 'α': 'a', 'ρ': 'p', 'τ': 't', 'υ': 'u', 'ι': 'i',
	'κ': 'k', 'Α': 'A', 'Β': 'B', 'Ε': 'E', 'Ζ': 'Z', 'Η': 'H', 'Ι': 'I',
	'Κ': 'K', 'Μ': 'M', 'Ν': 'N', 'Ο': 'O', 'Ρ': 'P', 'Τ': 'T',
}

// substitutions are the character swaps typosquatters use because the
// result reads the same at a glance
var substitutions = []struct{ spoof, real string }{
	{"0", "o"},
	{"1", "l"},
	{"1", "i"},
	{"5", "s"},
	{"4", "a"},
	{"3", "e"},
	{"rn", "m"},
	{"vv", "w"},
}

// DetectImpersonation runs every impersonation check independently, keeps
// the maximum confidence of those that fire and accumulates all signals.
func DetectImpersonation(input ImpersonationInput) ImpersonationResult {
	result := ImpersonationResult{Signals: []domain.Signal{}}
	freemail := input.FreemailDomains
	if len(freemail) == 0 {
		freemail = defaultFreemailDomains
	}

	senderEmail := strings.ToLower(strings.TrimSpace(input.SenderEmail))
	senderDomain := extractDomain(senderEmail)
	isFreemail := containsDomain(freemail, senderDomain)

	record := func(sig domain.Signal, checkType string, confidence float64) {
		result.Signals = append(result.Signals, sig)
		if confidence > result.Confidence {
			result.Confidence = confidence
			result.Type = checkType
		}
	}

	// 1. VIP display-name impersonation: the name matches a protected
	// identity while the sending address does not belong to it
	matchedVIP := matchVIPByName(input.SenderName, input.VIPs)
	if matchedVIP != nil && !emailBelongsToVIP(senderEmail, matchedVIP) {
		result.MatchedVIP = matchedVIP
		record(domain.Signal{
			Type:     domain.SignalDisplayNameSpoof,
			Severity: domain.SeverityWarning,
			Score:    75,
			Detail: fmt.Sprintf("display name %q matches VIP %s <%s> but sender address is %s",
				input.SenderName, matchedVIP.DisplayName, matchedVIP.Email, senderEmail),
			Metadata: map[string]string{"vip_email": matchedVIP.Email},
		}, "vip_display_name", 0.75)
	}

	// 2. Executive-title spoofing in the display name
	hasTitle := executiveTitlePattern.MatchString(input.SenderName)
	if hasTitle {
		record(domain.Signal{
			Type:     domain.SignalTitleSpoof,
			Severity: domain.SeverityWarning,
			Score:    60,
			Detail:   fmt.Sprintf("display name %q claims an executive title", input.SenderName),
		}, "executive_title", 0.6)
	}

	// 3. VIP name sent from a consumer webmail provider. Co-occurring with a
	// claimed title this is the classic CEO-gift-card setup and goes critical
	if matchedVIP != nil && isFreemail {
		severity := domain.SeverityWarning
		confidence := 0.85
		score := 85
		if hasTitle {
			severity = domain.SeverityCritical
			confidence = 0.95
			score = 95
		}
		record(domain.Signal{
			Type:     domain.SignalFreemailVIP,
			Severity: severity,
			Score:    score,
			Detail: fmt.Sprintf("display name matches VIP %s but sender uses free email provider %s",
				matchedVIP.DisplayName, senderDomain),
			Metadata: map[string]string{"provider": senderDomain},
		}, "freemail_vip", confidence)
	}

	// 4. Reply-To domain differs from the From domain
	replyTo := strings.ToLower(strings.TrimSpace(input.ReplyTo))
	if replyTo != "" && replyTo != senderEmail {
		replyDomain := extractDomain(replyTo)
		if replyDomain != "" && replyDomain != senderDomain {
			confidence := 0.5
			score := 50
			severity := domain.SeverityInfo
			if containsDomain(freemail, replyDomain) {
				confidence = 0.7
				score = 70
				severity = domain.SeverityWarning
			}
			record(domain.Signal{
				Type:     domain.SignalReplyToMismatch,
				Severity: severity,
				Score:    score,
				Detail:   fmt.Sprintf("Reply-To domain %s differs from sender domain %s", replyDomain, senderDomain),
			}, "reply_to", confidence)
		}
	}

	// 5. Cousin/lookalike domain against the organization's own domain
	if input.OrgDomain != "" && senderDomain != "" && senderDomain != strings.ToLower(input.OrgDomain) {
		if confidence, technique := lookalikeConfidence(senderDomain, strings.ToLower(input.OrgDomain)); confidence > 0 {
			record(domain.Signal{
				Type:     domain.SignalLookalikeDomain,
				Severity: domain.SeverityWarning,
				Score:    int(confidence * 100),
				Detail: fmt.Sprintf("sender domain %s is a lookalike of organization domain %s (%s)",
					senderDomain, input.OrgDomain, technique),
				Metadata: map[string]string{"technique": technique},
			}, "lookalike_domain", confidence)
		}
	}

	// 6. Unicode homoglyphs in display name or address
	if spoofed, ok := findHomoglyph(input.SenderName); ok {
		record(domain.Signal{
			Type:     domain.SignalHomoglyphAttack,
			Severity: domain.SeverityCritical,
			Score:    90,
			Detail: fmt.Sprintf("display name %q contains homoglyph %q imitating %q",
				input.SenderName, spoofed.found, spoofed.imitates),
		}, "homoglyph", 0.9)
	}
	if spoofed, ok := findHomoglyph(senderEmail); ok {
		record(domain.Signal{
			Type:     domain.SignalHomoglyphAttack,
			Severity: domain.SeverityCritical,
			Score:    90,
			Detail: fmt.Sprintf("sender address %q contains homoglyph %q imitating %q",
				senderEmail, spoofed.found, spoofed.imitates),
		}, "homoglyph", 0.9)
	} else if hasNonASCII(senderEmail) {
		// Any non-ASCII in an address is suspect even without a table hit
		record(domain.Signal{
			Type:     domain.SignalHomoglyphAttack,
			Severity: domain.SeverityWarning,
			Score:    60,
			Detail:   fmt.Sprintf("sender address %q contains non-ASCII characters", senderEmail),
		}, "homoglyph", 0.6)
	}

	result.IsImpersonation = result.Confidence > 0.5
	result.Explanation = explain(result.Signals)
	return result
}

// matchVIPByName fuzzy-matches a display name against the VIP list: exact
// normalized match, substring containment, or word overlap (at least two
// shared significant words, or half the words in common)
func matchVIPByName(displayName string, vips []domain.VIPEntry) *domain.VIPEntry {
	normalized := normalizeName(displayName)
	if normalized == "" {
		return nil
	}
	words := significantWords(displayName)

	for i := range vips {
		vipName := normalizeName(vips[i].DisplayName)
		if vipName == "" {
			continue
		}
		if normalized == vipName {
			return &vips[i]
		}
		if strings.Contains(normalized, vipName) || strings.Contains(vipName, normalized) {
			return &vips[i]
		}

		vipWords := significantWords(vips[i].DisplayName)
		shared := 0
		for _, w := range words {
			for _, vw := range vipWords {
				if w == vw {
					shared++
					break
				}
			}
		}
		if shared >= 2 {
			return &vips[i]
		}
		if len(vipWords) > 0 && float64(shared) >= 0.5*float64(len(vipWords)) && shared > 0 {
			return &vips[i]
		}
	}
	return nil
}

func emailBelongsToVIP(email string, vip *domain.VIPEntry) bool {
	if email == strings.ToLower(vip.Email) {
		return true
	}
	for _, alias := range vip.Aliases {
		if email == strings.ToLower(alias) {
			return true
		}
	}
	return false
}

// lookalikeConfidence classifies a sender domain as a cousin of the
// organization domain. Checks, in order of confidence: same base under a
// different TLD, edit distance 1 or 2 on the base (minimum base length 4 to
// avoid false positives on short names), and known character substitutions.
func lookalikeConfidence(senderDomain, orgDomain string) (float64, string) {
	senderBase := domainBase(senderDomain)
	orgBase := domainBase(orgDomain)

	if senderBase == orgBase {
		return 0.8, "same name under different TLD"
	}

	if len(orgBase) >= 4 {
		switch editDistance(senderBase, orgBase) {
		case 1:
			return 0.9, "edit distance 1"
		case 2:
			return 0.7, "edit distance 2"
		}
	}

	for _, sub := range substitutions {
		if strings.Contains(senderBase, sub.spoof) &&
			strings.ReplaceAll(senderBase, sub.spoof, sub.real) == orgBase {
			return 0.85, fmt.Sprintf("character substitution %q for %q", sub.spoof, sub.real)
		}
	}

	return 0, ""
}

type homoglyphHit struct {
	found    rune
	imitates rune
}

func findHomoglyph(s string) (homoglyphHit, bool) {
	for _, r := range s {
		if r < 128 {
			continue
		}
		if latin, ok := homoglyphs[r]; ok {
			return homoglyphHit{found: r, imitates: latin}, true
		}
	}
	return homoglyphHit{}, false
}

func hasNonASCII(s string) bool {
	for _, r := range s {
		if r >= 128 {
			return true
		}
	}
	return false
}

func containsDomain(list []string, domain string) bool {
	for _, d := range list {
		if domain == d {
			return true
		}
	}
	return false
}

// explain synthesizes the human-readable explanation: a single signal
// speaks for itself, multiple signals get listed by type
func explain(signals []domain.Signal) string {
	switch len(signals) {
	case 0:
		return ""
	case 1:
		return signals[0].Detail
	default:
		seen := make(map[domain.SignalType]bool)
		var types []string
		for _, sig := range signals {
			if !seen[sig.Type] {
				seen[sig.Type] = true
				types = append(types, string(sig.Type))
			}
		}
		return fmt.Sprintf("multiple impersonation indicators: %s", strings.Join(types, ", "))
	}
}
