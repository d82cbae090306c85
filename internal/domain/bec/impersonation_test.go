package bec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegismail/threat-engine/internal/domain"
)

func vipList() []domain.VIPEntry {
	return []domain.VIPEntry{
		{DisplayName: "John Doe", Email: "john.doe@company.com", Role: domain.RoleExecutive},
		{DisplayName: "Jane Smith", Email: "jane.smith@company.com", Role: domain.RoleFinance, Aliases: []string{"jsmith@company.com"}},
	}
}

func TestDetectImpersonation_VIPNameFromFreemail(t *testing.T) {
	result := DetectImpersonation(ImpersonationInput{
		SenderEmail: "john@gmail.com",
		SenderName:  "CEO John Doe",
		OrgDomain:   "company.com",
		VIPs:        vipList(),
	})

	assert.True(t, result.IsImpersonation)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, "freemail_vip", result.Type)
	require.NotNil(t, result.MatchedVIP)
	assert.Equal(t, "john.doe@company.com", result.MatchedVIP.Email)

	types := map[domain.SignalType]domain.Severity{}
	for _, sig := range result.Signals {
		types[sig.Type] = sig.Severity
	}
	assert.Contains(t, types, domain.SignalDisplayNameSpoof)
	assert.Contains(t, types, domain.SignalTitleSpoof)
	assert.Equal(t, domain.SeverityCritical, types[domain.SignalFreemailVIP])
	assert.Contains(t, result.Explanation, "multiple impersonation indicators")
}

func TestDetectImpersonation_VIPFromOwnAddressIsClean(t *testing.T) {
	result := DetectImpersonation(ImpersonationInput{
		SenderEmail: "jane.smith@company.com",
		SenderName:  "Jane Smith",
		OrgDomain:   "company.com",
		VIPs:        vipList(),
	})

	assert.False(t, result.IsImpersonation)
	assert.Empty(t, result.Signals)
}

func TestDetectImpersonation_VIPAliasIsClean(t *testing.T) {
	result := DetectImpersonation(ImpersonationInput{
		SenderEmail: "jsmith@company.com",
		SenderName:  "Jane Smith",
		OrgDomain:   "company.com",
		VIPs:        vipList(),
	})

	assert.False(t, result.IsImpersonation)
}

func TestDetectImpersonation_Homoglyph(t *testing.T) {
	// Cyrillic о in the display name
	result := DetectImpersonation(ImpersonationInput{
		SenderEmail: "accounts@company-support.net",
		SenderName:  "Jоhn Smith",
		OrgDomain:   "company.com",
	})

	assert.True(t, result.IsImpersonation)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Equal(t, "homoglyph", result.Type)
	require.Len(t, result.Signals, 1)
	assert.Equal(t, domain.SignalHomoglyphAttack, result.Signals[0].Type)
	assert.Equal(t, domain.SeverityCritical, result.Signals[0].Severity)
	assert.Contains(t, result.Explanation, "homoglyph")
}

func TestDetectImpersonation_NonASCIIAddress(t *testing.T) {
	result := DetectImpersonation(ImpersonationInput{
		SenderEmail: "josé@company.com",
		SenderName:  "Jose Garcia",
		OrgDomain:   "company.com",
	})

	assert.True(t, result.IsImpersonation)
	assert.Equal(t, 0.6, result.Confidence)
	require.Len(t, result.Signals, 1)
	assert.Equal(t, domain.SeverityWarning, result.Signals[0].Severity)
}

func TestDetectImpersonation_ReplyToMismatch(t *testing.T) {
	result := DetectImpersonation(ImpersonationInput{
		SenderEmail: "alice@company.com",
		SenderName:  "Alice Brown",
		ReplyTo:     "alice.brown@gmail.com",
		OrgDomain:   "company.com",
	})

	assert.True(t, result.IsImpersonation)
	assert.Equal(t, 0.7, result.Confidence)
	require.Len(t, result.Signals, 1)
	assert.Equal(t, domain.SignalReplyToMismatch, result.Signals[0].Type)
	assert.Equal(t, domain.SeverityWarning, result.Signals[0].Severity)
}

func TestDetectImpersonation_LookalikeDomains(t *testing.T) {
	tests := []struct {
		name               string
		senderEmail        string
		expectedConfidence float64
		expectedTechnique  string
	}{
		{"TLD swap", "billing@company.net", 0.8, "same name under different TLD"},
		{"transposition", "billing@compnay.com", 0.9, "edit distance 1"},
		{"two edits", "billing@cmpny.com", 0.7, "edit distance 2"},
		{"digit substitution", "billing@c0mpany.com", 0.9, "edit distance 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetectImpersonation(ImpersonationInput{
				SenderEmail: tt.senderEmail,
				SenderName:  "Billing Team",
				OrgDomain:   "company.com",
			})

			assert.True(t, result.IsImpersonation)
			assert.Equal(t, tt.expectedConfidence, result.Confidence)
			require.Len(t, result.Signals, 1)
			assert.Equal(t, domain.SignalLookalikeDomain, result.Signals[0].Type)
			assert.Equal(t, tt.expectedTechnique, result.Signals[0].Metadata["technique"])
		})
	}
}

func TestDetectImpersonation_SubstitutionBeyondEditDistance(t *testing.T) {
	result := DetectImpersonation(ImpersonationInput{
		SenderEmail: "info@cornrnunication.com",
		SenderName:  "Info Desk",
		OrgDomain:   "communication.com",
	})

	assert.True(t, result.IsImpersonation)
	assert.Equal(t, 0.85, result.Confidence)
	require.Len(t, result.Signals, 1)
	assert.Contains(t, result.Signals[0].Metadata["technique"], "character substitution")
}

func TestDetectImpersonation_UnrelatedSenderIsClean(t *testing.T) {
	result := DetectImpersonation(ImpersonationInput{
		SenderEmail: "bob@partner.org",
		SenderName:  "Bob Martin",
		OrgDomain:   "company.com",
		VIPs:        vipList(),
	})

	assert.False(t, result.IsImpersonation)
	assert.Equal(t, 0.0, result.Confidence)
	assert.Empty(t, result.Signals)
	assert.Empty(t, result.Explanation)
}

func TestDetectImpersonation_CustomFreemailList(t *testing.T) {
	result := DetectImpersonation(ImpersonationInput{
		SenderEmail:     "john.doe@webmail.example",
		SenderName:      "John Doe",
		OrgDomain:       "company.com",
		VIPs:            vipList(),
		FreemailDomains: []string{"webmail.example"},
	})

	assert.True(t, result.IsImpersonation)
	assert.Equal(t, 0.85, result.Confidence)
	assert.Equal(t, "freemail_vip", result.Type)
}
