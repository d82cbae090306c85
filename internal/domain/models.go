package domain

import (
	"time"

	"github.com/google/uuid"
)

// Severity grades an individual detection signal
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// SignalType is the closed set of signal tags the engine can emit.
//
// Keeping this a closed set (rather than free-form strings) means downstream
// consumers (audit UI, notification rules) can switch exhaustively and new
// signal types show up as compile-visible additions here.
type SignalType string

const (
	// Attachment layer signals
	SignalDangerousAttachment  SignalType = "dangerous_attachment"
	SignalExecutableAttachment SignalType = "executable_attachment"
	SignalScriptAttachment     SignalType = "script_attachment"
	SignalMacroEnabled         SignalType = "macro_enabled"
	SignalSuspiciousMacro      SignalType = "suspicious_macro"
	SignalDoubleExtension      SignalType = "double_extension"
	SignalRTLOverride          SignalType = "rtl_override"
	SignalExtensionMismatch    SignalType = "extension_mismatch"
	SignalPasswordProtected    SignalType = "password_protected"
	SignalNestedArchive        SignalType = "nested_archive"
	SignalArchiveDangerousFile SignalType = "archive_dangerous_file"
	SignalSizeAnomaly          SignalType = "size_anomaly"
	SignalURLDensity           SignalType = "url_density"
	SignalAttachmentMalware    SignalType = "attachment_malware"
	SignalAttachmentSuspicious SignalType = "attachment_suspicious"

	// BEC layer signals
	SignalBECPattern       SignalType = "bec_pattern"
	SignalDisplayNameSpoof SignalType = "display_name_spoof"
	SignalTitleSpoof       SignalType = "title_spoof"
	SignalFreemailVIP      SignalType = "freemail_vip"
	SignalReplyToMismatch  SignalType = "reply_to_mismatch"
	SignalLookalikeDomain  SignalType = "lookalike_domain"
	SignalHomoglyphAttack  SignalType = "homoglyph_attack"
	SignalFinancialRequest SignalType = "financial_request"
	SignalCompoundAttack   SignalType = "compound_attack"

	// Header authentication signals
	SignalAuthFailure SignalType = "auth_failure"

	// Pipeline health signals
	SignalAnalysisError SignalType = "analysis_error"
)

// Signal is one discrete, typed piece of detection evidence.
// Signals are immutable once produced; layers append, nobody rewrites.
type Signal struct {
	Type     SignalType        `json:"type"`
	Severity Severity          `json:"severity"`
	Score    int               `json:"score"`
	Detail   string            `json:"detail"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// LayerResult is the standardized output of one detection layer.
//
// Invariant: Skipped == true implies Score == 0 and Signals empty. A skipped
// layer never contributes evidence, only a SkipReason for the audit trail.
type LayerResult struct {
	Layer            string            `json:"layer"`
	Score            int               `json:"score"`      // 0-100
	Confidence       float64           `json:"confidence"` // 0.0-1.0
	Signals          []Signal          `json:"signals"`
	ProcessingTimeMs int64             `json:"processing_time_ms"`
	Skipped          bool              `json:"skipped"`
	SkipReason       string            `json:"skip_reason,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// VerdictCategory is the final disposition for a message
type VerdictCategory string

const (
	VerdictPass       VerdictCategory = "pass"
	VerdictSuspicious VerdictCategory = "suspicious"
	VerdictQuarantine VerdictCategory = "quarantine"
	VerdictBlock      VerdictCategory = "block"
)

// Verdict is the aggregated output handed to storage/notification layers.
// The engine itself never persists it.
type Verdict struct {
	ID         uuid.UUID       `json:"id"`
	TenantID   uuid.UUID       `json:"tenant_id"`
	Score      int             `json:"score"`      // 0-100
	Confidence float64         `json:"confidence"` // 0.0-1.0
	Category   VerdictCategory `json:"category"`
	Signals    []Signal        `json:"signals"`
	Layers     []LayerResult   `json:"layers"`
	AnalyzedAt time.Time       `json:"analyzed_at"`
}

// RiskLevel buckets a numeric risk score into a categorical level
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevelFromScore buckets a 0-100 score into a categorical level
func RiskLevelFromScore(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskCritical
	case score >= 60:
		return RiskHigh
	case score >= 40:
		return RiskMedium
	case score >= 20:
		return RiskLow
	default:
		return RiskSafe
	}
}

// RiskLevelFromConfidence buckets a 0.0-1.0 confidence into a categorical level
func RiskLevelFromConfidence(score float64) RiskLevel {
	switch {
	case score >= 0.8:
		return RiskCritical
	case score >= 0.5:
		return RiskHigh
	case score >= 0.3:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Tenant represents an organization using the detection engine
type Tenant struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	OrganizationDomain string    `json:"organization_domain"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// VIPRole classifies a protected identity within a tenant
type VIPRole string

const (
	RoleExecutive VIPRole = "executive"
	RoleFinance   VIPRole = "finance"
	RoleHR        VIPRole = "hr"
	RoleIT        VIPRole = "it"
	RoleLegal     VIPRole = "legal"
	RoleBoard     VIPRole = "board"
	RoleAssistant VIPRole = "assistant"
	RoleCustom    VIPRole = "custom"
)

// VIPEntry is a tenant-curated high-value identity used for impersonation
// detection. Email is stored lower-cased and is unique per tenant.
// The engine only ever reads these; administration happens elsewhere.
type VIPEntry struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Title       string    `json:"title,omitempty"`
	Department  string    `json:"department,omitempty"`
	Role        VIPRole   `json:"role"`
	Aliases     []string  `json:"aliases,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Attachment is one raw attachment of a parsed email
type Attachment struct {
	Filename    string `json:"filename"`
	Content     []byte `json:"-"`                      // raw bytes, never serialized
	ContentHash string `json:"content_hash,omitempty"` // SHA-256, precomputed by ingestion
	FuzzyHash   string `json:"fuzzy_hash,omitempty"`   // TLSH, for near-duplicate reputation
}

// EmailMessage is the parsed-email input contract of the engine.
// Ingestion (webhook, manual sync) owns parsing; the engine only analyzes.
type EmailMessage struct {
	Subject        string            `json:"subject"`
	Body           string            `json:"body"`
	SenderEmail    string            `json:"sender_email"`
	SenderName     string            `json:"sender_name"`
	ReplyTo        string            `json:"reply_to,omitempty"`
	RecipientEmail string            `json:"recipient_email"`
	Headers        map[string]string `json:"headers,omitempty"`
	Attachments    []Attachment      `json:"attachments,omitempty"`
}
