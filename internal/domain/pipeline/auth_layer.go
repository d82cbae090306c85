package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aegismail/threat-engine/internal/domain"
)

// AuthLayer checks email authentication headers for SPF, DKIM and DMARC
// failures. These standards verify that a message legitimately comes from
// the claimed domain; failing several at once is a strong spoofing signal.
type AuthLayer struct{}

// NewAuthLayer creates the header-authentication layer
func NewAuthLayer() *AuthLayer {
	return &AuthLayer{}
}

// Name returns the layer name
func (l *AuthLayer) Name() string { return "auth" }

// Analyze inspects authentication result headers
func (l *AuthLayer) Analyze(ctx context.Context, msg domain.EmailMessage, tenant TenantContext) domain.LayerResult {
	start := time.Now()

	var failures []string

	if spf, ok := msg.Headers["Received-SPF"]; ok {
		if strings.Contains(strings.ToLower(spf), "fail") {
			failures = append(failures, "SPF")
		}
	}
	if authResults, ok := msg.Headers["Authentication-Results"]; ok {
		lower := strings.ToLower(authResults)
		if strings.Contains(lower, "dkim=fail") {
			failures = append(failures, "DKIM")
		}
		if strings.Contains(lower, "dmarc=fail") {
			failures = append(failures, "DMARC")
		}
	}

	result := domain.LayerResult{
		Layer:            l.Name(),
		Signals:          []domain.Signal{},
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}

	switch {
	case len(failures) >= 2:
		// Legitimate misconfigurations usually break a single protocol;
		// multiple simultaneous failures point at spoofing
		result.Score = 60
		result.Confidence = 0.8
		result.Signals = append(result.Signals, domain.Signal{
			Type:     domain.SignalAuthFailure,
			Severity: domain.SeverityWarning,
			Score:    60,
			Detail:   fmt.Sprintf("email authentication failures: %s", strings.Join(failures, ", ")),
		})
	case len(failures) == 1:
		result.Score = 30
		result.Confidence = 0.6
		result.Signals = append(result.Signals, domain.Signal{
			Type:     domain.SignalAuthFailure,
			Severity: domain.SeverityInfo,
			Score:    30,
			Detail:   fmt.Sprintf("email authentication failure: %s", failures[0]),
		})
	default:
		result.Score = 0
		result.Confidence = 0.9
	}

	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result
}
