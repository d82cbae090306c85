package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aegismail/threat-engine/internal/domain"
	"github.com/aegismail/threat-engine/internal/domain/bec"
)

// BECLayer wraps the BEC detector as a registered detection layer
type BECLayer struct {
	detector *bec.Detector
}

// NewBECLayer creates the BEC detection layer. A nil freemail list uses the
// built-in consumer-webmail set.
func NewBECLayer(freemailDomains []string) *BECLayer {
	return &BECLayer{detector: bec.NewDetector(freemailDomains)}
}

// Name returns the layer name
func (l *BECLayer) Name() string { return "bec" }

// Analyze runs BEC detection and adapts its result to the layer contract.
// The BEC confidence (0-1) becomes the layer score (0-100); layer confidence
// reflects how much tenant context was available to judge with.
func (l *BECLayer) Analyze(ctx context.Context, msg domain.EmailMessage, tenant TenantContext) (result domain.LayerResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result = domain.LayerResult{
				Layer:            l.Name(),
				Skipped:          true,
				SkipReason:       fmt.Sprintf("bec analysis error: %v", r),
				Confidence:       0.2,
				Signals:          []domain.Signal{},
				ProcessingTimeMs: time.Since(start).Milliseconds(),
			}
		}
	}()

	detection := l.detector.Detect(msg, tenant.VIPs, tenant.OrgDomain)

	// Text-based analysis always runs; VIP context deepens it
	confidence := 0.7
	if len(tenant.VIPs) > 0 {
		confidence += 0.15
	}
	if tenant.OrgDomain != "" {
		confidence += 0.1
	}

	return domain.LayerResult{
		Layer:            l.Name(),
		Score:            int(math.Round(detection.Confidence * 100)),
		Confidence:       confidence,
		Signals:          detection.Signals,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Metadata: map[string]string{
			"is_bec":     fmt.Sprintf("%t", detection.IsBEC),
			"risk_level": string(detection.RiskLevel),
			"summary":    detection.Summary,
		},
	}
}
