package application

import (
	"context"
	"fmt"
	"log"

	"github.com/aegismail/threat-engine/internal/domain"
	"github.com/aegismail/threat-engine/internal/domain/pipeline"
	"github.com/aegismail/threat-engine/internal/ports"
)

// AnalysisService orchestrates the detection pipeline for one message at a
// time: load tenant context, run every registered layer, aggregate, persist.
//
// Error handling strategy:
//   - Layers never fail hard; they return skipped LayerResults themselves
//   - A verdict is always produced, because detection failures must never
//     block email delivery
//   - Persistence failures are returned to the caller, who decides whether
//     to retry; the verdict itself is still handed back
type AnalysisService struct {
	storage    ports.Storage
	layers     []pipeline.Layer
	aggregator *pipeline.Aggregator
}

// NewAnalysisService creates the analysis service with dependency injection
func NewAnalysisService(storage ports.Storage, layers []pipeline.Layer, aggregator *pipeline.Aggregator) *AnalysisService {
	return &AnalysisService{
		storage:    storage,
		layers:     layers,
		aggregator: aggregator,
	}
}

// AnalyzeMessage runs the full pipeline for one parsed message and persists
// the aggregated verdict. The message itself is never stored; only the
// verdict and its audit trail are.
func (s *AnalysisService) AnalyzeMessage(ctx context.Context, tenant *domain.Tenant, msg domain.EmailMessage) (domain.Verdict, error) {
	tenantCtx := pipeline.TenantContext{
		TenantID:  tenant.ID,
		OrgDomain: tenant.OrganizationDomain,
	}

	// VIP lookup is read-only tenant context; detection proceeds without it
	// rather than failing the whole analysis
	vips, err := s.storage.GetVIPList(ctx, tenant.ID)
	if err != nil {
		log.Printf("Failed to load VIP list for tenant %s: %v", tenant.ID, err)
	} else {
		tenantCtx.VIPs = vips
	}

	results := make([]domain.LayerResult, 0, len(s.layers))
	for _, layer := range s.layers {
		result := layer.Analyze(ctx, msg, tenantCtx)
		if result.Skipped && result.SkipReason != "" {
			layerSkips.WithLabelValues(layer.Name()).Inc()
		}
		results = append(results, result)
	}

	verdict := s.aggregator.Aggregate(tenant.ID, results)
	messagesAnalyzed.Inc()
	verdictsByCategory.WithLabelValues(string(verdict.Category)).Inc()

	if verdict.Category == domain.VerdictQuarantine || verdict.Category == domain.VerdictBlock {
		s.logHighRisk(msg, verdict)
	}

	if err := s.storage.CreateVerdict(ctx, &verdict); err != nil {
		return verdict, fmt.Errorf("failed to store verdict: %w", err)
	}
	return verdict, nil
}

// GetHighRiskSummary retrieves recent quarantine/block verdicts for a tenant
func (s *AnalysisService) GetHighRiskSummary(ctx context.Context, tenant *domain.Tenant, limit int) ([]domain.Verdict, error) {
	return s.storage.GetHighRiskVerdicts(ctx, tenant.ID, limit)
}

func (s *AnalysisService) logHighRisk(msg domain.EmailMessage, verdict domain.Verdict) {
	log.Printf("HIGH RISK EMAIL DETECTED:")
	log.Printf("  Subject: %s", msg.Subject)
	log.Printf("  From: %s <%s>", msg.SenderName, msg.SenderEmail)
	log.Printf("  Score: %d (%s, confidence %.2f)", verdict.Score, verdict.Category, verdict.Confidence)
	log.Printf("  Signals: %d", len(verdict.Signals))
	for _, signal := range verdict.Signals {
		log.Printf("    - [%s] %s: %s", signal.Severity, signal.Type, signal.Detail)
	}
}
