// Package pipeline runs the registered detection layers over one message
// and aggregates their results into a single verdict.
package pipeline

import (
	"context"

	"github.com/aegismail/threat-engine/internal/domain"
	"github.com/google/uuid"
)

// TenantContext is the per-tenant policy context shared by all layers
type TenantContext struct {
	TenantID        uuid.UUID
	OrgDomain       string
	VIPs            []domain.VIPEntry
	FreemailDomains []string
}

// Layer is one independent detection layer.
//
// Layers are order-insensitive and must never fail hard: anything that goes
// wrong inside a layer surfaces as a skipped LayerResult with a depressed
// confidence, because a detection failure must never block mail processing.
type Layer interface {
	Name() string
	Analyze(ctx context.Context, msg domain.EmailMessage, tenant TenantContext) domain.LayerResult
}
