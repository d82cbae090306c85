package ports

import (
	"context"

	"github.com/aegismail/threat-engine/internal/domain"
	"github.com/google/uuid"
)

// VIPStore is the read-only VIP-list lookup the detection core consumes.
// The engine never mutates VIP entries; administration happens elsewhere.
type VIPStore interface {
	GetVIPList(ctx context.Context, tenantID uuid.UUID) ([]domain.VIPEntry, error)
}

// Storage defines the contract for persisting and querying engine entities.
// The detection core itself never calls this; the application service does,
// after analysis has produced a verdict.
type Storage interface {
	VIPStore

	// Tenant operations
	CreateTenant(ctx context.Context, tenant *domain.Tenant) error
	GetTenant(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)

	// VIP administration (written by admin flows, read by detection)
	CreateVIPEntry(ctx context.Context, entry *domain.VIPEntry) error

	// Verdict operations
	CreateVerdict(ctx context.Context, verdict *domain.Verdict) error
	GetHighRiskVerdicts(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.Verdict, error)

	// Lifecycle
	Close() error
}
