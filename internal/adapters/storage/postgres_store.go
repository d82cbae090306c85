package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aegismail/threat-engine/internal/domain"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// PostgresStore implements ports.Storage for PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL storage instance
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	// In production, should be set based on workload
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InitSchema creates database tables if they don't exist
// In production, use proper migration tools
func (s *PostgresStore) InitSchema() error {
	schema := `
	-- ============================================================================
	-- TENANTS TABLE
	-- ============================================================================
	-- Multi-tenant architecture: each tenant = one organization whose mail flows
	-- through the detection engine. organization_domain feeds lookalike-domain
	-- detection.
	CREATE TABLE IF NOT EXISTS tenants (
		id UUID PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		organization_domain VARCHAR(254) NOT NULL,
		status VARCHAR(20) DEFAULT 'active',
		created_at TIMESTAMP DEFAULT NOW(),
		updated_at TIMESTAMP DEFAULT NOW()
	);

	-- ============================================================================
	-- VIP_ENTRIES TABLE
	-- ============================================================================
	-- Tenant-curated registry of high-value identities (executives, finance
	-- staff) matched by the impersonation detector. Emails are stored
	-- lower-cased; one address per tenant.
	--
	-- aliases as JSONB string array: aliases are always read as a set alongside
	-- the entry, and the list is tiny (personal + assistant addresses).
	CREATE TABLE IF NOT EXISTS vip_entries (
		id UUID PRIMARY KEY,
		tenant_id UUID REFERENCES tenants(id) ON DELETE CASCADE,
		email VARCHAR(254) NOT NULL,
		display_name VARCHAR(100) NOT NULL,
		title VARCHAR(100),
		department VARCHAR(100),
		role VARCHAR(20) NOT NULL,
		aliases JSONB,
		created_at TIMESTAMP DEFAULT NOW(),
		UNIQUE(tenant_id, email)
	);

	-- Backs GetVIPList, the hot read of every BEC analysis
	CREATE INDEX IF NOT EXISTS idx_vip_tenant ON vip_entries(tenant_id);

	-- ============================================================================
	-- VERDICTS TABLE
	-- ============================================================================
	-- Aggregated engine output per analyzed message.
	--
	-- signals and layers as JSONB: they are always read alongside the verdict
	-- for audit display. Production would break signals into a dedicated table
	-- to support queries like "all homoglyph detections this month".
	CREATE TABLE IF NOT EXISTS verdicts (
		id UUID PRIMARY KEY,
		tenant_id UUID REFERENCES tenants(id) ON DELETE CASCADE,
		score INTEGER NOT NULL,
		confidence DECIMAL(5,4) NOT NULL,
		category VARCHAR(12) NOT NULL,
		signals JSONB,
		layers JSONB,
		analyzed_at TIMESTAMP DEFAULT NOW()
	);

	-- Backs GetHighRiskVerdicts: filter on category, most recent first
	CREATE INDEX IF NOT EXISTS idx_verdicts_category ON verdicts(tenant_id, category, analyzed_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateTenant inserts a new tenant
func (s *PostgresStore) CreateTenant(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, organization_domain, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		tenant.ID, tenant.Name, tenant.OrganizationDomain,
		tenant.Status, tenant.CreatedAt, tenant.UpdatedAt,
	)
	return err
}

// GetTenant retrieves a tenant by ID
func (s *PostgresStore) GetTenant(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `
		SELECT id, name, organization_domain, status, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	tenant := &domain.Tenant{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&tenant.ID, &tenant.Name, &tenant.OrganizationDomain,
		&tenant.Status, &tenant.CreatedAt, &tenant.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return tenant, err
}

// CreateVIPEntry inserts or updates a protected identity
func (s *PostgresStore) CreateVIPEntry(ctx context.Context, entry *domain.VIPEntry) error {
	aliasJSON, err := json.Marshal(entry.Aliases)
	if err != nil {
		return fmt.Errorf("failed to marshal aliases: %w", err)
	}

	query := `
		INSERT INTO vip_entries (id, tenant_id, email, display_name, title, department, role, aliases, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id, email) DO UPDATE
		SET display_name = EXCLUDED.display_name,
		    title = EXCLUDED.title,
		    department = EXCLUDED.department,
		    role = EXCLUDED.role,
		    aliases = EXCLUDED.aliases
	`
	_, err = s.db.ExecContext(ctx, query,
		entry.ID, entry.TenantID, entry.Email, entry.DisplayName,
		entry.Title, entry.Department, entry.Role, aliasJSON, entry.CreatedAt,
	)
	return err
}

// GetVIPList retrieves all protected identities for a tenant
func (s *PostgresStore) GetVIPList(ctx context.Context, tenantID uuid.UUID) ([]domain.VIPEntry, error) {
	query := `
		SELECT id, tenant_id, email, display_name, title, department, role, aliases, created_at
		FROM vip_entries
		WHERE tenant_id = $1
		ORDER BY display_name
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vip entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.VIPEntry
	for rows.Next() {
		var entry domain.VIPEntry
		var title, department sql.NullString
		var aliasJSON []byte
		if err := rows.Scan(
			&entry.ID, &entry.TenantID, &entry.Email, &entry.DisplayName,
			&title, &department, &entry.Role, &aliasJSON, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan vip entry: %w", err)
		}
		entry.Title = title.String
		entry.Department = department.String
		if len(aliasJSON) > 0 {
			if err := json.Unmarshal(aliasJSON, &entry.Aliases); err != nil {
				return nil, fmt.Errorf("failed to unmarshal aliases: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CreateVerdict persists an aggregated verdict
func (s *PostgresStore) CreateVerdict(ctx context.Context, verdict *domain.Verdict) error {
	signalJSON, err := json.Marshal(verdict.Signals)
	if err != nil {
		return fmt.Errorf("failed to marshal signals: %w", err)
	}
	layerJSON, err := json.Marshal(verdict.Layers)
	if err != nil {
		return fmt.Errorf("failed to marshal layer results: %w", err)
	}

	query := `
		INSERT INTO verdicts (id, tenant_id, score, confidence, category, signals, layers, analyzed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = s.db.ExecContext(ctx, query,
		verdict.ID, verdict.TenantID, verdict.Score, verdict.Confidence,
		verdict.Category, signalJSON, layerJSON, verdict.AnalyzedAt,
	)
	return err
}

// GetHighRiskVerdicts retrieves recent quarantine/block verdicts for a tenant
func (s *PostgresStore) GetHighRiskVerdicts(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.Verdict, error) {
	query := `
		SELECT id, tenant_id, score, confidence, category, signals, layers, analyzed_at
		FROM verdicts
		WHERE tenant_id = $1 AND category IN ('quarantine', 'block')
		ORDER BY analyzed_at DESC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdicts: %w", err)
	}
	defer rows.Close()

	var verdicts []domain.Verdict
	for rows.Next() {
		var verdict domain.Verdict
		var signalJSON, layerJSON []byte
		if err := rows.Scan(
			&verdict.ID, &verdict.TenantID, &verdict.Score, &verdict.Confidence,
			&verdict.Category, &signalJSON, &layerJSON, &verdict.AnalyzedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan verdict: %w", err)
		}
		if len(signalJSON) > 0 {
			if err := json.Unmarshal(signalJSON, &verdict.Signals); err != nil {
				return nil, fmt.Errorf("failed to unmarshal signals: %w", err)
			}
		}
		if len(layerJSON) > 0 {
			if err := json.Unmarshal(layerJSON, &verdict.Layers); err != nil {
				return nil, fmt.Errorf("failed to unmarshal layer results: %w", err)
			}
		}
		verdicts = append(verdicts, verdict)
	}
	return verdicts, rows.Err()
}
