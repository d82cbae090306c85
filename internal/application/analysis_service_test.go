package application

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegismail/threat-engine/internal/domain"
	"github.com/aegismail/threat-engine/internal/domain/pipeline"
)

// mockStorage implements ports.Storage in memory for service tests
type mockStorage struct {
	vips        []domain.VIPEntry
	vipErr      error
	verdicts    []domain.Verdict
	verdictErr  error
	highRisk    []domain.Verdict
	highRiskErr error
}

func (m *mockStorage) GetVIPList(ctx context.Context, tenantID uuid.UUID) ([]domain.VIPEntry, error) {
	return m.vips, m.vipErr
}

func (m *mockStorage) CreateTenant(ctx context.Context, tenant *domain.Tenant) error { return nil }

func (m *mockStorage) GetTenant(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	return nil, errors.New("not implemented")
}

func (m *mockStorage) CreateVIPEntry(ctx context.Context, entry *domain.VIPEntry) error { return nil }

func (m *mockStorage) CreateVerdict(ctx context.Context, verdict *domain.Verdict) error {
	if m.verdictErr != nil {
		return m.verdictErr
	}
	m.verdicts = append(m.verdicts, *verdict)
	return nil
}

func (m *mockStorage) GetHighRiskVerdicts(ctx context.Context, tenantID uuid.UUID, limit int) ([]domain.Verdict, error) {
	return m.highRisk, m.highRiskErr
}

func (m *mockStorage) Close() error { return nil }

func testTenant() *domain.Tenant {
	return &domain.Tenant{
		ID:                 uuid.New(),
		Name:               "Acme Insurance Co.",
		OrganizationDomain: "acme-insurance.com",
		Status:             "active",
	}
}

func newService(storage *mockStorage) *AnalysisService {
	layers := []pipeline.Layer{
		pipeline.NewSandboxLayer(nil, pipeline.DefaultSandboxOptions()),
		pipeline.NewBECLayer(nil),
		pipeline.NewAuthLayer(),
	}
	return NewAnalysisService(storage, layers, pipeline.NewAggregator(pipeline.DefaultThresholds()))
}

func TestAnalyzeMessage_CleanEmail(t *testing.T) {
	storage := &mockStorage{}
	service := newService(storage)

	msg := domain.EmailMessage{
		Subject:        "Weekly sync notes",
		Body:           "Notes from this week's sync are in the shared folder.",
		SenderEmail:    "colleague@acme-insurance.com",
		SenderName:     "A Colleague",
		RecipientEmail: "you@acme-insurance.com",
	}

	verdict, err := service.AnalyzeMessage(context.Background(), testTenant(), msg)
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictPass, verdict.Category)
	assert.Equal(t, 0, verdict.Score)
	require.Len(t, verdict.Layers, 3)
	require.Len(t, storage.verdicts, 1)
	assert.Equal(t, verdict.ID, storage.verdicts[0].ID)
}

func TestAnalyzeMessage_CEOFraudIsBlocked(t *testing.T) {
	tenant := testTenant()
	storage := &mockStorage{vips: []domain.VIPEntry{
		{TenantID: tenant.ID, DisplayName: "John Doe", Email: "john.doe@acme-insurance.com", Role: domain.RoleExecutive},
	}}
	service := newService(storage)

	msg := domain.EmailMessage{
		Subject:     "URGENT: wire transfer needed today",
		Body:        "I need $45,000 wired before end of day. Do not discuss with anyone.",
		SenderEmail: "john.doe.ceo@gmail.com",
		SenderName:  "CEO John Doe",
	}

	verdict, err := service.AnalyzeMessage(context.Background(), tenant, msg)
	require.NoError(t, err)

	assert.Equal(t, domain.VerdictBlock, verdict.Category)
	assert.Equal(t, 100, verdict.Score)
	assert.NotEmpty(t, verdict.Signals)
}

func TestAnalyzeMessage_VIPLookupFailureDegradesGracefully(t *testing.T) {
	storage := &mockStorage{vipErr: errors.New("database unavailable")}
	service := newService(storage)

	msg := domain.EmailMessage{
		Subject:     "hello",
		Body:        "checking in",
		SenderEmail: "someone@elsewhere.example",
		SenderName:  "Someone",
	}

	verdict, err := service.AnalyzeMessage(context.Background(), testTenant(), msg)

	// analysis proceeds without VIP context
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictPass, verdict.Category)
}

func TestAnalyzeMessage_PersistenceFailureStillReturnsVerdict(t *testing.T) {
	storage := &mockStorage{verdictErr: errors.New("insert failed")}
	service := newService(storage)

	msg := domain.EmailMessage{
		Subject:     "hello",
		Body:        "checking in",
		SenderEmail: "someone@elsewhere.example",
		SenderName:  "Someone",
	}

	verdict, err := service.AnalyzeMessage(context.Background(), testTenant(), msg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store verdict")
	assert.Equal(t, domain.VerdictPass, verdict.Category)
}

func TestGetHighRiskSummary(t *testing.T) {
	stored := []domain.Verdict{{ID: uuid.New(), Category: domain.VerdictBlock, Score: 95}}
	storage := &mockStorage{highRisk: stored}
	service := newService(storage)

	verdicts, err := service.GetHighRiskSummary(context.Background(), testTenant(), 10)
	require.NoError(t, err)
	assert.Equal(t, stored, verdicts)
}
