package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/catsync/backend/internal/domain/catalog"
	syncdomain "github.com/catsync/backend/internal/domain/sync"
	"github.com/catsync/backend/internal/domain/vendor"
)

// MockMappingRepository is a mock implementation of
// catalog.VendorProductMappingRepository
type MockMappingRepository struct {
	mock.Mock
}

func (m *MockMappingRepository) Save(ctx context.Context, mapping *catalog.VendorProductMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockMappingRepository) FindByNativeSKU(ctx context.Context, tenantID uuid.UUID, vendorCode, nativeSKU string) (*catalog.VendorProductMapping, error) {
	args := m.Called(ctx, tenantID, vendorCode, nativeSKU)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.VendorProductMapping), args.Error(1)
}

func (m *MockMappingRepository) FindActiveByUniversalID(ctx context.Context, universalID string) ([]catalog.VendorProductMapping, error) {
	args := m.Called(ctx, universalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.VendorProductMapping), args.Error(1)
}

func (m *MockMappingRepository) FindByTenantAndVendor(ctx context.Context, tenantID uuid.UUID, vendorCode string, activeOnly bool) ([]catalog.VendorProductMapping, error) {
	args := m.Called(ctx, tenantID, vendorCode, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.VendorProductMapping), args.Error(1)
}

func (m *MockMappingRepository) DeactivateMissing(ctx context.Context, tenantID uuid.UUID, vendorCode string, runID uuid.UUID) ([]string, error) {
	args := m.Called(ctx, tenantID, vendorCode, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockProductRepository is a mock implementation of
// catalog.MasterProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.MasterProduct) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) FindByUniversalID(ctx context.Context, universalID string) (*catalog.MasterProduct, error) {
	args := m.Called(ctx, universalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.MasterProduct), args.Error(1)
}

// MockDefinitionRepository is a mock implementation of
// vendor.DefinitionRepository
type MockDefinitionRepository struct {
	mock.Mock
}

func (m *MockDefinitionRepository) Save(ctx context.Context, def *vendor.VendorDefinition) error {
	args := m.Called(ctx, def)
	return args.Error(0)
}

func (m *MockDefinitionRepository) FindByCode(ctx context.Context, code string) (*vendor.VendorDefinition, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendor.VendorDefinition), args.Error(1)
}

func (m *MockDefinitionRepository) FindAllActive(ctx context.Context) ([]vendor.VendorDefinition, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vendor.VendorDefinition), args.Error(1)
}

// MockRunRepository is a mock implementation of sync.RunRepository
type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Create(ctx context.Context, run *syncdomain.SyncRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepository) Update(ctx context.Context, run *syncdomain.SyncRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRunRepository) TryStart(ctx context.Context, run *syncdomain.SyncRun) error {
	args := m.Called(ctx, run)
	if args.Error(0) == nil {
		_ = run.Start()
	}
	return args.Error(0)
}

func (m *MockRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.SyncRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncdomain.SyncRun), args.Error(1)
}

func (m *MockRunRepository) FindInProgress(ctx context.Context, tenantID uuid.UUID, vendorCode string) (*syncdomain.SyncRun, error) {
	args := m.Called(ctx, tenantID, vendorCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncdomain.SyncRun), args.Error(1)
}

func (m *MockRunRepository) FindStuck(ctx context.Context, cutoff time.Time) ([]syncdomain.SyncRun, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]syncdomain.SyncRun), args.Error(1)
}

func (m *MockRunRepository) ListForVendor(ctx context.Context, tenantID uuid.UUID, vendorCode string, limit int) ([]syncdomain.SyncRun, error) {
	args := m.Called(ctx, tenantID, vendorCode, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]syncdomain.SyncRun), args.Error(1)
}

// MockSnapshotRepository is a mock implementation of sync.SnapshotRepository
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Save(ctx context.Context, snapshot *syncdomain.FeedSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotRepository) Find(ctx context.Context, tenantID uuid.UUID, vendorCode string) (*syncdomain.FeedSnapshot, error) {
	args := m.Called(ctx, tenantID, vendorCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncdomain.FeedSnapshot), args.Error(1)
}

// MockCredentialSource is a mock implementation of CredentialSource
type MockCredentialSource struct {
	mock.Mock
}

func (m *MockCredentialSource) Plaintext(ctx context.Context, tenantID uuid.UUID, vendorCode string) (vendor.Credentials, error) {
	args := m.Called(ctx, tenantID, vendorCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(vendor.Credentials), args.Error(1)
}

// MockChangeDetector is a mock implementation of ChangeDetector
type MockChangeDetector struct {
	mock.Mock
}

func (m *MockChangeDetector) HasChanged(ctx context.Context, tenantID uuid.UUID, vendorCode string, data []byte) (bool, string, error) {
	args := m.Called(ctx, tenantID, vendorCode, data)
	return args.Bool(0), args.String(1), args.Error(2)
}

// MockHandler is a mock implementation of vendor.Handler
type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) Protocol() vendor.FeedProtocol {
	args := m.Called()
	return args.Get(0).(vendor.FeedProtocol)
}

func (m *MockHandler) FetchFeed(ctx context.Context, def *vendor.VendorDefinition, creds vendor.Credentials) ([]byte, error) {
	args := m.Called(ctx, def, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockHandler) TestConnection(ctx context.Context, def *vendor.VendorDefinition, creds vendor.Credentials) error {
	args := m.Called(ctx, def, creds)
	return args.Error(0)
}

func (m *MockHandler) ParseRows(def *vendor.VendorDefinition, feedData []byte) ([]vendor.FeedRow, []vendor.RowParseError, error) {
	args := m.Called(def, feedData)
	rows, _ := args.Get(0).([]vendor.FeedRow)
	parseErrs, _ := args.Get(1).([]vendor.RowParseError)
	return rows, parseErrs, args.Error(2)
}

// stubRegistry resolves every lookup to a single handler.
type stubRegistry struct {
	handler vendor.Handler
}

func (r *stubRegistry) Register(vendorCode string, h vendor.Handler) { r.handler = h }

func (r *stubRegistry) Get(vendorCode string) (vendor.Handler, error) {
	if r.handler == nil {
		return nil, vendor.ErrUnknownVendor
	}
	return r.handler, nil
}
