package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	syncdomain "github.com/catsync/backend/internal/domain/sync"
	"github.com/catsync/backend/internal/domain/vendor"
)

// stubRunner records the pairs it was asked to run.
type stubRunner struct {
	mu        sync.Mutex
	runs      []string
	runErr    error
	recovered int
}

func (r *stubRunner) Run(ctx context.Context, tenantID uuid.UUID, vendorCode string, mode syncdomain.TriggerMode) (*syncdomain.SyncRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, vendorCode)
	if r.runErr != nil {
		return nil, r.runErr
	}
	run, err := syncdomain.NewSyncRun(tenantID, vendorCode, mode)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (r *stubRunner) RecoverStuckRuns(ctx context.Context) (int, error) {
	return r.recovered, nil
}

func (r *stubRunner) ranVendors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.runs...)
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

// MockCredentialRepository is a mock implementation of
// vendor.CredentialRepository
type MockCredentialRepository struct {
	mock.Mock
}

func (m *MockCredentialRepository) Save(ctx context.Context, cred *vendor.TenantVendorCredential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

func (m *MockCredentialRepository) FindByTenantAndVendor(ctx context.Context, tenantID uuid.UUID, vendorCode string) (*vendor.TenantVendorCredential, error) {
	args := m.Called(ctx, tenantID, vendorCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendor.TenantVendorCredential), args.Error(1)
}

func (m *MockCredentialRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]vendor.TenantVendorCredential, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vendor.TenantVendorCredential), args.Error(1)
}

func (m *MockCredentialRepository) FindAllUsable(ctx context.Context) ([]vendor.TenantVendorCredential, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vendor.TenantVendorCredential), args.Error(1)
}

func activeDefinition(t *testing.T, code string) vendor.VendorDefinition {
	t.Helper()
	def, err := vendor.NewVendorDefinition(code, code, vendor.FeedProtocolREST, vendor.FeedFormatCSV, 1)
	require.NoError(t, err)
	return *def
}

func TestSyncScheduler_Sweep(t *testing.T) {
	t.Run("should trigger a sync for every usable pair with an active vendor", func(t *testing.T) {
		defs := new(MockDefinitionRepository)
		creds := new(MockCredentialRepository)
		runner := &stubRunner{}
		scheduler := NewSyncScheduler(DefaultConfig(), runner, defs, creds, zap.NewNop())

		defs.On("FindAllActive", mock.Anything).Return([]vendor.VendorDefinition{
			activeDefinition(t, "acme"),
			activeDefinition(t, "globex"),
		}, nil)
		creds.On("FindAllUsable", mock.Anything).Return([]vendor.TenantVendorCredential{
			*vendor.NewTenantVendorCredential(uuid.New(), "acme", []byte("blob")),
			*vendor.NewTenantVendorCredential(uuid.New(), "globex", []byte("blob")),
			*vendor.NewTenantVendorCredential(uuid.New(), "retired", []byte("blob")),
		}, nil)

		scheduler.Sweep(context.Background())

		ran := runner.ranVendors()
		assert.Len(t, ran, 2)
		assert.ElementsMatch(t, []string{"acme", "globex"}, ran)
	})

	t.Run("should keep sweeping when individual runs fail", func(t *testing.T) {
		defs := new(MockDefinitionRepository)
		creds := new(MockCredentialRepository)
		runner := &stubRunner{runErr: syncdomain.ErrRunConflict}
		scheduler := NewSyncScheduler(DefaultConfig(), runner, defs, creds, zap.NewNop())

		defs.On("FindAllActive", mock.Anything).Return([]vendor.VendorDefinition{
			activeDefinition(t, "acme"),
		}, nil)
		creds.On("FindAllUsable", mock.Anything).Return([]vendor.TenantVendorCredential{
			*vendor.NewTenantVendorCredential(uuid.New(), "acme", []byte("blob")),
			*vendor.NewTenantVendorCredential(uuid.New(), "acme", []byte("blob")),
		}, nil)

		scheduler.Sweep(context.Background())

		assert.Len(t, runner.ranVendors(), 2)
	})

	t.Run("should do nothing when planning fails", func(t *testing.T) {
		defs := new(MockDefinitionRepository)
		creds := new(MockCredentialRepository)
		runner := &stubRunner{}
		scheduler := NewSyncScheduler(DefaultConfig(), runner, defs, creds, zap.NewNop())

		defs.On("FindAllActive", mock.Anything).Return(nil, assert.AnError)

		scheduler.Sweep(context.Background())

		assert.Empty(t, runner.ranVendors())
	})
}

func TestSyncScheduler_Lifecycle(t *testing.T) {
	t.Run("should start and stop cleanly", func(t *testing.T) {
		defs := new(MockDefinitionRepository)
		creds := new(MockCredentialRepository)
		runner := &stubRunner{}
		scheduler := NewSyncScheduler(Config{Interval: time.Hour, MaxConcurrentRuns: 1}, runner, defs, creds, zap.NewNop())

		require.NoError(t, scheduler.Start(context.Background()))
		// Starting twice is a no-op.
		require.NoError(t, scheduler.Start(context.Background()))

		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, scheduler.Stop(stopCtx))
		require.NoError(t, scheduler.Stop(stopCtx))
	})
}
