package catalogquery

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/catsync/backend/internal/domain/catalog"
)

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

func TestService_Product(t *testing.T) {
	t.Run("should pair the master record with its active mappings", func(t *testing.T) {
		products := new(MockProductRepository)
		mappings := new(MockMappingRepository)
		service := NewService(products, mappings)

		product := &catalog.MasterProduct{UniversalID: "0001", Name: "Widget"}
		contributing := []catalog.VendorProductMapping{
			{UniversalID: "0001", VendorCode: "acme"},
			{UniversalID: "0001", VendorCode: "globex"},
		}
		products.On("FindByUniversalID", mock.Anything, "0001").Return(product, nil)
		mappings.On("FindActiveByUniversalID", mock.Anything, "0001").Return(contributing, nil)

		view, err := service.Product(context.Background(), "0001")

		require.NoError(t, err)
		assert.Equal(t, product, view.Product)
		assert.Len(t, view.Mappings, 2)
	})

	t.Run("should propagate unknown product", func(t *testing.T) {
		products := new(MockProductRepository)
		mappings := new(MockMappingRepository)
		service := NewService(products, mappings)

		products.On("FindByUniversalID", mock.Anything, "nope").Return(nil, catalog.ErrProductNotFound)

		_, err := service.Product(context.Background(), "nope")

		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
		mappings.AssertNotCalled(t, "FindActiveByUniversalID", mock.Anything, mock.Anything)
	})
}

func TestService_VendorMappings(t *testing.T) {
	products := new(MockProductRepository)
	mappings := new(MockMappingRepository)
	service := NewService(products, mappings)

	tenantID := uuid.New()
	rows := []catalog.VendorProductMapping{{UniversalID: "0001", VendorCode: "acme"}}
	mappings.On("FindByTenantAndVendor", mock.Anything, tenantID, "acme", true).Return(rows, nil)

	got, err := service.VendorMappings(context.Background(), tenantID, "acme", true)

	require.NoError(t, err)
	assert.Equal(t, rows, got)
}
