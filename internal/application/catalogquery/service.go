// Package catalogquery serves read-side catalog lookups: merged master
// products and the per-vendor mappings backing them.
package catalogquery

import (
	"context"

	"github.com/google/uuid"

	"github.com/catsync/backend/internal/domain/catalog"
)

// ProductView pairs a master product with the mappings it was merged from.
type ProductView struct {
	Product  *catalog.MasterProduct
	Mappings []catalog.VendorProductMapping
}

// Service answers catalog read queries.
type Service struct {
	products catalog.MasterProductRepository
	mappings catalog.VendorProductMappingRepository
}

// NewService creates a new Service
func NewService(products catalog.MasterProductRepository, mappings catalog.VendorProductMappingRepository) *Service {
	return &Service{products: products, mappings: mappings}
}

// Product returns the merged master record for a universal identifier along
// with its active contributing mappings.
func (s *Service) Product(ctx context.Context, universalID string) (*ProductView, error) {
	product, err := s.products.FindByUniversalID(ctx, universalID)
	if err != nil {
		return nil, err
	}
	mappings, err := s.mappings.FindActiveByUniversalID(ctx, universalID)
	if err != nil {
		return nil, err
	}
	return &ProductView{Product: product, Mappings: mappings}, nil
}

// VendorMappings returns a tenant's mappings for one vendor.
func (s *Service) VendorMappings(ctx context.Context, tenantID uuid.UUID, vendorCode string, activeOnly bool) ([]catalog.VendorProductMapping, error) {
	return s.mappings.FindByTenantAndVendor(ctx, tenantID, vendorCode, activeOnly)
}
