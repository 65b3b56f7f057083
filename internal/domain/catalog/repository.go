package catalog

import (
	"context"

	"github.com/google/uuid"
)

// MasterProductRepository persists platform-global master products.
type MasterProductRepository interface {
	// Save creates or updates a master product snapshot. The final write for
	// a given record is serialized at the storage layer; the merge engine's
	// idempotence makes last-committed-wins safe.
	Save(ctx context.Context, product *MasterProduct) error

	// FindByUniversalID finds a product by its universal identifier.
	// Returns ErrProductNotFound when the product has never been sighted.
	FindByUniversalID(ctx context.Context, universalID string) (*MasterProduct, error)
}

// VendorProductMappingRepository persists vendor-product mappings.
type VendorProductMappingRepository interface {
	// Save creates or updates a single mapping
	Save(ctx context.Context, mapping *VendorProductMapping) error

	// FindByNativeSKU finds the mapping for a vendor's own item number
	FindByNativeSKU(ctx context.Context, tenantID uuid.UUID, vendorCode, nativeSKU string) (*VendorProductMapping, error)

	// FindActiveByUniversalID returns every active mapping contributing to a
	// universal identifier, across tenants, for merge recomputation
	FindActiveByUniversalID(ctx context.Context, universalID string) ([]VendorProductMapping, error)

	// FindByTenantAndVendor returns all mappings for a (tenant, vendor) pair
	FindByTenantAndVendor(ctx context.Context, tenantID uuid.UUID, vendorCode string, activeOnly bool) ([]VendorProductMapping, error)

	// DeactivateMissing flags inactive every mapping for the pair whose
	// LastSeenRunID differs from runID, returning the affected universal
	// identifiers so their master records can be recomputed
	DeactivateMissing(ctx context.Context, tenantID uuid.UUID, vendorCode string, runID uuid.UUID) ([]string, error)
}
