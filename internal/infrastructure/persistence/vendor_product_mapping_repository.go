package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catsync/backend/internal/domain/catalog"
	"github.com/catsync/backend/internal/infrastructure/persistence/models"
)

// GormVendorProductMappingRepository implements catalog.VendorProductMappingRepository using GORM
type GormVendorProductMappingRepository struct {
	db *gorm.DB
}

// NewGormVendorProductMappingRepository creates a new GormVendorProductMappingRepository
func NewGormVendorProductMappingRepository(db *gorm.DB) *GormVendorProductMappingRepository {
	return &GormVendorProductMappingRepository{db: db}
}

// Save creates or updates a single mapping
func (r *GormVendorProductMappingRepository) Save(ctx context.Context, mapping *catalog.VendorProductMapping) error {
	model := models.VendorProductMappingModelFromDomain(mapping)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByNativeSKU finds the mapping for a vendor's own item number
func (r *GormVendorProductMappingRepository) FindByNativeSKU(ctx context.Context, tenantID uuid.UUID, vendorCode, nativeSKU string) (*catalog.VendorProductMapping, error) {
	var model models.VendorProductMappingModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND vendor_code = ? AND native_sku = ?", tenantID, vendorCode, nativeSKU).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByUniversalID returns every active mapping contributing to a
// universal identifier, across tenants
func (r *GormVendorProductMappingRepository) FindActiveByUniversalID(ctx context.Context, universalID string) ([]catalog.VendorProductMapping, error) {
	var mappingModels []models.VendorProductMappingModel
	if err := r.db.WithContext(ctx).
		Where("universal_id = ? AND is_active = ?", universalID, true).
		Order("vendor_code ASC").
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}
	return toDomainMappings(mappingModels), nil
}

// FindByTenantAndVendor returns all mappings for a (tenant, vendor) pair
func (r *GormVendorProductMappingRepository) FindByTenantAndVendor(ctx context.Context, tenantID uuid.UUID, vendorCode string, activeOnly bool) ([]catalog.VendorProductMapping, error) {
	query := r.db.WithContext(ctx).
		Where("tenant_id = ? AND vendor_code = ?", tenantID, vendorCode)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var mappingModels []models.VendorProductMappingModel
	if err := query.Order("native_sku ASC").Find(&mappingModels).Error; err != nil {
		return nil, err
	}
	return toDomainMappings(mappingModels), nil
}

// DeactivateMissing flags inactive every mapping for the pair whose
// LastSeenRunID differs from runID, returning the affected universal
// identifiers so their master records can be recomputed.
func (r *GormVendorProductMappingRepository) DeactivateMissing(ctx context.Context, tenantID uuid.UUID, vendorCode string, runID uuid.UUID) ([]string, error) {
	var affected []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.VendorProductMappingModel{}).
			Where("tenant_id = ? AND vendor_code = ? AND is_active = ? AND last_seen_run_id <> ?",
				tenantID, vendorCode, true, runID).
			Distinct().
			Pluck("universal_id", &affected).Error; err != nil {
			return err
		}
		if len(affected) == 0 {
			return nil
		}
		return tx.Model(&models.VendorProductMappingModel{}).
			Where("tenant_id = ? AND vendor_code = ? AND is_active = ? AND last_seen_run_id <> ?",
				tenantID, vendorCode, true, runID).
			Updates(map[string]any{
				"is_active":  false,
				"updated_at": time.Now(),
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return affected, nil
}

func toDomainMappings(mappingModels []models.VendorProductMappingModel) []catalog.VendorProductMapping {
	mappings := make([]catalog.VendorProductMapping, len(mappingModels))
	for i, model := range mappingModels {
		mappings[i] = *model.ToDomain()
	}
	return mappings
}
