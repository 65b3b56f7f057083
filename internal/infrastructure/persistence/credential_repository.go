package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/catsync/backend/internal/domain/vendor"
	"github.com/catsync/backend/internal/infrastructure/persistence/models"
)

// GormCredentialRepository implements vendor.CredentialRepository using GORM
type GormCredentialRepository struct {
	db *gorm.DB
}

// NewGormCredentialRepository creates a new GormCredentialRepository
func NewGormCredentialRepository(db *gorm.DB) *GormCredentialRepository {
	return &GormCredentialRepository{db: db}
}

// Save creates or updates a credential record
func (r *GormCredentialRepository) Save(ctx context.Context, cred *vendor.TenantVendorCredential) error {
	model := models.TenantVendorCredentialModelFromDomain(cred)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByTenantAndVendor finds the credential for a (tenant, vendor) pair
func (r *GormCredentialRepository) FindByTenantAndVendor(ctx context.Context, tenantID uuid.UUID, vendorCode string) (*vendor.TenantVendorCredential, error) {
	var model models.TenantVendorCredentialModel
	if err := r.db.WithContext(ctx).
		First(&model, "tenant_id = ? AND vendor_code = ?", tenantID, vendorCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, vendor.ErrCredentialNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllUsable returns every non-invalidated credential record across
// tenants, in stable order
func (r *GormCredentialRepository) FindAllUsable(ctx context.Context) ([]vendor.TenantVendorCredential, error) {
	var credModels []models.TenantVendorCredentialModel
	if err := r.db.WithContext(ctx).
		Where("invalidated = ?", false).
		Order("tenant_id ASC, vendor_code ASC").
		Find(&credModels).Error; err != nil {
		return nil, err
	}

	creds := make([]vendor.TenantVendorCredential, len(credModels))
	for i, model := range credModels {
		creds[i] = *model.ToDomain()
	}
	return creds, nil
}

// FindAllForTenant returns all credential records for a tenant
func (r *GormCredentialRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]vendor.TenantVendorCredential, error) {
	var credModels []models.TenantVendorCredentialModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("vendor_code ASC").
		Find(&credModels).Error; err != nil {
		return nil, err
	}

	creds := make([]vendor.TenantVendorCredential, len(credModels))
	for i, model := range credModels {
		creds[i] = *model.ToDomain()
	}
	return creds, nil
}
