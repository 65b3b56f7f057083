package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/catsync/backend/internal/domain/catalog"
	"github.com/catsync/backend/internal/infrastructure/persistence/models"
)

// GormMasterProductRepository implements catalog.MasterProductRepository using GORM
type GormMasterProductRepository struct {
	db *gorm.DB
}

// NewGormMasterProductRepository creates a new GormMasterProductRepository
func NewGormMasterProductRepository(db *gorm.DB) *GormMasterProductRepository {
	return &GormMasterProductRepository{db: db}
}

// Save creates or updates a master product snapshot
func (r *GormMasterProductRepository) Save(ctx context.Context, product *catalog.MasterProduct) error {
	model := models.MasterProductModelFromDomain(product)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByUniversalID finds a product by its universal identifier
func (r *GormMasterProductRepository) FindByUniversalID(ctx context.Context, universalID string) (*catalog.MasterProduct, error) {
	var model models.MasterProductModel
	if err := r.db.WithContext(ctx).First(&model, "universal_id = ?", universalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
