package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/catsync/backend/internal/domain/vendor"
	"github.com/catsync/backend/internal/infrastructure/persistence/models"
)

// GormVendorDefinitionRepository implements vendor.DefinitionRepository using GORM
type GormVendorDefinitionRepository struct {
	db *gorm.DB
}

// NewGormVendorDefinitionRepository creates a new GormVendorDefinitionRepository
func NewGormVendorDefinitionRepository(db *gorm.DB) *GormVendorDefinitionRepository {
	return &GormVendorDefinitionRepository{db: db}
}

// Save creates or updates a vendor definition
func (r *GormVendorDefinitionRepository) Save(ctx context.Context, def *vendor.VendorDefinition) error {
	model := models.VendorDefinitionModelFromDomain(def)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByCode finds a definition by its business key
func (r *GormVendorDefinitionRepository) FindByCode(ctx context.Context, code string) (*vendor.VendorDefinition, error) {
	var model models.VendorDefinitionModel
	if err := r.db.WithContext(ctx).First(&model, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, vendor.ErrVendorNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllActive returns all active definitions ordered by priority rank
func (r *GormVendorDefinitionRepository) FindAllActive(ctx context.Context) ([]vendor.VendorDefinition, error) {
	var defModels []models.VendorDefinitionModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("priority_rank ASC").
		Find(&defModels).Error; err != nil {
		return nil, err
	}

	defs := make([]vendor.VendorDefinition, len(defModels))
	for i, model := range defModels {
		defs[i] = *model.ToDomain()
	}
	return defs, nil
}
