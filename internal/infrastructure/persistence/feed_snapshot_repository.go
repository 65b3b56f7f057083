package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	syncdomain "github.com/catsync/backend/internal/domain/sync"
	"github.com/catsync/backend/internal/infrastructure/persistence/models"
)

// GormFeedSnapshotRepository implements sync.SnapshotRepository using GORM
type GormFeedSnapshotRepository struct {
	db *gorm.DB
}

// NewGormFeedSnapshotRepository creates a new GormFeedSnapshotRepository
func NewGormFeedSnapshotRepository(db *gorm.DB) *GormFeedSnapshotRepository {
	return &GormFeedSnapshotRepository{db: db}
}

// Save upserts the snapshot for a (tenant, vendor) pair
func (r *GormFeedSnapshotRepository) Save(ctx context.Context, snapshot *syncdomain.FeedSnapshot) error {
	model := &models.FeedSnapshotModel{}
	model.FromDomain(snapshot)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "vendor_code"}},
			DoUpdates: clause.AssignmentColumns([]string{"feed_hash", "imported_at"}),
		}).
		Create(model).Error
}

// Find returns the snapshot for a pair, or ErrSnapshotMissing
func (r *GormFeedSnapshotRepository) Find(ctx context.Context, tenantID uuid.UUID, vendorCode string) (*syncdomain.FeedSnapshot, error) {
	var model models.FeedSnapshotModel
	if err := r.db.WithContext(ctx).
		First(&model, "tenant_id = ? AND vendor_code = ?", tenantID, vendorCode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncdomain.ErrSnapshotMissing
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
