package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	syncdomain "github.com/catsync/backend/internal/domain/sync"
	"github.com/catsync/backend/internal/infrastructure/persistence/models"
)

// GormSyncRunRepository implements sync.RunRepository using GORM
type GormSyncRunRepository struct {
	db *gorm.DB
}

// NewGormSyncRunRepository creates a new GormSyncRunRepository
func NewGormSyncRunRepository(db *gorm.DB) *GormSyncRunRepository {
	return &GormSyncRunRepository{db: db}
}

// Create inserts a new run record
func (r *GormSyncRunRepository) Create(ctx context.Context, run *syncdomain.SyncRun) error {
	model := models.SyncRunModelFromDomain(run)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update persists state transitions on an existing run
func (r *GormSyncRunRepository) Update(ctx context.Context, run *syncdomain.SyncRun) error {
	model := models.SyncRunModelFromDomain(run)
	return r.db.WithContext(ctx).Save(model).Error
}

// TryStart atomically transitions the run into in_progress. The UPDATE's
// WHERE clause excludes the transition whenever any other run for the same
// (tenant, vendor) pair is already in_progress, so the existence check and
// the state change are one statement and two concurrent triggers cannot both
// win.
func (r *GormSyncRunRepository) TryStart(ctx context.Context, run *syncdomain.SyncRun) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.SyncRunModel{}).
		Where("id = ? AND status = ?", run.ID, syncdomain.RunStatusIdle).
		Where("NOT EXISTS (SELECT 1 FROM sync_runs r2 WHERE r2.tenant_id = ? AND r2.vendor_code = ? AND r2.status = ?)",
			run.TenantID, run.VendorCode, syncdomain.RunStatusInProgress).
		Updates(map[string]any{
			"status":     syncdomain.RunStatusInProgress,
			"started_at": now,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return syncdomain.ErrRunConflict
	}

	run.Status = syncdomain.RunStatusInProgress
	run.StartedAt = &now
	run.UpdatedAt = now
	return nil
}

// FindByID finds a run by its identifier
func (r *GormSyncRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.SyncRun, error) {
	var model models.SyncRunModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncdomain.ErrRunNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindInProgress returns the in_progress run for a pair, if any
func (r *GormSyncRunRepository) FindInProgress(ctx context.Context, tenantID uuid.UUID, vendorCode string) (*syncdomain.SyncRun, error) {
	var model models.SyncRunModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND vendor_code = ? AND status = ?", tenantID, vendorCode, syncdomain.RunStatusInProgress).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncdomain.ErrRunNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindStuck returns every in_progress run started before the cutoff
func (r *GormSyncRunRepository) FindStuck(ctx context.Context, cutoff time.Time) ([]syncdomain.SyncRun, error) {
	var runModels []models.SyncRunModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", syncdomain.RunStatusInProgress, cutoff).
		Find(&runModels).Error; err != nil {
		return nil, err
	}
	return toDomainRuns(runModels), nil
}

// ListForVendor returns run history for reporting, newest first
func (r *GormSyncRunRepository) ListForVendor(ctx context.Context, tenantID uuid.UUID, vendorCode string, limit int) ([]syncdomain.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runModels []models.SyncRunModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND vendor_code = ?", tenantID, vendorCode).
		Order("created_at DESC").
		Limit(limit).
		Find(&runModels).Error; err != nil {
		return nil, err
	}
	return toDomainRuns(runModels), nil
}

func toDomainRuns(runModels []models.SyncRunModel) []syncdomain.SyncRun {
	runs := make([]syncdomain.SyncRun, len(runModels))
	for i, model := range runModels {
		runs[i] = *model.ToDomain()
	}
	return runs
}
