package models

import (
	"time"

	"github.com/google/uuid"

	syncdomain "github.com/catsync/backend/internal/domain/sync"
)

// SyncRunModel is the persistence model for the SyncRun domain entity. The
// partial unique index on (tenant_id, vendor_code) where status is
// in_progress backs the repository's atomic start on PostgreSQL; the
// conditional UPDATE works on any backend.
type SyncRunModel struct {
	ID           uuid.UUID             `gorm:"type:uuid;primary_key"`
	TenantID     uuid.UUID             `gorm:"type:uuid;not null;index:idx_sync_run_tenant_vendor,priority:1"`
	VendorCode   string                `gorm:"type:varchar(50);not null;index:idx_sync_run_tenant_vendor,priority:2"`
	Mode         syncdomain.TriggerMode `gorm:"type:varchar(20);not null"`
	Status       syncdomain.RunStatus   `gorm:"type:varchar(20);not null;index"`
	Seen         int                   `gorm:"not null;default:0"`
	Created      int                   `gorm:"not null;default:0"`
	Updated      int                   `gorm:"not null;default:0"`
	Skipped      int                   `gorm:"not null;default:0"`
	Failed       int                   `gorm:"not null;default:0"`
	ErrorMessage string                `gorm:"type:text"`
	StartedAt    *time.Time            `gorm:"index"`
	FinishedAt   *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncRunModel) TableName() string {
	return "sync_runs"
}

// ToDomain converts the persistence model to a domain SyncRun entity.
func (m *SyncRunModel) ToDomain() *syncdomain.SyncRun {
	return &syncdomain.SyncRun{
		ID:         m.ID,
		TenantID:   m.TenantID,
		VendorCode: m.VendorCode,
		Mode:       m.Mode,
		Status:     m.Status,
		Counts: syncdomain.RunCounts{
			Seen:    m.Seen,
			Created: m.Created,
			Updated: m.Updated,
			Skipped: m.Skipped,
			Failed:  m.Failed,
		},
		ErrorMessage: m.ErrorMessage,
		StartedAt:    m.StartedAt,
		FinishedAt:   m.FinishedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SyncRun entity.
func (m *SyncRunModel) FromDomain(r *syncdomain.SyncRun) {
	m.ID = r.ID
	m.TenantID = r.TenantID
	m.VendorCode = r.VendorCode
	m.Mode = r.Mode
	m.Status = r.Status
	m.Seen = r.Counts.Seen
	m.Created = r.Counts.Created
	m.Updated = r.Counts.Updated
	m.Skipped = r.Counts.Skipped
	m.Failed = r.Counts.Failed
	m.ErrorMessage = r.ErrorMessage
	m.StartedAt = r.StartedAt
	m.FinishedAt = r.FinishedAt
	m.CreatedAt = r.CreatedAt
	m.UpdatedAt = r.UpdatedAt
}

// SyncRunModelFromDomain creates a new persistence model from a domain
// SyncRun entity.
func SyncRunModelFromDomain(r *syncdomain.SyncRun) *SyncRunModel {
	m := &SyncRunModel{}
	m.FromDomain(r)
	return m
}

// FeedSnapshotModel is the persistence model for the FeedSnapshot value. One
// row per (tenant, vendor) pair, upserted after each complete import.
type FeedSnapshotModel struct {
	TenantID   uuid.UUID `gorm:"type:uuid;primary_key"`
	VendorCode string    `gorm:"type:varchar(50);primary_key"`
	FeedHash   string    `gorm:"type:varchar(64);not null"`
	ImportedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FeedSnapshotModel) TableName() string {
	return "feed_snapshots"
}

// ToDomain converts the persistence model to a domain FeedSnapshot.
func (m *FeedSnapshotModel) ToDomain() *syncdomain.FeedSnapshot {
	return &syncdomain.FeedSnapshot{
		TenantID:   m.TenantID,
		VendorCode: m.VendorCode,
		FeedHash:   m.FeedHash,
		ImportedAt: m.ImportedAt,
	}
}

// FromDomain populates the persistence model from a domain FeedSnapshot.
func (m *FeedSnapshotModel) FromDomain(s *syncdomain.FeedSnapshot) {
	m.TenantID = s.TenantID
	m.VendorCode = s.VendorCode
	m.FeedHash = s.FeedHash
	m.ImportedAt = s.ImportedAt
}
