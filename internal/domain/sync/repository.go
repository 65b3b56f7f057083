package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunRepository persists sync run audit records.
type RunRepository interface {
	// Create inserts a new run record
	Create(ctx context.Context, run *SyncRun) error

	// Update persists state transitions on an existing run
	Update(ctx context.Context, run *SyncRun) error

	// TryStart atomically transitions the run into in_progress, failing with
	// ErrRunConflict when another run for the same (tenant, vendor) pair is
	// already in_progress. The check and the transition are one conditional
	// statement at the storage layer, not a read-then-write.
	TryStart(ctx context.Context, run *SyncRun) error

	// FindByID finds a run by its identifier
	FindByID(ctx context.Context, id uuid.UUID) (*SyncRun, error)

	// FindInProgress returns the in_progress run for a pair, if any
	FindInProgress(ctx context.Context, tenantID uuid.UUID, vendorCode string) (*SyncRun, error)

	// FindStuck returns every in_progress run started before the cutoff,
	// for watchdog recovery
	FindStuck(ctx context.Context, cutoff time.Time) ([]SyncRun, error)

	// ListForVendor returns run history for reporting, newest first
	ListForVendor(ctx context.Context, tenantID uuid.UUID, vendorCode string, limit int) ([]SyncRun, error)
}

// SnapshotRepository persists last-successful-feed hashes.
type SnapshotRepository interface {
	// Save upserts the snapshot for a (tenant, vendor) pair
	Save(ctx context.Context, snapshot *FeedSnapshot) error

	// Find returns the snapshot for a pair, or ErrSnapshotMissing when no
	// import has ever succeeded
	Find(ctx context.Context, tenantID uuid.UUID, vendorCode string) (*FeedSnapshot, error)
}
