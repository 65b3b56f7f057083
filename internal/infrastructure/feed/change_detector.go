package feed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"

	syncdomain "github.com/catsync/backend/internal/domain/sync"
)

// ChangeDetector decides whether a fetched feed differs from the last feed
// that completed a full import for the same tenant and vendor. It never
// mutates stored state; recording a new snapshot is the importer's business
// and only happens after an import finishes without failed rows.
type ChangeDetector struct {
	snapshots syncdomain.SnapshotRepository
}

// NewChangeDetector creates a change detector backed by the given snapshot store
func NewChangeDetector(snapshots syncdomain.SnapshotRepository) *ChangeDetector {
	return &ChangeDetector{snapshots: snapshots}
}

// HashFeed computes the content hash used for change detection.
func HashFeed(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HasChanged reports whether the feed content differs from the last
// successfully imported snapshot. A tenant/vendor pair with no snapshot is
// always considered changed. The computed hash is returned either way so the
// caller can persist it after a complete import.
func (d *ChangeDetector) HasChanged(ctx context.Context, tenantID uuid.UUID, vendorCode string, data []byte) (bool, string, error) {
	hash := HashFeed(data)

	snapshot, err := d.snapshots.Find(ctx, tenantID, vendorCode)
	if err != nil {
		if errors.Is(err, syncdomain.ErrSnapshotMissing) {
			return true, hash, nil
		}
		return false, "", fmt.Errorf("feed: loading snapshot: %w", err)
	}
	return snapshot.FeedHash != hash, hash, nil
}
