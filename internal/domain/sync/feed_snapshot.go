package sync

import (
	"time"

	"github.com/google/uuid"
)

// FeedSnapshot records the content hash of the last successfully imported
// feed for one (tenant, vendor) pair. The hash is only advanced after an
// import completes in full, so an interrupted import leaves the previous hash
// in place and the next run re-imports the whole feed.
type FeedSnapshot struct {
	// TenantID is the owning tenant
	TenantID uuid.UUID
	// VendorCode references the vendor
	VendorCode string
	// FeedHash is the hex SHA-256 of the raw feed bytes
	FeedHash string
	// ImportedAt is when the hash was recorded
	ImportedAt time.Time
}

// NewFeedSnapshot creates a snapshot for a completed import
func NewFeedSnapshot(tenantID uuid.UUID, vendorCode, feedHash string) *FeedSnapshot {
	return &FeedSnapshot{
		TenantID:   tenantID,
		VendorCode: vendorCode,
		FeedHash:   feedHash,
		ImportedAt: time.Now(),
	}
}
