package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/catsync/backend/internal/domain/vendor"
)

// NormalizedRow is one vendor feed row after field mapping: native fields have
// been translated onto normalized attributes and typed. It is the unit the
// importer upserts into VendorProductMapping.
type NormalizedRow struct {
	// UniversalID is the cross-vendor product key; rows missing it are skipped
	UniversalID string
	// NativeSKU is the vendor's own item number
	NativeSKU string
	// Price is the vendor's current price
	Price decimal.Decimal
	// QuantityOnHand is the vendor's reported availability
	QuantityOnHand decimal.Decimal
	// Descriptive holds the mapped descriptive attribute values
	Descriptive map[string]string
	// RowHash is the content hash of the source feed row
	RowHash string
	// Line is the source row position, carried for error attribution
	Line int
}

// VendorProductMapping links one vendor's native SKU to a universal product
// identifier for one tenant, together with the vendor's price and availability
// snapshot. Mappings are superseded in place on each import cycle; rows absent
// from the latest feed are flagged inactive, never deleted.
type VendorProductMapping struct {
	// ID is the unique identifier of the mapping
	ID uuid.UUID
	// TenantID is the owning tenant
	TenantID uuid.UUID
	// VendorCode references the contributing vendor
	VendorCode string
	// UniversalID is the cross-vendor product key
	UniversalID string
	// NativeSKU is the vendor's own item number
	NativeSKU string
	// Price is the vendor's price snapshot
	Price decimal.Decimal
	// QuantityOnHand is the vendor's availability snapshot
	QuantityOnHand decimal.Decimal
	// Descriptive holds the vendor's descriptive attribute values
	Descriptive map[string]string
	// RowHash is the hash of the feed row this mapping was derived from
	RowHash string
	// LastSeenRunID is the sync run that last confirmed this mapping
	LastSeenRunID uuid.UUID
	// IsActive is false when the row vanished from the latest feed
	IsActive bool
	// CreatedAt is when the mapping was first created
	CreatedAt time.Time
	// UpdatedAt is when the mapping was last superseded
	UpdatedAt time.Time
}

// NewVendorProductMapping creates a mapping from a normalized row
func NewVendorProductMapping(tenantID uuid.UUID, vendorCode string, row NormalizedRow, runID uuid.UUID) (*VendorProductMapping, error) {
	if tenantID == uuid.Nil || vendorCode == "" {
		return nil, ErrInvalidMappingOwner
	}
	if row.UniversalID == "" {
		return nil, ErrInvalidUniversalID
	}
	if row.NativeSKU == "" {
		return nil, ErrInvalidMappingSKU
	}

	now := time.Now()
	m := &VendorProductMapping{
		ID:            uuid.New(),
		TenantID:      tenantID,
		VendorCode:    vendorCode,
		UniversalID:   row.UniversalID,
		NativeSKU:     row.NativeSKU,
		Price:         row.Price,
		QuantityOnHand: row.QuantityOnHand,
		Descriptive:   cloneDescriptive(row.Descriptive),
		RowHash:       row.RowHash,
		LastSeenRunID: runID,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return m, nil
}

// Supersede applies a fresh feed row to an existing mapping. It returns true
// when the row content actually changed; an unchanged row only refreshes
// LastSeenRunID, keeping re-imports idempotent.
func (m *VendorProductMapping) Supersede(row NormalizedRow, runID uuid.UUID) bool {
	m.LastSeenRunID = runID
	if !m.IsActive {
		// Row reappeared after an absence.
		m.IsActive = true
		m.applyRow(row)
		return true
	}
	if m.RowHash == row.RowHash && row.RowHash != "" {
		return false
	}
	m.applyRow(row)
	return true
}

func (m *VendorProductMapping) applyRow(row NormalizedRow) {
	m.UniversalID = row.UniversalID
	m.Price = row.Price
	m.QuantityOnHand = row.QuantityOnHand
	m.Descriptive = cloneDescriptive(row.Descriptive)
	m.RowHash = row.RowHash
	m.UpdatedAt = time.Now()
}

// DescriptiveValue returns the vendor's value for a descriptive attribute.
func (m *VendorProductMapping) DescriptiveValue(attr string) string {
	if m.Descriptive == nil {
		return ""
	}
	return m.Descriptive[attr]
}

// Deactivate flags the mapping stale after it vanished from the latest feed
func (m *VendorProductMapping) Deactivate() {
	m.IsActive = false
	m.UpdatedAt = time.Now()
}

func cloneDescriptive(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		if k == vendor.AttrUniversalID || k == vendor.AttrNativeSKU {
			continue
		}
		out[k] = v
	}
	return out
}
