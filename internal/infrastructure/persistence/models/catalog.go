package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/catsync/backend/internal/domain/catalog"
)

// MasterProductModel is the persistence model for the MasterProduct domain
// entity. Field provenance is stored as a JSON document keyed by attribute.
type MasterProductModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	UniversalID    string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_master_product_universal_id"`
	Name           string    `gorm:"type:varchar(255)"`
	Brand          string    `gorm:"type:varchar(255)"`
	Model          string    `gorm:"type:varchar(255)"`
	Category       string    `gorm:"type:varchar(255)"`
	ImageURL       string    `gorm:"type:varchar(500)"`
	Description    string    `gorm:"type:text"`
	ProvenanceJSON string    `gorm:"type:jsonb;column:provenance"`
	IsActive       bool      `gorm:"not null;index"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MasterProductModel) TableName() string {
	return "master_products"
}

// ToDomain converts the persistence model to a domain MasterProduct entity.
func (m *MasterProductModel) ToDomain() *catalog.MasterProduct {
	product := &catalog.MasterProduct{
		ID:          m.ID,
		UniversalID: m.UniversalID,
		Name:        m.Name,
		Brand:       m.Brand,
		Model:       m.Model,
		Category:    m.Category,
		ImageURL:    m.ImageURL,
		Description: m.Description,
		Provenance:  make(map[string]catalog.FieldProvenance),
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.ProvenanceJSON != "" {
		var provenance map[string]catalog.FieldProvenance
		if err := json.Unmarshal([]byte(m.ProvenanceJSON), &provenance); err == nil {
			product.Provenance = provenance
		}
	}
	return product
}

// FromDomain populates the persistence model from a domain MasterProduct.
func (m *MasterProductModel) FromDomain(p *catalog.MasterProduct) {
	m.ID = p.ID
	m.UniversalID = p.UniversalID
	m.Name = p.Name
	m.Brand = p.Brand
	m.Model = p.Model
	m.Category = p.Category
	m.ImageURL = p.ImageURL
	m.Description = p.Description
	m.IsActive = p.IsActive
	m.CreatedAt = p.CreatedAt
	m.UpdatedAt = p.UpdatedAt

	if len(p.Provenance) > 0 {
		if jsonBytes, err := json.Marshal(p.Provenance); err == nil {
			m.ProvenanceJSON = string(jsonBytes)
		}
	} else {
		m.ProvenanceJSON = "{}"
	}
}

// MasterProductModelFromDomain creates a new persistence model from a domain
// MasterProduct entity.
func MasterProductModelFromDomain(p *catalog.MasterProduct) *MasterProductModel {
	m := &MasterProductModel{}
	m.FromDomain(p)
	return m
}

// VendorProductMappingModel is the persistence model for the
// VendorProductMapping domain entity.
type VendorProductMappingModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_mapping_tenant_vendor_sku,priority:1"`
	VendorCode      string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_mapping_tenant_vendor_sku,priority:2"`
	UniversalID     string          `gorm:"type:varchar(50);not null;index:idx_mapping_universal_id"`
	NativeSKU       string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_mapping_tenant_vendor_sku,priority:3"`
	Price           decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	QuantityOnHand  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DescriptiveJSON string          `gorm:"type:jsonb;column:descriptive"`
	RowHash         string          `gorm:"type:varchar(64);not null"`
	LastSeenRunID   uuid.UUID       `gorm:"type:uuid;index"`
	IsActive        bool            `gorm:"not null;index"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VendorProductMappingModel) TableName() string {
	return "vendor_product_mappings"
}

// ToDomain converts the persistence model to a domain VendorProductMapping.
func (m *VendorProductMappingModel) ToDomain() *catalog.VendorProductMapping {
	mapping := &catalog.VendorProductMapping{
		ID:             m.ID,
		TenantID:       m.TenantID,
		VendorCode:     m.VendorCode,
		UniversalID:    m.UniversalID,
		NativeSKU:      m.NativeSKU,
		Price:          m.Price,
		QuantityOnHand: m.QuantityOnHand,
		Descriptive:    make(map[string]string),
		RowHash:        m.RowHash,
		LastSeenRunID:  m.LastSeenRunID,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if m.DescriptiveJSON != "" {
		var descriptive map[string]string
		if err := json.Unmarshal([]byte(m.DescriptiveJSON), &descriptive); err == nil {
			mapping.Descriptive = descriptive
		}
	}
	return mapping
}

// FromDomain populates the persistence model from a domain entity.
func (m *VendorProductMappingModel) FromDomain(mapping *catalog.VendorProductMapping) {
	m.ID = mapping.ID
	m.TenantID = mapping.TenantID
	m.VendorCode = mapping.VendorCode
	m.UniversalID = mapping.UniversalID
	m.NativeSKU = mapping.NativeSKU
	m.Price = mapping.Price
	m.QuantityOnHand = mapping.QuantityOnHand
	m.RowHash = mapping.RowHash
	m.LastSeenRunID = mapping.LastSeenRunID
	m.IsActive = mapping.IsActive
	m.CreatedAt = mapping.CreatedAt
	m.UpdatedAt = mapping.UpdatedAt

	if len(mapping.Descriptive) > 0 {
		if jsonBytes, err := json.Marshal(mapping.Descriptive); err == nil {
			m.DescriptiveJSON = string(jsonBytes)
		}
	} else {
		m.DescriptiveJSON = "{}"
	}
}

// VendorProductMappingModelFromDomain creates a new persistence model from a
// domain VendorProductMapping entity.
func VendorProductMappingModelFromDomain(mapping *catalog.VendorProductMapping) *VendorProductMappingModel {
	m := &VendorProductMappingModel{}
	m.FromDomain(mapping)
	return m
}
