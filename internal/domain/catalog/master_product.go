package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/catsync/backend/internal/domain/vendor"
)

var (
	ErrInvalidUniversalID  = errors.New("catalog: universal product identifier must not be empty")
	ErrProductNotFound     = errors.New("catalog: master product not found")
	ErrMappingNotFound     = errors.New("catalog: vendor product mapping not found")
	ErrInvalidMappingSKU   = errors.New("catalog: native SKU must not be empty")
	ErrInvalidMappingOwner = errors.New("catalog: mapping requires tenant and vendor")
)

// DescriptiveAttributes lists the master-record fields subject to
// priority merging, in canonical order.
var DescriptiveAttributes = []string{
	vendor.AttrName,
	vendor.AttrBrand,
	vendor.AttrModel,
	vendor.AttrCategory,
	vendor.AttrImageURL,
	vendor.AttrDescription,
}

// FieldProvenance records which vendor supplied a master-record field value
// and at what priority, so conflicting updates can be audited.
type FieldProvenance struct {
	// VendorCode is the vendor whose value won the merge for this field
	VendorCode string `json:"vendor_code"`
	// PriorityRank is the vendor's rank at merge time
	PriorityRank int `json:"priority_rank"`
	// SuppliedAt is when the winning mapping was last updated
	SuppliedAt time.Time `json:"supplied_at"`
}

// MasterProduct is the platform-global canonical record for one universal
// product identifier. It is created on first sighting by any vendor feed,
// rewritten by the merge engine whenever contributing mappings change, and
// deactivated rather than deleted.
type MasterProduct struct {
	// ID is the unique identifier of the record
	ID uuid.UUID
	// UniversalID is the cross-vendor product key, e.g. a UPC
	UniversalID string
	// Name is the canonical product name
	Name string
	// Brand is the canonical brand
	Brand string
	// Model is the canonical model number
	Model string
	// Category is the canonical category path
	Category string
	// ImageURL is the canonical product image
	ImageURL string
	// Description is the canonical long description
	Description string
	// Provenance records the winning vendor per descriptive attribute
	Provenance map[string]FieldProvenance
	// IsActive indicates the product is visible in merged views
	IsActive bool
	// CreatedAt is when the product was first sighted
	CreatedAt time.Time
	// UpdatedAt is when the merge engine last rewrote the record
	UpdatedAt time.Time
}

// NewMasterProduct creates a master product for a universal identifier
func NewMasterProduct(universalID string) (*MasterProduct, error) {
	if universalID == "" {
		return nil, ErrInvalidUniversalID
	}
	now := time.Now()
	return &MasterProduct{
		ID:          uuid.New(),
		UniversalID: universalID,
		Provenance:  make(map[string]FieldProvenance),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Attribute returns the current value of a descriptive attribute.
func (p *MasterProduct) Attribute(attr string) string {
	switch attr {
	case vendor.AttrName:
		return p.Name
	case vendor.AttrBrand:
		return p.Brand
	case vendor.AttrModel:
		return p.Model
	case vendor.AttrCategory:
		return p.Category
	case vendor.AttrImageURL:
		return p.ImageURL
	case vendor.AttrDescription:
		return p.Description
	default:
		return ""
	}
}

// setAttribute assigns a descriptive attribute by name.
func (p *MasterProduct) setAttribute(attr, value string) {
	switch attr {
	case vendor.AttrName:
		p.Name = value
	case vendor.AttrBrand:
		p.Brand = value
	case vendor.AttrModel:
		p.Model = value
	case vendor.AttrCategory:
		p.Category = value
	case vendor.AttrImageURL:
		p.ImageURL = value
	case vendor.AttrDescription:
		p.Description = value
	}
}

// Deactivate hides the product from merged views without deleting it
func (p *MasterProduct) Deactivate() {
	p.IsActive = false
	p.UpdatedAt = time.Now()
}
