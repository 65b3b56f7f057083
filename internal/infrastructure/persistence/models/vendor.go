package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/catsync/backend/internal/domain/vendor"
)

// VendorDefinitionModel is the persistence model for the VendorDefinition
// domain entity. Credential schema and field mappings are stored as JSON
// documents; they are read-mostly and never queried by content.
type VendorDefinitionModel struct {
	ID                   uuid.UUID             `gorm:"type:uuid;primary_key"`
	Code                 string                `gorm:"type:varchar(50);not null;uniqueIndex:idx_vendor_definition_code"`
	Name                 string                `gorm:"type:varchar(255);not null"`
	Protocol             vendor.FeedProtocol   `gorm:"type:varchar(10);not null"`
	Format               vendor.FeedFormat     `gorm:"type:varchar(10);not null"`
	FeedEndpoint         string                `gorm:"type:varchar(500)"`
	CredentialSchemaJSON string                `gorm:"type:jsonb;column:credential_schema"`
	FieldMappingsJSON    string                `gorm:"type:jsonb;column:field_mappings"`
	PriorityRank         int                   `gorm:"not null;index"`
	StalenessThreshold   int64                 `gorm:"not null;default:0;comment:nanoseconds"`
	IsActive             bool                  `gorm:"not null;index"`
	CreatedAt            time.Time             `gorm:"not null"`
	UpdatedAt            time.Time             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (VendorDefinitionModel) TableName() string {
	return "vendor_definitions"
}

// ToDomain converts the persistence model to a domain VendorDefinition entity.
func (m *VendorDefinitionModel) ToDomain() *vendor.VendorDefinition {
	def := &vendor.VendorDefinition{
		ID:                 m.ID,
		Code:               m.Code,
		Name:               m.Name,
		Protocol:           m.Protocol,
		Format:             m.Format,
		FeedEndpoint:       m.FeedEndpoint,
		CredentialSchema:   make(vendor.CredentialSchema, 0),
		FieldMappings:      make([]vendor.FieldMapping, 0),
		PriorityRank:       m.PriorityRank,
		StalenessThreshold: time.Duration(m.StalenessThreshold),
		IsActive:           m.IsActive,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if m.CredentialSchemaJSON != "" {
		var schema vendor.CredentialSchema
		if err := json.Unmarshal([]byte(m.CredentialSchemaJSON), &schema); err == nil {
			def.CredentialSchema = schema
		}
	}
	if m.FieldMappingsJSON != "" {
		var mappings []vendor.FieldMapping
		if err := json.Unmarshal([]byte(m.FieldMappingsJSON), &mappings); err == nil {
			def.FieldMappings = mappings
		}
	}
	return def
}

// FromDomain populates the persistence model from a domain VendorDefinition.
func (m *VendorDefinitionModel) FromDomain(def *vendor.VendorDefinition) {
	m.ID = def.ID
	m.Code = def.Code
	m.Name = def.Name
	m.Protocol = def.Protocol
	m.Format = def.Format
	m.FeedEndpoint = def.FeedEndpoint
	m.PriorityRank = def.PriorityRank
	m.StalenessThreshold = int64(def.StalenessThreshold)
	m.IsActive = def.IsActive
	m.CreatedAt = def.CreatedAt
	m.UpdatedAt = def.UpdatedAt

	if jsonBytes, err := json.Marshal(def.CredentialSchema); err == nil {
		m.CredentialSchemaJSON = string(jsonBytes)
	}
	if jsonBytes, err := json.Marshal(def.FieldMappings); err == nil {
		m.FieldMappingsJSON = string(jsonBytes)
	}
}

// VendorDefinitionModelFromDomain creates a new persistence model from a
// domain VendorDefinition entity.
func VendorDefinitionModelFromDomain(def *vendor.VendorDefinition) *VendorDefinitionModel {
	m := &VendorDefinitionModel{}
	m.FromDomain(def)
	return m
}

// TenantVendorCredentialModel is the persistence model for the
// TenantVendorCredential domain entity. The blob column carries the sealed
// ciphertext; plaintext credential fields never reach this layer.
type TenantVendorCredentialModel struct {
	ID               uuid.UUID               `gorm:"type:uuid;primary_key"`
	TenantID         uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex:idx_credential_tenant_vendor,priority:1"`
	VendorCode       string                  `gorm:"type:varchar(50);not null;uniqueIndex:idx_credential_tenant_vendor,priority:2"`
	EncryptedBlob    []byte                  `gorm:"type:bytea;not null"`
	ConnectionStatus vendor.ConnectionStatus `gorm:"type:varchar(20);not null;default:'unverified'"`
	LastVerifiedAt   *time.Time
	Invalidated      bool      `gorm:"not null;default:false"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TenantVendorCredentialModel) TableName() string {
	return "tenant_vendor_credentials"
}

// ToDomain converts the persistence model to a domain TenantVendorCredential.
func (m *TenantVendorCredentialModel) ToDomain() *vendor.TenantVendorCredential {
	return &vendor.TenantVendorCredential{
		ID:               m.ID,
		TenantID:         m.TenantID,
		VendorCode:       m.VendorCode,
		EncryptedBlob:    m.EncryptedBlob,
		ConnectionStatus: m.ConnectionStatus,
		LastVerifiedAt:   m.LastVerifiedAt,
		Invalidated:      m.Invalidated,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain entity.
func (m *TenantVendorCredentialModel) FromDomain(c *vendor.TenantVendorCredential) {
	m.ID = c.ID
	m.TenantID = c.TenantID
	m.VendorCode = c.VendorCode
	m.EncryptedBlob = c.EncryptedBlob
	m.ConnectionStatus = c.ConnectionStatus
	m.LastVerifiedAt = c.LastVerifiedAt
	m.Invalidated = c.Invalidated
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
}

// TenantVendorCredentialModelFromDomain creates a new persistence model from
// a domain TenantVendorCredential entity.
func TenantVendorCredentialModelFromDomain(c *vendor.TenantVendorCredential) *TenantVendorCredentialModel {
	m := &TenantVendorCredentialModel{}
	m.FromDomain(c)
	return m
}
