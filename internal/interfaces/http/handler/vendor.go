package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/catsync/backend/internal/application/vendors"
	"github.com/catsync/backend/internal/domain/vendor"
)

// VendorHandler handles vendor definition API endpoints
type VendorHandler struct {
	BaseHandler
	definitions *vendors.DefinitionService
}

// NewVendorHandler creates a new VendorHandler
func NewVendorHandler(definitions *vendors.DefinitionService) *VendorHandler {
	return &VendorHandler{definitions: definitions}
}

// CredentialFieldRequest describes one credential schema field
type CredentialFieldRequest struct {
	Name     string `json:"name" binding:"required,min=1,max=50"`
	Type     string `json:"type" binding:"required,oneof=string password url port"`
	Required bool   `json:"required"`
	Secret   bool   `json:"secret"`
}

// FieldMappingRequest maps one feed field to a normalized attribute
type FieldMappingRequest struct {
	FeedField string `json:"feed_field" binding:"required,min=1,max=100"`
	Attribute string `json:"attribute" binding:"required,min=1,max=50"`
}

// CreateVendorRequest represents a request to register a vendor definition
type CreateVendorRequest struct {
	Code               string                   `json:"code" binding:"required,min=1,max=50"`
	Name               string                   `json:"name" binding:"required,min=1,max=100"`
	Protocol           string                   `json:"protocol" binding:"required,oneof=ftp rest soap"`
	Format             string                   `json:"format" binding:"required,oneof=csv json xml"`
	FeedEndpoint       string                   `json:"feed_endpoint" binding:"required,max=500"`
	PriorityRank       int                      `json:"priority_rank" binding:"required,min=1"`
	CredentialSchema   []CredentialFieldRequest `json:"credential_schema"`
	FieldMappings      []FieldMappingRequest    `json:"field_mappings"`
	StalenessThreshold string                   `json:"staleness_threshold" binding:"omitempty,duration"`
}

// UpdateVendorRequest represents a request to update a vendor definition
type UpdateVendorRequest struct {
	Name               *string                  `json:"name" binding:"omitempty,min=1,max=100"`
	FeedEndpoint       *string                  `json:"feed_endpoint" binding:"omitempty,max=500"`
	PriorityRank       *int                     `json:"priority_rank" binding:"omitempty,min=1"`
	CredentialSchema   []CredentialFieldRequest `json:"credential_schema"`
	FieldMappings      []FieldMappingRequest    `json:"field_mappings"`
	StalenessThreshold *string                  `json:"staleness_threshold" binding:"omitempty,duration"`
	IsActive           *bool                    `json:"is_active"`
}

// VendorResponse represents a vendor definition in the response
type VendorResponse struct {
	ID                 string                   `json:"id"`
	Code               string                   `json:"code"`
	Name               string                   `json:"name"`
	Protocol           string                   `json:"protocol"`
	Format             string                   `json:"format"`
	FeedEndpoint       string                   `json:"feed_endpoint"`
	PriorityRank       int                      `json:"priority_rank"`
	CredentialSchema   []CredentialFieldRequest `json:"credential_schema"`
	FieldMappings      []FieldMappingRequest    `json:"field_mappings"`
	StalenessThreshold string                   `json:"staleness_threshold"`
	IsActive           bool                     `json:"is_active"`
	CreatedAt          string                   `json:"created_at"`
	UpdatedAt          string                   `json:"updated_at"`
}

// RegisterRoutes registers vendor definition routes
func (h *VendorHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/vendors")
	{
		group.POST("", h.Create)
		group.GET("", h.List)
		group.GET("/:code", h.Get)
		group.PUT("/:code", h.Update)
	}
}

// Create registers a new vendor definition
func (h *VendorHandler) Create(c *gin.Context) {
	var req CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	staleness, err := parseStaleness(req.StalenessThreshold)
	if err != nil {
		h.BadRequest(c, "invalid staleness_threshold: "+err.Error())
		return
	}

	def, err := h.definitions.Create(c.Request.Context(), vendors.CreateDefinitionInput{
		Code:               req.Code,
		Name:               req.Name,
		Protocol:           vendor.FeedProtocol(req.Protocol),
		Format:             vendor.FeedFormat(req.Format),
		FeedEndpoint:       req.FeedEndpoint,
		PriorityRank:       req.PriorityRank,
		CredentialSchema:   toCredentialSchema(req.CredentialSchema),
		FieldMappings:      toFieldMappings(req.FieldMappings),
		StalenessThreshold: staleness,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Created(c, toVendorResponse(def))
}

// List returns all active vendor definitions in priority order
func (h *VendorHandler) List(c *gin.Context) {
	defs, err := h.definitions.ListActive(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	responses := make([]VendorResponse, 0, len(defs))
	for i := range defs {
		responses = append(responses, toVendorResponse(&defs[i]))
	}
	h.Success(c, responses)
}

// Get returns a single vendor definition by code
func (h *VendorHandler) Get(c *gin.Context) {
	def, err := h.definitions.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toVendorResponse(def))
}

// Update applies changes to an existing vendor definition
func (h *VendorHandler) Update(c *gin.Context) {
	var req UpdateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	input := vendors.UpdateDefinitionInput{
		Name:             req.Name,
		FeedEndpoint:     req.FeedEndpoint,
		PriorityRank:     req.PriorityRank,
		CredentialSchema: toCredentialSchema(req.CredentialSchema),
		FieldMappings:    toFieldMappings(req.FieldMappings),
		IsActive:         req.IsActive,
	}
	if req.StalenessThreshold != nil {
		staleness, err := parseStaleness(*req.StalenessThreshold)
		if err != nil {
			h.BadRequest(c, "invalid staleness_threshold: "+err.Error())
			return
		}
		input.StalenessThreshold = &staleness
	}

	def, err := h.definitions.Update(c.Request.Context(), c.Param("code"), input)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toVendorResponse(def))
}

func parseStaleness(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

func toCredentialSchema(fields []CredentialFieldRequest) vendor.CredentialSchema {
	if fields == nil {
		return nil
	}
	schema := make(vendor.CredentialSchema, 0, len(fields))
	for _, f := range fields {
		schema = append(schema, vendor.CredentialField{
			Name:     f.Name,
			Type:     vendor.CredentialFieldType(f.Type),
			Required: f.Required,
			Secret:   f.Secret,
		})
	}
	return schema
}

func toFieldMappings(mappings []FieldMappingRequest) []vendor.FieldMapping {
	if mappings == nil {
		return nil
	}
	out := make([]vendor.FieldMapping, 0, len(mappings))
	for _, m := range mappings {
		out = append(out, vendor.FieldMapping{FeedField: m.FeedField, Attribute: m.Attribute})
	}
	return out
}

func toVendorResponse(def *vendor.VendorDefinition) VendorResponse {
	schema := make([]CredentialFieldRequest, 0, len(def.CredentialSchema))
	for _, f := range def.CredentialSchema {
		schema = append(schema, CredentialFieldRequest{
			Name:     f.Name,
			Type:     string(f.Type),
			Required: f.Required,
			Secret:   f.Secret,
		})
	}
	mappings := make([]FieldMappingRequest, 0, len(def.FieldMappings))
	for _, m := range def.FieldMappings {
		mappings = append(mappings, FieldMappingRequest{FeedField: m.FeedField, Attribute: m.Attribute})
	}
	return VendorResponse{
		ID:                 def.ID.String(),
		Code:               def.Code,
		Name:               def.Name,
		Protocol:           string(def.Protocol),
		Format:             string(def.Format),
		FeedEndpoint:       def.FeedEndpoint,
		PriorityRank:       def.PriorityRank,
		CredentialSchema:   schema,
		FieldMappings:      mappings,
		StalenessThreshold: def.StalenessThreshold.String(),
		IsActive:           def.IsActive,
		CreatedAt:          def.CreatedAt.Format(time.RFC3339),
		UpdatedAt:          def.UpdatedAt.Format(time.RFC3339),
	}
}
