package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/catsync/backend/internal/application/catalogquery"
	"github.com/catsync/backend/internal/domain/catalog"
)

// ProductHandler handles master product API endpoints
type ProductHandler struct {
	BaseHandler
	query *catalogquery.Service
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(query *catalogquery.Service) *ProductHandler {
	return &ProductHandler{query: query}
}

// FieldProvenanceResponse records which vendor supplied a field value
type FieldProvenanceResponse struct {
	VendorCode   string `json:"vendor_code"`
	PriorityRank int    `json:"priority_rank"`
	SuppliedAt   string `json:"supplied_at"`
}

// ProductResponse represents a merged master product
type ProductResponse struct {
	UniversalID string                             `json:"universal_id"`
	Attributes  map[string]string                  `json:"attributes"`
	Provenance  map[string]FieldProvenanceResponse `json:"provenance"`
	IsActive    bool                               `json:"is_active"`
	UpdatedAt   string                             `json:"updated_at"`
}

// MappingResponse represents one vendor's contribution to a product
type MappingResponse struct {
	VendorCode     string            `json:"vendor_code"`
	UniversalID    string            `json:"universal_id"`
	NativeSKU      string            `json:"native_sku"`
	Price          string            `json:"price"`
	QuantityOnHand string            `json:"quantity_on_hand"`
	Descriptive    map[string]string `json:"descriptive"`
	IsActive       bool              `json:"is_active"`
	UpdatedAt      string            `json:"updated_at"`
}

// ProductDetailResponse pairs the master record with its source mappings
type ProductDetailResponse struct {
	Product  ProductResponse   `json:"product"`
	Mappings []MappingResponse `json:"mappings"`
}

// RegisterRoutes registers product routes
func (h *ProductHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/products/:universal_id", h.Get)
	rg.GET("/vendors/:code/mappings", h.ListMappings)
}

// Get returns the merged master record for a universal identifier
func (h *ProductHandler) Get(c *gin.Context) {
	view, err := h.query.Product(c.Request.Context(), c.Param("universal_id"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	mappings := make([]MappingResponse, 0, len(view.Mappings))
	for i := range view.Mappings {
		mappings = append(mappings, toMappingResponse(&view.Mappings[i]))
	}
	h.Success(c, ProductDetailResponse{
		Product:  toProductResponse(view.Product),
		Mappings: mappings,
	})
}

// ListMappings returns the tenant's mappings for one vendor
func (h *ProductHandler) ListMappings(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	activeOnly := c.DefaultQuery("active_only", "true") == "true"

	mappings, err := h.query.VendorMappings(c.Request.Context(), tenantID, c.Param("code"), activeOnly)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	responses := make([]MappingResponse, 0, len(mappings))
	for i := range mappings {
		responses = append(responses, toMappingResponse(&mappings[i]))
	}
	h.Success(c, responses)
}

func toProductResponse(product *catalog.MasterProduct) ProductResponse {
	attributes := make(map[string]string)
	for _, attr := range catalog.DescriptiveAttributes {
		if value := product.Attribute(attr); value != "" {
			attributes[attr] = value
		}
	}
	provenance := make(map[string]FieldProvenanceResponse, len(product.Provenance))
	for attr, p := range product.Provenance {
		provenance[attr] = FieldProvenanceResponse{
			VendorCode:   p.VendorCode,
			PriorityRank: p.PriorityRank,
			SuppliedAt:   p.SuppliedAt.Format(time.RFC3339),
		}
	}
	return ProductResponse{
		UniversalID: product.UniversalID,
		Attributes:  attributes,
		Provenance:  provenance,
		IsActive:    product.IsActive,
		UpdatedAt:   product.UpdatedAt.Format(time.RFC3339),
	}
}

func toMappingResponse(mapping *catalog.VendorProductMapping) MappingResponse {
	return MappingResponse{
		VendorCode:     mapping.VendorCode,
		UniversalID:    mapping.UniversalID,
		NativeSKU:      mapping.NativeSKU,
		Price:          mapping.Price.String(),
		QuantityOnHand: mapping.QuantityOnHand.String(),
		Descriptive:    mapping.Descriptive,
		IsActive:       mapping.IsActive,
		UpdatedAt:      mapping.UpdatedAt.Format(time.RFC3339),
	}
}
