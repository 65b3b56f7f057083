package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/catsync/backend/internal/application/credential"
	"github.com/catsync/backend/internal/domain/vendor"
)

// CredentialHandler handles tenant credential API endpoints. Plaintext
// credential fields only ever travel inbound; responses expose status
// metadata, never secrets.
type CredentialHandler struct {
	BaseHandler
	vault *credential.VaultService
}

// NewCredentialHandler creates a new CredentialHandler
func NewCredentialHandler(vault *credential.VaultService) *CredentialHandler {
	return &CredentialHandler{vault: vault}
}

// StoreCredentialRequest represents a request to store vendor credentials
type StoreCredentialRequest struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

// CredentialResponse represents a stored credential's status metadata
type CredentialResponse struct {
	ID               string `json:"id"`
	VendorCode       string `json:"vendor_code"`
	ConnectionStatus string `json:"connection_status"`
	LastVerifiedAt   string `json:"last_verified_at,omitempty"`
	IsValid          bool   `json:"is_valid"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// ConnectionTestResponse represents the outcome of a connectivity check
type ConnectionTestResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RegisterRoutes registers credential routes
func (h *CredentialHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/vendors/:code/credentials")
	{
		group.PUT("", h.Store)
		group.DELETE("", h.Invalidate)
		group.POST("/test", h.TestConnection)
	}
	rg.GET("/credentials", h.List)
}

// Store seals and stores the tenant's credentials for a vendor
func (h *CredentialHandler) Store(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	var req StoreCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	cred, err := h.vault.Store(c.Request.Context(), tenantID, c.Param("code"), vendor.Credentials(req.Fields))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, toCredentialResponse(cred))
}

// TestConnection verifies the stored credential against the live vendor
func (h *CredentialHandler) TestConnection(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.vault.TestConnection(c.Request.Context(), tenantID, c.Param("code"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, ConnectionTestResponse{Success: result.Success, Message: result.Message})
}

// Invalidate revokes the stored credential without deleting it
func (h *CredentialHandler) Invalidate(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.vault.Invalidate(c.Request.Context(), tenantID, c.Param("code")); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.NoContent(c)
}

// List returns the tenant's credential status records
func (h *CredentialHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	creds, err := h.vault.ListForTenant(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	responses := make([]CredentialResponse, 0, len(creds))
	for i := range creds {
		responses = append(responses, toCredentialResponse(&creds[i]))
	}
	h.Success(c, responses)
}

func toCredentialResponse(cred *vendor.TenantVendorCredential) CredentialResponse {
	resp := CredentialResponse{
		ID:               cred.ID.String(),
		VendorCode:       cred.VendorCode,
		ConnectionStatus: string(cred.ConnectionStatus),
		IsValid:          cred.Usable(),
		CreatedAt:        cred.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        cred.UpdatedAt.Format(time.RFC3339),
	}
	if cred.LastVerifiedAt != nil {
		resp.LastVerifiedAt = cred.LastVerifiedAt.Format(time.RFC3339)
	}
	return resp
}
