package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	syncapp "github.com/catsync/backend/internal/application/sync"
	catalogdomain "github.com/catsync/backend/internal/domain/catalog"
	syncdomain "github.com/catsync/backend/internal/domain/sync"
	"github.com/catsync/backend/internal/domain/vendor"
	"github.com/catsync/backend/internal/interfaces/http/dto"
	"github.com/catsync/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader("X-Request-ID")
}

// getTenantID extracts the tenant ID resolved by the tenant middleware
func getTenantID(c *gin.Context) (uuid.UUID, error) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		return uuid.Nil, errors.New("tenant ID not found in context")
	}
	return tenantID, nil
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 accepted response
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// Conflict sends a 409 conflict response
func (h *BaseHandler) Conflict(c *gin.Context, code, message string) {
	h.Error(c, http.StatusConflict, code, message)
}

// HandleDomainError maps domain errors onto HTTP responses. Anything not
// recognized falls through to a 500 without leaking internals.
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, vendor.ErrVendorNotFound),
		errors.Is(err, vendor.ErrCredentialNotFound),
		errors.Is(err, vendor.ErrUnknownVendor),
		errors.Is(err, catalogdomain.ErrProductNotFound),
		errors.Is(err, catalogdomain.ErrMappingNotFound),
		errors.Is(err, syncdomain.ErrRunNotFound):
		h.NotFound(c, err.Error())
	case errors.Is(err, syncdomain.ErrRunConflict):
		h.Conflict(c, dto.ErrCodeSyncConflict, "a sync run is already in progress for this vendor")
	case errors.Is(err, syncapp.ErrVendorInactive):
		h.ErrorWithCode(c, dto.ErrCodeVendorInactive, err.Error())
	case errors.Is(err, vendor.ErrCredentialRevoked):
		h.ErrorWithCode(c, dto.ErrCodeCredentialRevoked, err.Error())
	case errors.Is(err, vendor.ErrDecryptionFailed):
		h.ErrorWithCode(c, dto.ErrCodeCredentialInvalid, "stored credential could not be opened")
	case errors.Is(err, syncdomain.ErrInvalidMode),
		errors.Is(err, vendor.ErrInvalidSchema),
		errors.Is(err, vendor.ErrInvalidPriorityRank):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, err.Error())
	default:
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "internal server error")
	}
}
