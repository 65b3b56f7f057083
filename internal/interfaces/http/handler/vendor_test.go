package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/catsync/backend/internal/application/vendors"
	"github.com/catsync/backend/internal/domain/vendor"
	"github.com/catsync/backend/internal/interfaces/http/dto"
)

type vendorRepoMock struct {
	mock.Mock
}

func (m *vendorRepoMock) Save(ctx context.Context, def *vendor.VendorDefinition) error {
	args := m.Called(ctx, def)
	return args.Error(0)
}

func (m *vendorRepoMock) FindByCode(ctx context.Context, code string) (*vendor.VendorDefinition, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vendor.VendorDefinition), args.Error(1)
}

func (m *vendorRepoMock) FindAllActive(ctx context.Context) ([]vendor.VendorDefinition, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]vendor.VendorDefinition), args.Error(1)
}

type noopBinder struct{}

func (noopBinder) Bind(string, vendor.FeedProtocol) error { return nil }

func newVendorTestRouter(repo *vendorRepoMock) *gin.Engine {
	service := vendors.NewDefinitionService(repo, noopBinder{}, zap.NewNop())
	r := gin.New()
	NewVendorHandler(service).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestVendorHandler_Create(t *testing.T) {
	t.Run("should create a vendor definition", func(t *testing.T) {
		repo := new(vendorRepoMock)
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)
		r := newVendorTestRouter(repo)

		body := `{
			"code": "acme",
			"name": "Acme Distribution",
			"protocol": "ftp",
			"format": "csv",
			"feed_endpoint": "/feeds/catalog.csv",
			"priority_rank": 1,
			"staleness_threshold": "30h",
			"credential_schema": [
				{"name": "username", "type": "string", "required": true},
				{"name": "password", "type": "password", "required": true, "secret": true}
			],
			"field_mappings": [
				{"feed_field": "upc", "attribute": "universal_id"}
			]
		}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/vendors", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		data := resp.Data.(map[string]any)
		assert.Equal(t, "acme", data["code"])
		assert.Equal(t, "ftp", data["protocol"])
		assert.Equal(t, "30h0m0s", data["staleness_threshold"])
		repo.AssertExpectations(t)
	})

	t.Run("should reject an unsupported protocol", func(t *testing.T) {
		repo := new(vendorRepoMock)
		r := newVendorTestRouter(repo)

		body := `{"code":"acme","name":"Acme","protocol":"gopher","format":"csv","feed_endpoint":"/x","priority_rank":1}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/vendors", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("should reject a malformed staleness threshold", func(t *testing.T) {
		repo := new(vendorRepoMock)
		r := newVendorTestRouter(repo)

		body := `{"code":"acme","name":"Acme","protocol":"rest","format":"json","feed_endpoint":"/x","priority_rank":1,"staleness_threshold":"soon"}`
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/v1/vendors", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestVendorHandler_Get(t *testing.T) {
	t.Run("should return a definition by code", func(t *testing.T) {
		def, err := vendor.NewVendorDefinition("acme", "Acme", vendor.FeedProtocolREST, vendor.FeedFormatJSON, 2)
		require.NoError(t, err)

		repo := new(vendorRepoMock)
		repo.On("FindByCode", mock.Anything, "acme").Return(def, nil)
		r := newVendorTestRouter(repo)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/vendors/acme", nil))

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		data := resp.Data.(map[string]any)
		assert.Equal(t, "acme", data["code"])
		assert.Equal(t, true, data["is_active"])
	})

	t.Run("should return 404 for an unknown code", func(t *testing.T) {
		repo := new(vendorRepoMock)
		repo.On("FindByCode", mock.Anything, "nope").Return(nil, vendor.ErrVendorNotFound)
		r := newVendorTestRouter(repo)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/vendors/nope", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
	})
}

func TestVendorHandler_List(t *testing.T) {
	acme, err := vendor.NewVendorDefinition("acme", "Acme", vendor.FeedProtocolFTP, vendor.FeedFormatCSV, 1)
	require.NoError(t, err)
	globex, err := vendor.NewVendorDefinition("globex", "Globex", vendor.FeedProtocolREST, vendor.FeedFormatJSON, 2)
	require.NoError(t, err)

	repo := new(vendorRepoMock)
	repo.On("FindAllActive", mock.Anything).Return([]vendor.VendorDefinition{*acme, *globex}, nil)
	r := newVendorTestRouter(repo)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/vendors", nil))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	items := resp.Data.([]any)
	require.Len(t, items, 2)
	assert.Equal(t, "acme", items[0].(map[string]any)["code"])
}

func TestVendorHandler_Update(t *testing.T) {
	t.Run("should deactivate a vendor", func(t *testing.T) {
		def, err := vendor.NewVendorDefinition("acme", "Acme", vendor.FeedProtocolREST, vendor.FeedFormatJSON, 2)
		require.NoError(t, err)

		repo := new(vendorRepoMock)
		repo.On("FindByCode", mock.Anything, "acme").Return(def, nil)
		repo.On("Save", mock.Anything, def).Return(nil)
		r := newVendorTestRouter(repo)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/api/v1/vendors/acme", strings.NewReader(`{"is_active": false}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, false, resp.Data.(map[string]any)["is_active"])
	})
}
