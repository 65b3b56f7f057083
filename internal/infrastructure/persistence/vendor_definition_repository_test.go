package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catsync/backend/internal/domain/vendor"
)

func TestGormVendorDefinitionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormVendorDefinitionRepository(setupTestDB(t))

	def, err := vendor.NewVendorDefinition("ACME_DIST", "Acme Wholesale", vendor.FeedProtocolFTP, vendor.FeedFormatCSV, 1)
	require.NoError(t, err)
	def.FeedEndpoint = "/feeds/catalog.csv"
	def.CredentialSchema = vendor.CredentialSchema{
		{Name: "host", Type: vendor.CredentialFieldString, Required: true},
		{Name: "username", Type: vendor.CredentialFieldString, Required: true},
		{Name: "password", Type: vendor.CredentialFieldPassword, Required: true, Secret: true},
	}
	def.FieldMappings = []vendor.FieldMapping{
		{FeedField: "upc", Attribute: vendor.AttrUniversalID},
		{FeedField: "item_no", Attribute: vendor.AttrNativeSKU},
		{FeedField: "price", Attribute: vendor.AttrPrice},
	}
	def.StalenessThreshold = 30 * time.Hour
	require.NoError(t, repo.Save(ctx, def))

	t.Run("should round-trip schema and mappings", func(t *testing.T) {
		found, err := repo.FindByCode(ctx, "ACME_DIST")

		require.NoError(t, err)
		assert.Equal(t, def.ID, found.ID)
		assert.Equal(t, vendor.FeedProtocolFTP, found.Protocol)
		require.Len(t, found.CredentialSchema, 3)
		assert.True(t, found.CredentialSchema[2].Secret)
		attr, ok := found.AttributeFor("upc")
		require.True(t, ok)
		assert.Equal(t, vendor.AttrUniversalID, attr)
		assert.Equal(t, 30*time.Hour, found.Staleness())
	})

	t.Run("should report unknown code", func(t *testing.T) {
		_, err := repo.FindByCode(ctx, "GHOST")

		assert.ErrorIs(t, err, vendor.ErrVendorNotFound)
	})

	t.Run("should list active definitions by priority", func(t *testing.T) {
		second, err := vendor.NewVendorDefinition("GLOBEX", "Globex", vendor.FeedProtocolREST, vendor.FeedFormatJSON, 2)
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, second))
		retired, err := vendor.NewVendorDefinition("RETIRED", "Retired Vendor", vendor.FeedProtocolSOAP, vendor.FeedFormatXML, 3)
		require.NoError(t, err)
		retired.Deactivate()
		require.NoError(t, repo.Save(ctx, retired))

		defs, err := repo.FindAllActive(ctx)

		require.NoError(t, err)
		require.Len(t, defs, 2)
		assert.Equal(t, "ACME_DIST", defs[0].Code)
		assert.Equal(t, "GLOBEX", defs[1].Code)

		found, err := repo.FindByCode(ctx, "RETIRED")
		require.NoError(t, err)
		assert.False(t, found.IsActive)
	})
}
