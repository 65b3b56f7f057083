package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catsync/backend/internal/domain/catalog"
	syncdomain "github.com/catsync/backend/internal/domain/sync"
)

func TestGormMasterProductRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormMasterProductRepository(setupTestDB(t))

	product, err := catalog.NewMasterProduct("012345678905")
	require.NoError(t, err)
	product.Name = "Widget"
	product.Brand = "Acme"
	product.Provenance["name"] = catalog.FieldProvenance{
		VendorCode:   "acme",
		PriorityRank: 1,
		SuppliedAt:   time.Now().Truncate(time.Second),
	}
	require.NoError(t, repo.Save(ctx, product))

	t.Run("should round-trip provenance", func(t *testing.T) {
		found, err := repo.FindByUniversalID(ctx, "012345678905")

		require.NoError(t, err)
		assert.Equal(t, product.ID, found.ID)
		assert.Equal(t, "Widget", found.Name)
		require.Contains(t, found.Provenance, "name")
		assert.Equal(t, "acme", found.Provenance["name"].VendorCode)
		assert.Equal(t, 1, found.Provenance["name"].PriorityRank)
	})

	t.Run("should report unknown universal identifier", func(t *testing.T) {
		_, err := repo.FindByUniversalID(ctx, "000000000000")

		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})

	t.Run("should keep a product whose first save is deactivated", func(t *testing.T) {
		delisted, err := catalog.NewMasterProduct("012345678912")
		require.NoError(t, err)
		delisted.Deactivate()
		require.NoError(t, repo.Save(ctx, delisted))

		found, err := repo.FindByUniversalID(ctx, "012345678912")
		require.NoError(t, err)
		assert.False(t, found.IsActive)
	})

	t.Run("should overwrite on recompute", func(t *testing.T) {
		product.Name = "Widget Pro"
		require.NoError(t, repo.Save(ctx, product))

		found, err := repo.FindByUniversalID(ctx, "012345678905")
		require.NoError(t, err)
		assert.Equal(t, "Widget Pro", found.Name)
	})
}

func TestGormFeedSnapshotRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormFeedSnapshotRepository(setupTestDB(t))
	tenantID := uuid.New()

	t.Run("should report missing snapshot", func(t *testing.T) {
		_, err := repo.Find(ctx, tenantID, "acme")

		assert.ErrorIs(t, err, syncdomain.ErrSnapshotMissing)
	})

	t.Run("should upsert the hash for a pair", func(t *testing.T) {
		first := syncdomain.NewFeedSnapshot(tenantID, "acme", "hash-one")
		require.NoError(t, repo.Save(ctx, first))

		second := syncdomain.NewFeedSnapshot(tenantID, "acme", "hash-two")
		require.NoError(t, repo.Save(ctx, second))

		found, err := repo.Find(ctx, tenantID, "acme")
		require.NoError(t, err)
		assert.Equal(t, "hash-two", found.FeedHash)
	})

	t.Run("should keep pairs independent", func(t *testing.T) {
		otherTenant := uuid.New()
		require.NoError(t, repo.Save(ctx, syncdomain.NewFeedSnapshot(otherTenant, "acme", "hash-other")))

		mine, err := repo.Find(ctx, tenantID, "acme")
		require.NoError(t, err)
		assert.Equal(t, "hash-two", mine.FeedHash)

		theirs, err := repo.Find(ctx, otherTenant, "acme")
		require.NoError(t, err)
		assert.Equal(t, "hash-other", theirs.FeedHash)
	})
}
