package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	syncdomain "github.com/catsync/backend/internal/domain/sync"
)

// MockSnapshotRepository is a mock implementation of sync.SnapshotRepository
type MockSnapshotRepository struct {
	mock.Mock
}

func (m *MockSnapshotRepository) Save(ctx context.Context, snapshot *syncdomain.FeedSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotRepository) Find(ctx context.Context, tenantID uuid.UUID, vendorCode string) (*syncdomain.FeedSnapshot, error) {
	args := m.Called(ctx, tenantID, vendorCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*syncdomain.FeedSnapshot), args.Error(1)
}

func TestChangeDetector_HasChanged(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	feed := []byte("upc,price\n012345678905,10.00\n")

	t.Run("should report changed when no snapshot exists", func(t *testing.T) {
		repo := new(MockSnapshotRepository)
		repo.On("Find", ctx, tenantID, "acme").Return(nil, syncdomain.ErrSnapshotMissing)
		detector := NewChangeDetector(repo)

		changed, hash, err := detector.HasChanged(ctx, tenantID, "acme", feed)

		require.NoError(t, err)
		assert.True(t, changed)
		assert.Equal(t, HashFeed(feed), hash)
		repo.AssertExpectations(t)
	})

	t.Run("should report unchanged when hash matches last snapshot", func(t *testing.T) {
		repo := new(MockSnapshotRepository)
		snapshot := syncdomain.NewFeedSnapshot(tenantID, "acme", HashFeed(feed))
		repo.On("Find", ctx, tenantID, "acme").Return(snapshot, nil)
		detector := NewChangeDetector(repo)

		changed, hash, err := detector.HasChanged(ctx, tenantID, "acme", feed)

		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, snapshot.FeedHash, hash)
	})

	t.Run("should report changed when content differs", func(t *testing.T) {
		repo := new(MockSnapshotRepository)
		snapshot := syncdomain.NewFeedSnapshot(tenantID, "acme", HashFeed([]byte("old feed")))
		repo.On("Find", ctx, tenantID, "acme").Return(snapshot, nil)
		detector := NewChangeDetector(repo)

		changed, _, err := detector.HasChanged(ctx, tenantID, "acme", feed)

		require.NoError(t, err)
		assert.True(t, changed)
	})

	t.Run("should propagate storage errors", func(t *testing.T) {
		repo := new(MockSnapshotRepository)
		repo.On("Find", ctx, tenantID, "acme").Return(nil, errors.New("connection refused"))
		detector := NewChangeDetector(repo)

		_, _, err := detector.HasChanged(ctx, tenantID, "acme", feed)

		assert.Error(t, err)
	})
}
