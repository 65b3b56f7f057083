package sync

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/catsync/backend/internal/domain/catalog"
	"github.com/catsync/backend/internal/domain/vendor"
)

// MergeService recomputes master product records from their contributing
// vendor mappings after an import changes them.
type MergeService struct {
	engine   *catalog.MergeEngine
	products catalog.MasterProductRepository
	mappings catalog.VendorProductMappingRepository
	defs     vendor.DefinitionRepository
	logger   *zap.Logger
}

// NewMergeService creates a new MergeService
func NewMergeService(
	engine *catalog.MergeEngine,
	products catalog.MasterProductRepository,
	mappings catalog.VendorProductMappingRepository,
	defs vendor.DefinitionRepository,
	logger *zap.Logger,
) *MergeService {
	return &MergeService{
		engine:   engine,
		products: products,
		mappings: mappings,
		defs:     defs,
		logger:   logger.Named("merge"),
	}
}

// RecomputeProducts rebuilds the master record for each universal identifier.
// Priority rank ties between vendors are resolved deterministically by the
// engine and surfaced here as warnings for operator review.
func (s *MergeService) RecomputeProducts(ctx context.Context, universalIDs []string) error {
	if len(universalIDs) == 0 {
		return nil
	}

	ranks, err := s.loadRanks(ctx)
	if err != nil {
		return err
	}

	for _, universalID := range universalIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.recomputeOne(ctx, universalID, ranks); err != nil {
			return fmt.Errorf("recomputing product %s: %w", universalID, err)
		}
	}
	return nil
}

func (s *MergeService) recomputeOne(ctx context.Context, universalID string, ranks map[string]int) error {
	existing, err := s.products.FindByUniversalID(ctx, universalID)
	if err != nil {
		if !errors.Is(err, catalog.ErrProductNotFound) {
			return err
		}
		existing = nil
	}

	mappings, err := s.mappings.FindActiveByUniversalID(ctx, universalID)
	if err != nil {
		return err
	}

	if len(mappings) == 0 && existing != nil {
		// Every contributing vendor withdrew the product.
		existing.Deactivate()
		return s.products.Save(ctx, existing)
	}

	product, warnings, err := s.engine.Recompute(existing, universalID, mappings, ranks)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		s.logger.Warn("priority rank tie during merge",
			zap.String("universal_id", w.UniversalID),
			zap.String("attribute", w.Attribute),
			zap.Int("rank", w.Rank),
			zap.String("winner_vendor", w.WinnerVendor),
			zap.String("loser_vendor", w.LoserVendor))
	}
	return s.products.Save(ctx, product)
}

// loadRanks builds the vendor code to priority rank table from the active
// definitions.
func (s *MergeService) loadRanks(ctx context.Context) (map[string]int, error) {
	defs, err := s.defs.FindAllActive(ctx)
	if err != nil {
		return nil, err
	}
	ranks := make(map[string]int, len(defs))
	for _, def := range defs {
		ranks[def.Code] = def.PriorityRank
	}
	return ranks, nil
}
