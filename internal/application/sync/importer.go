package sync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/catsync/backend/internal/domain/catalog"
	syncdomain "github.com/catsync/backend/internal/domain/sync"
	"github.com/catsync/backend/internal/domain/vendor"
	"github.com/catsync/backend/internal/infrastructure/feed"
)

// ImportResult is the outcome of importing one parsed feed into vendor
// product mappings. Row-level failures never abort the import; the counts and
// retained errors tell the caller what happened.
type ImportResult struct {
	// Counts carries the per-row tallies
	Counts syncdomain.RunCounts
	// Errors holds the retained row errors, capped
	Errors []feed.RowError
	// TotalErrors counts all row errors including truncated ones
	TotalErrors int
	// Truncated is true when some errors were dropped by the cap
	Truncated bool
	// AffectedUniversalIDs lists the universal identifiers whose mappings
	// changed, deduplicated, for merge recomputation
	AffectedUniversalIDs []string
	// Complete is true when every row imported or was deliberately skipped;
	// only a complete import may advance the feed snapshot hash
	Complete bool
}

// FeedImporter turns parsed feed rows into vendor product mappings. Each row
// is mapped onto normalized attributes through the vendor's field mapping
// table, then upserted; unchanged rows are recognized by content hash and
// skipped.
type FeedImporter struct {
	mappings  catalog.VendorProductMappingRepository
	logger    *zap.Logger
	maxErrors int
}

// NewFeedImporter creates a new FeedImporter
func NewFeedImporter(mappings catalog.VendorProductMappingRepository, logger *zap.Logger, maxErrors int) *FeedImporter {
	return &FeedImporter{
		mappings:  mappings,
		logger:    logger.Named("importer"),
		maxErrors: maxErrors,
	}
}

// Import upserts every parsed row for the (tenant, vendor) pair. Returned
// errors are reserved for storage failures; malformed rows are tallied in the
// result. Re-importing an identical feed is a no-op apart from refreshed
// last-seen markers.
func (i *FeedImporter) Import(
	ctx context.Context,
	tenantID uuid.UUID,
	def *vendor.VendorDefinition,
	rows []vendor.FeedRow,
	parseErrs []vendor.RowParseError,
	runID uuid.UUID,
) (*ImportResult, error) {
	collection := feed.NewErrorCollection(i.maxErrors)
	counts := syncdomain.RunCounts{Seen: len(rows) + len(parseErrs)}
	affected := make(map[string]struct{})

	for _, parseErr := range parseErrs {
		counts.Failed++
		collection.AddParseError(parseErr)
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		normalized, rowErr := i.normalizeRow(def, row)
		if rowErr != nil {
			counts.Failed++
			collection.Add(*rowErr)
			continue
		}
		if normalized.UniversalID == "" || normalized.NativeSKU == "" {
			counts.Skipped++
			i.logger.Debug("row missing identifiers, skipping",
				zap.String("vendor_code", def.Code),
				zap.Int("line", row.Line))
			continue
		}

		existing, err := i.mappings.FindByNativeSKU(ctx, tenantID, def.Code, normalized.NativeSKU)
		switch {
		case err == nil:
			previousUPC := existing.UniversalID
			changed := existing.Supersede(*normalized, runID)
			if err := i.mappings.Save(ctx, existing); err != nil {
				return nil, fmt.Errorf("saving mapping for %s: %w", normalized.NativeSKU, err)
			}
			if changed {
				counts.Updated++
				affected[normalized.UniversalID] = struct{}{}
				if previousUPC != normalized.UniversalID {
					// The SKU moved to another product; both sides need a
					// merge recompute.
					affected[previousUPC] = struct{}{}
				}
			} else {
				counts.Skipped++
			}

		case errors.Is(err, catalog.ErrMappingNotFound):
			mapping, err := catalog.NewVendorProductMapping(tenantID, def.Code, *normalized, runID)
			if err != nil {
				counts.Failed++
				collection.Add(feed.NewRowError(row.Line, "", feed.ErrCodeInvalidValue, err.Error()))
				continue
			}
			if err := i.mappings.Save(ctx, mapping); err != nil {
				return nil, fmt.Errorf("creating mapping for %s: %w", normalized.NativeSKU, err)
			}
			counts.Created++
			affected[normalized.UniversalID] = struct{}{}

		default:
			return nil, fmt.Errorf("loading mapping for %s: %w", normalized.NativeSKU, err)
		}
	}

	result := &ImportResult{
		Counts:               counts,
		Errors:               collection.Errors(),
		TotalErrors:          collection.TotalCount(),
		Truncated:            collection.IsTruncated(),
		AffectedUniversalIDs: sortedKeys(affected),
		Complete:             counts.Failed == 0,
	}
	return result, nil
}

// normalizeRow maps a raw feed row onto normalized attributes using the
// vendor's field mapping table. Unmapped feed fields are ignored.
func (i *FeedImporter) normalizeRow(def *vendor.VendorDefinition, row vendor.FeedRow) (*catalog.NormalizedRow, *feed.RowError) {
	normalized := &catalog.NormalizedRow{
		Descriptive: make(map[string]string),
		Line:        row.Line,
	}

	for _, mapping := range def.FieldMappings {
		value := strings.TrimSpace(row.Fields[mapping.FeedField])
		switch mapping.Attribute {
		case vendor.AttrUniversalID:
			normalized.UniversalID = value
		case vendor.AttrNativeSKU:
			normalized.NativeSKU = value
		case vendor.AttrPrice:
			if value == "" {
				continue
			}
			price, err := decimal.NewFromString(value)
			if err != nil {
				rowErr := feed.NewRowError(row.Line, mapping.FeedField, feed.ErrCodeInvalidValue,
					fmt.Sprintf("invalid price %q", value))
				return nil, &rowErr
			}
			normalized.Price = price
		case vendor.AttrQuantity:
			if value == "" {
				continue
			}
			quantity, err := decimal.NewFromString(value)
			if err != nil {
				rowErr := feed.NewRowError(row.Line, mapping.FeedField, feed.ErrCodeInvalidValue,
					fmt.Sprintf("invalid quantity %q", value))
				return nil, &rowErr
			}
			normalized.QuantityOnHand = quantity
		default:
			if value != "" {
				normalized.Descriptive[mapping.Attribute] = value
			}
		}
	}

	normalized.RowHash = hashNormalizedRow(normalized)
	return normalized, nil
}

// hashNormalizedRow computes a content hash over the normalized values, so
// cosmetic feed changes (column order, unmapped fields) do not register as
// row changes.
func hashNormalizedRow(row *catalog.NormalizedRow) string {
	h := sha256.New()
	fmt.Fprintf(h, "uid=%s\nsku=%s\nprice=%s\nqty=%s\n",
		row.UniversalID, row.NativeSKU, row.Price.String(), row.QuantityOnHand.String())
	for _, attr := range sortedKeys(toSet(row.Descriptive)) {
		fmt.Fprintf(h, "%s=%s\n", attr, row.Descriptive[attr])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func toSet(m map[string]string) map[string]struct{} {
	set := make(map[string]struct{}, len(m))
	for k := range m {
		set[k] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
