package vendorfeed

import (
	"github.com/catsync/backend/internal/domain/vendor"
	"github.com/catsync/backend/internal/infrastructure/feed"
)

// parseByFormat dispatches to the parser for the vendor's declared format.
// All handlers share this: the transport a feed arrives over and the shape of
// its payload are independent axes.
func parseByFormat(def *vendor.VendorDefinition, data []byte) ([]vendor.FeedRow, []vendor.RowParseError, error) {
	return feed.ParseRows(def.Format, data)
}
