package feed

import (
	"fmt"

	"github.com/catsync/backend/internal/domain/vendor"
)

// ParseRows dispatches the raw feed payload to the parser matching the
// vendor's declared feed format.
func ParseRows(format vendor.FeedFormat, data []byte) ([]vendor.FeedRow, []vendor.RowParseError, error) {
	switch format {
	case vendor.FeedFormatCSV:
		return ParseCSV(data)
	case vendor.FeedFormatJSON:
		return ParseJSON(data)
	case vendor.FeedFormatXML:
		return ParseXML(data)
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
