package feed

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/catsync/backend/internal/domain/vendor"
)

// ParseJSON reads a feed shaped as a JSON array of flat objects. Each object
// becomes one row; nested objects and arrays inside a record are rejected as
// row-level errors. The row line number is the 1-based index in the array.
func ParseJSON(data []byte) ([]vendor.FeedRow, []vendor.RowParseError, error) {
	if len(data) == 0 {
		return nil, nil, ErrEmptyFeed
	}

	var records []map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil, fmt.Errorf("feed: decoding JSON feed: %w", err)
	}

	var (
		rows      []vendor.FeedRow
		parseErrs []vendor.RowParseError
	)
	for i, record := range records {
		line := i + 1
		fields := make(map[string]string, len(record))
		bad := false
		for name, raw := range record {
			value, err := scalarString(raw)
			if err != nil {
				parseErrs = append(parseErrs, vendor.RowParseError{
					Line:    line,
					Message: fmt.Sprintf("field %q: %v", name, err),
				})
				bad = true
				break
			}
			fields[name] = value
		}
		if bad {
			continue
		}
		rows = append(rows, vendor.FeedRow{Line: line, Fields: fields})
	}
	return rows, parseErrs, nil
}

// scalarString renders a JSON scalar as its string form. Numbers keep their
// literal representation so prices round-trip without float loss.
func scalarString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("nested value not supported")
	case 'n':
		return "", nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	default:
		// Number: keep the literal text.
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", err
		}
		return n.String(), nil
	}
}
