package feed

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/catsync/backend/internal/domain/vendor"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a delimited feed into raw rows keyed by the header names.
// The first record is treated as the header. Rows whose field count does not
// match the header are reported as parse errors and skipped; the remainder of
// the feed is still processed.
func ParseCSV(data []byte) ([]vendor.FeedRow, []vendor.RowParseError, error) {
	if len(data) == 0 {
		return nil, nil, ErrEmptyFeed
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, nil, ErrInvalidEncoding
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true
	// Field counts are validated against the header manually so a bad row
	// does not abort the whole feed.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, ErrMissingHeader
	}
	if err != nil {
		return nil, nil, fmt.Errorf("feed: reading header: %w", err)
	}
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = strings.TrimSpace(name)
	}

	var (
		rows       []vendor.FeedRow
		parseErrs  []vendor.RowParseError
		lineNumber = 1
	)
	for {
		lineNumber++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			parseErrs = append(parseErrs, vendor.RowParseError{
				Line:    lineNumber,
				Message: err.Error(),
			})
			continue
		}
		if len(record) != len(columns) {
			parseErrs = append(parseErrs, vendor.RowParseError{
				Line:    lineNumber,
				Message: fmt.Sprintf("expected %d fields, got %d", len(columns), len(record)),
			})
			continue
		}
		fields := make(map[string]string, len(columns))
		for i, value := range record {
			fields[columns[i]] = strings.TrimSpace(value)
		}
		rows = append(rows, vendor.FeedRow{Line: lineNumber, Fields: fields})
	}
	return rows, parseErrs, nil
}
