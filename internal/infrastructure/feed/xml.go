package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/catsync/backend/internal/domain/vendor"
)

// ParseXML reads a feed shaped as a single root element whose repeated child
// elements are the records. Each leaf child of a record becomes a field named
// by its local element name. Records carrying nested structure beyond one
// level are reported as row errors and skipped.
func ParseXML(data []byte) ([]vendor.FeedRow, []vendor.RowParseError, error) {
	if len(data) == 0 {
		return nil, nil, ErrEmptyFeed
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))

	// Skip to the root element.
	root, err := nextStartElement(decoder)
	if err != nil {
		return nil, nil, fmt.Errorf("feed: decoding XML feed: %w", err)
	}
	if root == nil {
		return nil, nil, ErrEmptyFeed
	}

	var (
		rows      []vendor.FeedRow
		parseErrs []vendor.RowParseError
		line      int
	)
	for {
		record, err := nextStartElement(decoder)
		if err != nil {
			return nil, nil, fmt.Errorf("feed: decoding XML feed: %w", err)
		}
		if record == nil {
			break
		}
		line++
		fields, err := decodeRecord(decoder, *record)
		if err != nil {
			parseErrs = append(parseErrs, vendor.RowParseError{Line: line, Message: err.Error()})
			continue
		}
		rows = append(rows, vendor.FeedRow{Line: line, Fields: fields})
	}
	return rows, parseErrs, nil
}

// nextStartElement advances to the next start element at the current depth,
// returning nil at the enclosing end element or EOF.
func nextStartElement(decoder *xml.Decoder) (*xml.StartElement, error) {
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			return &t, nil
		case xml.EndElement:
			return nil, nil
		}
	}
}

// decodeRecord consumes one record element through its end tag, collecting
// its leaf children. A malformed child is reported after the rest of the
// record has been consumed, keeping the token stream aligned for the next
// record.
func decodeRecord(decoder *xml.Decoder, record xml.StartElement) (map[string]string, error) {
	fields := make(map[string]string)
	var recordErr error
	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}
		switch t := token.(type) {
		case xml.StartElement:
			value, err := decodeLeaf(decoder, t)
			if err != nil {
				if _, ok := err.(*xml.SyntaxError); ok {
					return nil, err
				}
				if recordErr == nil {
					recordErr = fmt.Errorf("element %q: %v", t.Name.Local, err)
				}
				continue
			}
			fields[t.Name.Local] = value
		case xml.EndElement:
			if t.Name.Local == record.Name.Local {
				if recordErr != nil {
					return nil, recordErr
				}
				return fields, nil
			}
		}
	}
}

// decodeLeaf reads the character content of a leaf element through its end
// tag. Nested elements are skipped and reported so the decoder stays
// balanced.
func decodeLeaf(decoder *xml.Decoder, start xml.StartElement) (string, error) {
	var (
		sb        strings.Builder
		nestedErr error
	)
	for {
		token, err := decoder.Token()
		if err != nil {
			return "", err
		}
		switch t := token.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			if nestedErr == nil {
				nestedErr = fmt.Errorf("nested element %q not supported", t.Name.Local)
			}
			if err := decoder.Skip(); err != nil {
				return "", err
			}
		case xml.EndElement:
			if t.Name.Local == start.Name.Local {
				if nestedErr != nil {
					return "", nestedErr
				}
				return strings.TrimSpace(sb.String()), nil
			}
		}
	}
}
