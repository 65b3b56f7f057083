package feed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/catsync/backend/internal/domain/vendor"
)

// Import error codes surfaced in run results.
const (
	ErrCodeEmptyFeed        = "ERR_FEED_EMPTY"
	ErrCodeInvalidEncoding  = "ERR_FEED_INVALID_ENCODING"
	ErrCodeMissingHeader    = "ERR_FEED_MISSING_HEADER"
	ErrCodeMalformedRow     = "ERR_FEED_MALFORMED_ROW"
	ErrCodeMissingUniversal = "ERR_FEED_MISSING_UNIVERSAL_ID"
	ErrCodeMissingSKU       = "ERR_FEED_MISSING_NATIVE_SKU"
	ErrCodeInvalidValue     = "ERR_FEED_INVALID_VALUE"
	ErrCodePersistence      = "ERR_FEED_PERSISTENCE"
)

var (
	// ErrEmptyFeed is returned when the feed payload has no content
	ErrEmptyFeed = errors.New("feed: payload is empty")

	// ErrInvalidEncoding is returned when the payload is not valid UTF-8
	ErrInvalidEncoding = errors.New("feed: payload is not valid UTF-8")

	// ErrMissingHeader is returned when a delimited feed has no header row
	ErrMissingHeader = errors.New("feed: missing header row")

	// ErrUnsupportedFormat is returned for an unknown feed format
	ErrUnsupportedFormat = errors.New("feed: unsupported feed format")
)

// RowError represents an error attributed to one feed row.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("row %d, field '%s': %s", e.Row, e.Field, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(row int, field, code, message string) RowError {
	return RowError{Row: row, Field: field, Code: code, Message: message}
}

// ErrorCollection accumulates row errors up to a cap so a pathological feed
// cannot balloon the run result.
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
}

// NewErrorCollection creates a collection with a maximum retained size
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0, maxErrors),
		maxErrors: maxErrors,
	}
}

// Add records an error, retaining it if the cap allows
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddParseError records a protocol-level row parse failure
func (ec *ErrorCollection) AddParseError(err vendor.RowParseError) {
	ec.Add(NewRowError(err.Line, "", ErrCodeMalformedRow, err.Message))
}

// Errors returns the retained errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// TotalCount returns the total number of errors including truncated ones
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// IsTruncated returns true when some errors were dropped by the cap
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// HasErrors returns true when at least one error was recorded
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// String summarizes the collection for log output
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error(s)", ec.totalCount)
	if ec.IsTruncated() {
		fmt.Fprintf(&sb, " (showing first %d)", ec.maxErrors)
	}
	sb.WriteString(":")
	for _, err := range ec.errors {
		sb.WriteString("\n  - ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}
