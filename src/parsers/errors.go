package parsers

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for the upload pipeline. Callers match with errors.Is and
// map every one of them to a client-facing rejection of the whole batch.
var (
	ErrMalformedHeader = errors.New("malformed CSV header")
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidDate     = errors.New("invalid date")
	ErrNegativeValue   = errors.New("negative value")
	ErrChurnBound      = errors.New("churn rate out of bounds")
	ErrEmptyBatch      = errors.New("no data rows")
)

// ParseError carries enough context for an actionable message: the error
// kind, the file row as a human would count it (header is row 1, first data
// row is row 2) and, where applicable, the offending field.
type ParseError struct {
	Kind  error
	Row   int    // 0 when the error is not tied to a single row
	Field string // canonical field key, "" when not field-specific
}

func (e *ParseError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrMalformedHeader):
		return fmt.Sprintf("missing required column(s) in header: %s (expected: %s)",
			e.Field, strings.Join(requiredColumns, ", "))
	case errors.Is(e.Kind, ErrMissingField):
		return fmt.Sprintf("missing or invalid value for %q at row %d", e.Field, e.Row)
	case errors.Is(e.Kind, ErrInvalidDate):
		return fmt.Sprintf("invalid date format at row %d", e.Row)
	case errors.Is(e.Kind, ErrNegativeValue):
		return fmt.Sprintf("negative values not allowed at row %d", e.Row)
	case errors.Is(e.Kind, ErrChurnBound):
		return fmt.Sprintf("churn rate cannot exceed 100%% at row %d", e.Row)
	case errors.Is(e.Kind, ErrEmptyBatch):
		return "CSV contains a header but no data rows"
	default:
		return e.Kind.Error()
	}
}

func (e *ParseError) Unwrap() error { return e.Kind }
