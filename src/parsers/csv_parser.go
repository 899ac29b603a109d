// backend/src/parsers/csv_parser.go
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/username/pulsemetrics/backend/src/models"
)

// MetricCSVParser turns an untrusted metrics CSV into validated, owner-
// stamped MetricRecords. The pipeline is a single stateless pass: header
// normalization, row parsing, batch validation, assembly. Any failure
// rejects the whole upload; there is no partial acceptance.
type MetricCSVParser struct{}

func NewMetricCSVParser() *MetricCSVParser {
	return &MetricCSVParser{}
}

// Parse reads one CSV document and returns its records in input order, or a
// single descriptive error. Errors from the validation stages are
// *ParseError values carrying the row/field context.
func (p *MetricCSVParser) Parse(file io.Reader, userID int64) ([]models.MetricRecord, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, &ParseError{Kind: ErrMalformedHeader, Field: "all columns (file is empty)"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []rawRow
	dataRows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV records: %w", err)
		}
		if isBlankRecord(record) {
			continue
		}
		dataRows++
		// Row numbers are how a human counts lines in the file: the header
		// is row 1, so the first data row reports as row 2.
		rows = append(rows, parseRow(record, cols, dataRows+1))
	}

	if len(rows) == 0 {
		return nil, &ParseError{Kind: ErrEmptyBatch}
	}

	validated, err := validateRows(rows)
	if err != nil {
		return nil, err
	}

	return assembleRecords(validated, userID), nil
}
