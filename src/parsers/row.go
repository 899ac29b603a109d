package parsers

import (
	"math"
	"strconv"
	"strings"
)

// numField is the parser's numeric-coercion result: either a number or an
// explicit invalid value carrying the raw text. The validator branches on
// ok; NaN never propagates past this type.
type numField struct {
	value float64
	raw   string
	ok    bool
}

func parseNum(s string) numField {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return numField{raw: raw}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return numField{raw: raw}
	}
	return numField{value: v, raw: raw, ok: true}
}

// rawRow is the ephemeral per-line product of the row parser. The date is
// passed through as text; all numeric fields carry the coercion sentinel.
type rawRow struct {
	row      int // 1-based file row for error reporting (header is row 1)
	date     string
	mrr      numField
	users    numField
	churn    numField
	newUsers numField
	revenue  numField
}

// parseRow maps one CSV record onto a rawRow using the normalized header
// positions. Short (ragged) records simply leave trailing fields empty; the
// validator turns that into a missing-field failure with row context.
func parseRow(record []string, cols map[string]int, row int) rawRow {
	at := func(key string) string {
		i, ok := cols[key]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}
	return rawRow{
		row:      row,
		date:     strings.TrimSpace(at(FieldDate)),
		mrr:      parseNum(at(FieldMRR)),
		users:    parseNum(at(FieldUsers)),
		churn:    parseNum(at(FieldChurn)),
		newUsers: parseNum(at(FieldNewUsers)),
		revenue:  parseNum(at(FieldRevenue)),
	}
}

// isBlankRecord reports whether a record is an effectively empty line, which
// the pipeline skips without counting it as a data row.
func isBlankRecord(record []string) bool {
	if len(record) > 1 {
		return false
	}
	return len(record) == 0 || strings.TrimSpace(record[0]) == ""
}
