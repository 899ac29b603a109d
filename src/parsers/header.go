package parsers

import "strings"

// Canonical field keys after header normalization.
const (
	FieldDate     = "date"
	FieldMRR      = "mrr"
	FieldUsers    = "users"
	FieldChurn    = "churn"
	FieldNewUsers = "new_users"
	FieldRevenue  = "revenue"
)

// requiredColumns is also the order in which presence failures are reported.
var requiredColumns = []string{
	FieldDate, FieldMRR, FieldUsers, FieldChurn, FieldNewUsers, FieldRevenue,
}

// normalizeHeader canonicalizes one header token: trim, lower-case, collapse
// any run of whitespace to a single underscore. "New Users", "new_users" and
// "NEW_USERS" all normalize to "new_users".
func normalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\ufeff") // UTF-8 BOM on the first cell
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(name), "_")
}

// mapHeader binds canonical field keys to column positions. Matching is by
// normalized name, never by position. Missing keys fail the whole upload.
func mapHeader(record []string) (map[string]int, error) {
	cols := make(map[string]int, len(record))
	for i, name := range record {
		key := normalizeHeader(name)
		if _, seen := cols[key]; !seen {
			cols[key] = i
		}
	}

	var missing []string
	for _, key := range requiredColumns {
		if _, ok := cols[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &ParseError{Kind: ErrMalformedHeader, Field: strings.Join(missing, ", ")}
	}
	return cols, nil
}
