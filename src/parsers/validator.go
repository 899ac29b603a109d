package parsers

import "time"

// Accepted date layouts, tried in order. The reporting period is a calendar
// date; any time-of-day component is truncated.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// validatedRow is a fully typed metric row awaiting owner stamping.
type validatedRow struct {
	date     time.Time
	mrr      float64
	users    int64
	churn    float64
	newUsers int64
	revenue  float64
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// validateRows enforces the per-record invariants over the whole batch.
// Validation is atomic: the first invalid row aborts and nothing is
// returned. Per-row check order is presence, date validity, non-negativity,
// churn bound; the first failure wins.
func validateRows(rows []rawRow) ([]validatedRow, error) {
	out := make([]validatedRow, 0, len(rows))
	for _, r := range rows {
		if r.date == "" {
			return nil, &ParseError{Kind: ErrMissingField, Row: r.row, Field: FieldDate}
		}
		for _, f := range []struct {
			key string
			num numField
		}{
			{FieldMRR, r.mrr},
			{FieldUsers, r.users},
			{FieldChurn, r.churn},
			{FieldNewUsers, r.newUsers},
			{FieldRevenue, r.revenue},
		} {
			// An unparseable number is treated exactly like an absent one.
			if !f.num.ok {
				return nil, &ParseError{Kind: ErrMissingField, Row: r.row, Field: f.key}
			}
		}

		date, ok := parseDate(r.date)
		if !ok {
			return nil, &ParseError{Kind: ErrInvalidDate, Row: r.row}
		}

		if r.mrr.value < 0 || r.users.value < 0 || r.churn.value < 0 ||
			r.newUsers.value < 0 || r.revenue.value < 0 {
			return nil, &ParseError{Kind: ErrNegativeValue, Row: r.row}
		}
		if r.churn.value > 100 {
			return nil, &ParseError{Kind: ErrChurnBound, Row: r.row}
		}

		out = append(out, validatedRow{
			date:     date,
			mrr:      r.mrr.value,
			users:    int64(r.users.value),
			churn:    r.churn.value,
			newUsers: int64(r.newUsers.value),
			revenue:  r.revenue.value,
		})
	}
	return out, nil
}
