package parsers

import (
	"time"

	"github.com/username/pulsemetrics/backend/src/models"
)

// assembleRecords stamps validated rows with the owning user and a single
// batch-wide upload timestamp, preserving input order. It has no failure
// modes of its own; rows reaching this stage are already validated.
func assembleRecords(rows []validatedRow, userID int64) []models.MetricRecord {
	uploadedAt := time.Now().UTC()
	records := make([]models.MetricRecord, 0, len(rows))
	for _, r := range rows {
		records = append(records, models.MetricRecord{
			UserID:     userID,
			Date:       r.date,
			MRR:        r.mrr,
			Users:      r.users,
			Churn:      r.churn,
			NewUsers:   r.newUsers,
			Revenue:    r.revenue,
			UploadedAt: uploadedAt,
		})
	}
	return records
}
