package models

import "time"

// MetricRecord is one validated reporting-period row of a user's uploaded
// business metrics. Records are replaced wholesale on every upload: the
// metrics table always holds exactly the rows of the user's latest CSV.
type MetricRecord struct {
	ID         int64     `json:"id,omitempty"`
	UserID     int64     `json:"userId"`
	Date       time.Time `json:"date"`
	MRR        float64   `json:"mrr"`
	Users      int64     `json:"users"`
	Churn      float64   `json:"churn"`
	NewUsers   int64     `json:"newUsers"`
	Revenue    float64   `json:"revenue"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// MetricsEnvelope is the response body shared by the upload and list
// endpoints, mirroring what the dashboard frontend consumes.
type MetricsEnvelope struct {
	Message string         `json:"message"`
	Count   int            `json:"count"`
	Payload MetricsPayload `json:"payload"`
}

type MetricsPayload struct {
	Metrics  []MetricRecord `json:"metrics"`
	Insights []InsightItem  `json:"insights"`
}
