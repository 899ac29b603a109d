package models

import "time"

// Severity levels for insight items. The AI response is constrained to
// these three values; anything else is normalized to "info".
const (
	SeveritySuccess = "success"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// InsightItem is a single generated observation about a user's metrics.
type InsightItem struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// Insight is the stored set of insights for a user. One row per user,
// replaced whenever insights are (re)generated.
type Insight struct {
	ID          int64         `json:"id,omitempty"`
	UserID      int64         `json:"userId"`
	Insights    []InsightItem `json:"insights"`
	GeneratedAt time.Time     `json:"generatedAt"`
}
