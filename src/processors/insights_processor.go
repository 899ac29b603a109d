// backend/src/processors/insights_processor.go
package processors

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/username/pulsemetrics/backend/src/models"
)

// MinInsightPoints is the smallest batch that supports trend insights:
// anything less has no previous period to compare against.
const MinInsightPoints = 2

type InsightsProcessor struct{}

func NewInsightsProcessor() *InsightsProcessor { return &InsightsProcessor{} }

// InsufficientData is the single informational insight stored when a user
// has fewer than MinInsightPoints records.
func (p *InsightsProcessor) InsufficientData() []models.InsightItem {
	return []models.InsightItem{{
		ID:          uuid.NewString(),
		Title:       "Insufficient Data",
		Description: "Upload more data points to generate meaningful insights.",
		Severity:    models.SeverityInfo,
	}}
}

// Compute derives three insights from the two most recent periods. This is
// the deterministic path used when the AI collaborator is unavailable or
// returns something unusable. Records must be in ascending date order.
func (p *InsightsProcessor) Compute(records []models.MetricRecord) []models.InsightItem {
	if len(records) < MinInsightPoints {
		return p.InsufficientData()
	}

	latest := records[len(records)-1]
	previous := records[len(records)-2]

	mrrGrowth := percentChange(previous.MRR, latest.MRR)
	userGrowth := percentChange(float64(previous.Users), float64(latest.Users))
	churnChange := latest.Churn - previous.Churn

	mrr := models.InsightItem{
		ID:       uuid.NewString(),
		Severity: models.SeverityWarning,
		Title:    "MRR Decline",
		Description: fmt.Sprintf("Your MRR decreased by %.1f%% this month. Investigate retention issues and consider pricing adjustments.",
			math.Abs(mrrGrowth)),
	}
	if mrrGrowth > 0 {
		mrr.Severity = models.SeveritySuccess
		mrr.Title = "MRR Growth Detected"
		mrr.Description = fmt.Sprintf("Your MRR increased by %.1f%% this month. Continue scaling your acquisition channels.", mrrGrowth)
	}

	users := models.InsightItem{
		ID:       uuid.NewString(),
		Severity: models.SeverityInfo,
		Title:    "User Base Update",
		Description: fmt.Sprintf("User growth is at %.1f%% month-over-month with %d new sign-ups. Focus on onboarding optimization to convert these users faster.",
			userGrowth, latest.NewUsers),
	}

	churn := models.InsightItem{
		ID:       uuid.NewString(),
		Severity: models.SeveritySuccess,
		Title:    "Churn Improved",
		Description: fmt.Sprintf("Churn decreased by %.1f%%. Your retention efforts are working. Document what's driving success.",
			math.Abs(churnChange)),
	}
	if churnChange > 0 {
		churn.Severity = models.SeverityWarning
		churn.Title = "Churn Increased"
		churn.Description = fmt.Sprintf("Churn increased by %.1f%%. Consider implementing win-back campaigns and investigating user feedback.", churnChange)
	}

	return []models.InsightItem{mrr, users, churn}
}

func percentChange(previous, latest float64) float64 {
	if previous == 0 {
		return 0
	}
	return (latest - previous) / previous * 100
}
