package processors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/pulsemetrics/backend/src/models"
)

func TestComputeRequiresTwoPoints(t *testing.T) {
	p := NewInsightsProcessor()

	items := p.Compute([]models.MetricRecord{record("2024-01-01", 5000, 120, 3.2, 15, 5500)})
	require.Len(t, items, 1)
	assert.Equal(t, "Insufficient Data", items[0].Title)
	assert.Equal(t, models.SeverityInfo, items[0].Severity)
}

func TestComputeGrowthInsights(t *testing.T) {
	records := []models.MetricRecord{
		record("2024-01-01", 5000, 120, 3.2, 15, 5500),
		record("2024-02-01", 5800, 135, 2.9, 18, 6400),
	}

	items := NewInsightsProcessor().Compute(records)
	require.Len(t, items, 3)

	assert.Equal(t, "MRR Growth Detected", items[0].Title)
	assert.Equal(t, models.SeveritySuccess, items[0].Severity)
	assert.Contains(t, items[0].Description, "16.0%")

	assert.Equal(t, "User Base Update", items[1].Title)
	assert.Equal(t, models.SeverityInfo, items[1].Severity)
	assert.Contains(t, items[1].Description, "18 new sign-ups")

	assert.Equal(t, "Churn Improved", items[2].Title)
	assert.Equal(t, models.SeveritySuccess, items[2].Severity)

	// Every item carries a distinct ID.
	assert.NotEqual(t, items[0].ID, items[1].ID)
}

func TestComputeDeclineInsights(t *testing.T) {
	records := []models.MetricRecord{
		record("2024-01-01", 5800, 135, 2.9, 18, 6400),
		record("2024-02-01", 5000, 120, 4.5, 9, 5500),
	}

	items := NewInsightsProcessor().Compute(records)
	require.Len(t, items, 3)

	assert.Equal(t, "MRR Decline", items[0].Title)
	assert.Equal(t, models.SeverityWarning, items[0].Severity)

	assert.Equal(t, "Churn Increased", items[2].Title)
	assert.Equal(t, models.SeverityWarning, items[2].Severity)
	assert.Contains(t, items[2].Description, "1.6%")
}
