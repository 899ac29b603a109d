package processors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/pulsemetrics/backend/src/models"
)

func record(date string, mrr float64, users int64, churn float64, newUsers int64, revenue float64) models.MetricRecord {
	d, _ := time.Parse("2006-01-02", date)
	return models.MetricRecord{
		UserID: 1, Date: d, MRR: mrr, Users: users, Churn: churn, NewUsers: newUsers, Revenue: revenue,
	}
}

func TestBuildDashboardSummary(t *testing.T) {
	records := []models.MetricRecord{
		record("2024-01-01", 5000, 120, 3.2, 15, 5500),
		record("2024-02-01", 5800, 135, 2.9, 18, 6400),
	}

	data := NewMetricsProcessor().BuildDashboard(records, nil)

	assert.Equal(t, "real", data.Mode)
	assert.Equal(t, "2024-01-01", data.TimePeriod.StartDate)
	assert.Equal(t, "2024-02-01", data.TimePeriod.EndDate)

	assert.Equal(t, 11900.0, data.SummaryMetrics.TotalRevenue)
	assert.Equal(t, int64(135), data.SummaryMetrics.TotalUsers)
	assert.Equal(t, int64(94), data.SummaryMetrics.ActiveUsers)
	assert.Equal(t, 5800.0, data.SummaryMetrics.MRR)
	assert.Equal(t, 16.0, data.SummaryMetrics.MRRGrowthPct) // (5800-5000)/5000
	assert.Equal(t, "97.1", data.SummaryMetrics.CustomerRetention)
	assert.Equal(t, int64(18), data.SummaryMetrics.NewUsers)

	// Insights default to an empty slice, never null in JSON.
	assert.NotNil(t, data.AIInsights)
}

func TestBuildDashboardMonthlySeries(t *testing.T) {
	// Two records in January: revenue sums, the later record wins for MRR.
	records := []models.MetricRecord{
		record("2024-01-01", 5000, 120, 3.2, 15, 5500),
		record("2024-01-15", 5200, 125, 3.0, 10, 2000),
		record("2024-02-01", 5800, 135, 2.9, 18, 6400),
	}

	series := NewMetricsProcessor().BuildDashboard(records, nil).MonthlyMetrics

	require.Len(t, series.Revenue, 2)
	assert.Equal(t, "2024-01", series.Revenue[0].Month)
	assert.Equal(t, 7500.0, series.Revenue[0].Value)
	assert.Equal(t, 5200.0, series.MRR[0].Value)
	assert.Equal(t, "2024-02", series.Revenue[1].Month)
	assert.Equal(t, 6400.0, series.Revenue[1].Value)
}

func TestBuildDashboardEmptyRecords(t *testing.T) {
	data := NewMetricsProcessor().BuildDashboard(nil, nil)

	assert.Equal(t, "real", data.Mode)
	assert.Empty(t, data.TimePeriod.StartDate)
	assert.NotNil(t, data.MonthlyMetrics.Revenue)
	assert.NotNil(t, data.ChartData.RevenueByCategory)
	assert.Zero(t, data.SummaryMetrics.TotalRevenue)
}

func TestBuildDashboardChartData(t *testing.T) {
	records := []models.MetricRecord{record("2024-01-01", 1000, 100, 5, 4, 1200)}

	chart := NewMetricsProcessor().BuildDashboard(records, nil).ChartData

	require.Len(t, chart.RevenueByCategory, 4)
	assert.Equal(t, 1000.0, chart.RevenueByCategory[0].Value)
	assert.Equal(t, 200.0, chart.RevenueByCategory[1].Value) // 4 new users * 50

	require.Len(t, chart.CustomerSegments, 4)
	assert.Equal(t, int64(5), chart.CustomerSegments[0].Count)
	assert.Equal(t, 400.0, chart.CustomerSegments[0].Value)
}
