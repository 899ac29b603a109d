// backend/src/processors/metrics_processor.go
package processors

import (
	"math"
	"strconv"
	"time"

	"github.com/username/pulsemetrics/backend/src/models"
)

type MetricsProcessor struct{}

func NewMetricsProcessor() *MetricsProcessor { return &MetricsProcessor{} }

// BuildDashboard aggregates a user's metric records into the dashboard view.
// Records must be in ascending date order; the first and last records bound
// the reported time period. Insights are attached as-is.
func (p *MetricsProcessor) BuildDashboard(records []models.MetricRecord, insights []models.InsightItem) models.DashboardData {
	data := models.DashboardData{
		Mode:        "real",
		AIInsights:  insights,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}
	if data.AIInsights == nil {
		data.AIInsights = []models.InsightItem{}
	}
	if len(records) == 0 {
		data.MonthlyMetrics = emptySeries()
		data.ChartData = models.ChartData{
			RevenueByCategory: []models.CategoryValue{},
			CustomerSegments:  []models.CustomerSegment{},
		}
		return data
	}

	first := records[0]
	latest := records[len(records)-1]

	data.TimePeriod = models.TimePeriod{
		StartDate: first.Date.Format("2006-01-02"),
		EndDate:   latest.Date.Format("2006-01-02"),
		Type:      "uploaded",
	}

	var totalRevenue float64
	for _, r := range records {
		totalRevenue += r.Revenue
	}

	mrrGrowth := 0.0
	if len(records) >= 2 {
		previous := records[len(records)-2]
		if previous.MRR != 0 {
			mrrGrowth = (latest.MRR - previous.MRR) / previous.MRR * 100
		}
	}

	data.SummaryMetrics = models.SummaryMetrics{
		TotalRevenue:      totalRevenue,
		TotalUsers:        latest.Users,
		ActiveUsers:       int64(math.Floor(float64(latest.Users) * 0.7)),
		MRR:               latest.MRR,
		MRRGrowthPct:      round1(mrrGrowth),
		CustomerRetention: strconv.FormatFloat(100-latest.Churn, 'f', 1, 64),
		ChurnRate:         latest.Churn,
		NewUsers:          latest.NewUsers,
	}

	data.MonthlyMetrics = p.buildMonthlySeries(records)
	data.ChartData = p.buildChartData(latest)
	return data
}

// buildMonthlySeries buckets records by calendar month. Revenue sums within
// a month; MRR, user count and churn take the latest record of the month.
func (p *MetricsProcessor) buildMonthlySeries(records []models.MetricRecord) models.MonthlySeries {
	series := emptySeries()
	index := map[string]int{}
	for _, r := range records {
		month := r.Date.Format("2006-01")
		i, seen := index[month]
		if !seen {
			index[month] = len(series.Revenue)
			series.Revenue = append(series.Revenue, models.MonthlyPoint{Month: month})
			series.MRR = append(series.MRR, models.MonthlyPoint{Month: month})
			series.Users = append(series.Users, models.MonthlyPoint{Month: month})
			series.Churn = append(series.Churn, models.MonthlyPoint{Month: month})
			i = index[month]
		}
		series.Revenue[i].Value += r.Revenue
		series.MRR[i].Value = r.MRR
		series.Users[i].Value = float64(r.Users)
		series.Churn[i].Value = r.Churn
	}
	return series
}

// buildChartData derives the presentation breakdowns from the latest period,
// using the same category/segment split the demo generator renders.
func (p *MetricsProcessor) buildChartData(latest models.MetricRecord) models.ChartData {
	return models.ChartData{
		RevenueByCategory: []models.CategoryValue{
			{Category: "MRR (Monthly Recurring)", Value: latest.MRR},
			{Category: "New Revenue", Value: float64(latest.NewUsers) * 50},
			{Category: "Services", Value: latest.MRR * 0.2},
			{Category: "Add-ons", Value: latest.MRR * 0.1},
		},
		CustomerSegments: []models.CustomerSegment{
			{Segment: "Enterprise", Count: int64(float64(latest.Users) * 0.05), Value: latest.MRR * 0.4},
			{Segment: "Mid-Market", Count: int64(float64(latest.Users) * 0.15), Value: latest.MRR * 0.3},
			{Segment: "SMB", Count: int64(float64(latest.Users) * 0.4), Value: latest.MRR * 0.2},
			{Segment: "Startup", Count: int64(float64(latest.Users) * 0.4), Value: latest.MRR * 0.1},
		},
	}
}

func emptySeries() models.MonthlySeries {
	return models.MonthlySeries{
		Revenue: []models.MonthlyPoint{},
		MRR:     []models.MonthlyPoint{},
		Users:   []models.MonthlyPoint{},
		Churn:   []models.MonthlyPoint{},
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
