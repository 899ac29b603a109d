package models

// DashboardData is the aggregated view the frontend renders. It is produced
// two ways: from a user's persisted MetricRecords (real mode) or by the demo
// generator (demo mode). Both must keep the same shape.
type DashboardData struct {
	Mode           string         `json:"mode"` // "real" or "demo"
	TimePeriod     TimePeriod     `json:"timePeriod"`
	SummaryMetrics SummaryMetrics `json:"summaryMetrics"`
	MonthlyMetrics MonthlySeries  `json:"monthlyMetrics"`
	ChartData      ChartData      `json:"chartData"`
	AIInsights     []InsightItem  `json:"aiInsights"`
	LastUpdated    string         `json:"lastUpdated"`
}

// TimePeriod bounds the aggregated window. Start and End are the dates of
// the first and last record in date order.
type TimePeriod struct {
	StartDate string `json:"startDate"` // YYYY-MM-DD
	EndDate   string `json:"endDate"`   // YYYY-MM-DD
	Type      string `json:"type"`      // e.g. "30days", "uploaded"
}

type SummaryMetrics struct {
	TotalRevenue      float64 `json:"totalRevenue"`
	TotalUsers        int64   `json:"totalUsers"`
	ActiveUsers       int64   `json:"activeUsers"`
	MRR               float64 `json:"mrr"`
	MRRGrowthPct      float64 `json:"mrrGrowthPct"`
	CustomerRetention string  `json:"customerRetention"` // percentage, 1 decimal
	ChurnRate         float64 `json:"churnRate"`
	NewUsers          int64   `json:"newUsers"`
}

type MonthlySeries struct {
	Revenue []MonthlyPoint `json:"revenue"`
	MRR     []MonthlyPoint `json:"mrr"`
	Users   []MonthlyPoint `json:"users"`
	Churn   []MonthlyPoint `json:"churn"`
}

type MonthlyPoint struct {
	Month string  `json:"month"` // YYYY-MM
	Value float64 `json:"value"`
}

type ChartData struct {
	RevenueByCategory []CategoryValue   `json:"revenueByCategory"`
	CustomerSegments  []CustomerSegment `json:"customerSegments"`
}

type CategoryValue struct {
	Category string  `json:"category"`
	Value    float64 `json:"value"`
}

type CustomerSegment struct {
	Segment string  `json:"segment"`
	Count   int64   `json:"count"`
	Value   float64 `json:"value"`
}
