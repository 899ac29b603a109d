// backend/src/services/demo_service.go
package services

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/username/pulsemetrics/backend/src/logger"
	"github.com/username/pulsemetrics/backend/src/models"
	"github.com/username/pulsemetrics/backend/src/processors"
)

const (
	ckDemoDashboard     = "demo_dashboard"
	demoCacheExpiration = 1 * time.Hour
)

type demoServiceImpl struct {
	metricsProcessor *processors.MetricsProcessor
	cache            *cache.Cache
}

// NewDemoService serves the synthetic dashboard shown to visitors before
// signup. The generated payload is memoized so repeated page loads see the
// same numbers until the cache entry expires.
func NewDemoService(metricsProcessor *processors.MetricsProcessor, c *cache.Cache) DemoService {
	return &demoServiceImpl{metricsProcessor: metricsProcessor, cache: c}
}

func (s *demoServiceImpl) Dashboard() *models.DashboardData {
	if cached, found := s.cache.Get(ckDemoDashboard); found {
		if data, ok := cached.(*models.DashboardData); ok {
			return data
		}
	}

	data := s.generate()
	s.cache.Set(ckDemoDashboard, data, demoCacheExpiration)
	logger.L.Debug("Generated fresh demo dashboard")
	return data
}

func (s *demoServiceImpl) Invalidate() {
	s.cache.Delete(ckDemoDashboard)
}

// generate builds six months of plausible SaaS history ending this month and
// runs it through the same aggregation as real uploads.
func (s *demoServiceImpl) generate() *models.DashboardData {
	now := time.Now().UTC()
	records := make([]models.MetricRecord, 0, 6)
	for i := 0; i < 6; i++ {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, i-5, 0)
		records = append(records, models.MetricRecord{
			Date:     monthStart,
			MRR:      5000 + float64(i)*800 + rand.Float64()*500,
			Users:    120 + int64(i)*15 + rand.Int63n(10),
			Churn:    3 + rand.Float64()*2,
			NewUsers: 15 + rand.Int63n(10),
			Revenue:  5500 + float64(i)*900 + rand.Float64()*600,
		})
	}

	data := s.metricsProcessor.BuildDashboard(records, demoInsights())
	data.Mode = "demo"
	data.TimePeriod.Type = "demo"
	return &data
}

func demoInsights() []models.InsightItem {
	return []models.InsightItem{
		{
			ID:          uuid.NewString(),
			Title:       "Strong MRR Trajectory",
			Description: "MRR has grown consistently over the last six months. Keep investing in the acquisition channels driving this trend.",
			Severity:    models.SeveritySuccess,
		},
		{
			ID:          uuid.NewString(),
			Title:       "Steady User Growth",
			Description: "The user base is expanding month over month. Focus on onboarding to convert new sign-ups into active users.",
			Severity:    models.SeverityInfo,
		},
		{
			ID:          uuid.NewString(),
			Title:       "Watch Churn Closely",
			Description: "Churn is hovering in the 3-5% range. Consider win-back campaigns before it starts eroding MRR gains.",
			Severity:    models.SeverityWarning,
		},
	}
}
