package services

import (
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/pulsemetrics/backend/src/logger"
	"github.com/username/pulsemetrics/backend/src/processors"
)

func newTestDemoService() DemoService {
	logger.InitLogger("error")
	c := cache.New(5*time.Minute, 10*time.Minute)
	return NewDemoService(processors.NewMetricsProcessor(), c)
}

func TestDemoDashboardShape(t *testing.T) {
	data := newTestDemoService().Dashboard()

	assert.Equal(t, "demo", data.Mode)
	assert.Equal(t, "demo", data.TimePeriod.Type)

	// Six months of synthetic history.
	require.Len(t, data.MonthlyMetrics.Revenue, 6)
	require.Len(t, data.MonthlyMetrics.MRR, 6)
	assert.Greater(t, data.SummaryMetrics.TotalRevenue, 0.0)
	assert.Greater(t, data.SummaryMetrics.MRR, 0.0)

	require.Len(t, data.AIInsights, 3)
	assert.Equal(t, "Strong MRR Trajectory", data.AIInsights[0].Title)
}

func TestDemoDashboardIsMemoized(t *testing.T) {
	svc := newTestDemoService()

	first := svc.Dashboard()
	second := svc.Dashboard()
	assert.Same(t, first, second)

	svc.Invalidate()
	third := svc.Dashboard()
	assert.NotSame(t, first, third)
}
