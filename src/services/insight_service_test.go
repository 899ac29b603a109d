package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/username/pulsemetrics/backend/src/models"
)

func metricRecord(date string, mrr float64, users int64, churn float64, newUsers int64, revenue float64) models.MetricRecord {
	d, _ := time.Parse("2006-01-02", date)
	return models.MetricRecord{
		UserID: 1, Date: d, MRR: mrr, Users: users, Churn: churn, NewUsers: newUsers, Revenue: revenue,
	}
}

func TestBuildInsightPrompt(t *testing.T) {
	latest := metricRecord("2024-02-01", 5800.5, 135, 2.9, 18, 6400)
	previous := metricRecord("2024-01-01", 5000, 120, 3.25, 15, 5500)

	prompt := buildInsightPrompt(latest, previous)

	assert.Contains(t, prompt, "MRR: $5800.50")
	assert.Contains(t, prompt, "Churn: 2.90%")
	assert.Contains(t, prompt, "New Users: 18")
	assert.Contains(t, prompt, "MRR: $5000.00")
	assert.Contains(t, prompt, "Churn: 3.25%")
	assert.Contains(t, prompt, "exactly 3 actionable insights")
	assert.Contains(t, prompt, `"severity": "success"`)
}

func TestCleanMarkdownFences(t *testing.T) {
	fenced := "```json\n{\"insights\": []}\n```"
	assert.Equal(t, `{"insights": []}`, cleanMarkdownFences(fenced))

	bare := `{"insights": []}`
	assert.Equal(t, bare, cleanMarkdownFences(bare))

	fencedNoLang := "```\n{\"insights\": []}\n```"
	assert.Equal(t, `{"insights": []}`, cleanMarkdownFences(fencedNoLang))
}

func TestNormalizeSeverity(t *testing.T) {
	assert.Equal(t, models.SeveritySuccess, normalizeSeverity("success"))
	assert.Equal(t, models.SeveritySuccess, normalizeSeverity(" SUCCESS "))
	assert.Equal(t, models.SeverityWarning, normalizeSeverity("warning"))
	assert.Equal(t, models.SeverityInfo, normalizeSeverity("info"))
	assert.Equal(t, models.SeverityInfo, normalizeSeverity("critical"))
	assert.Equal(t, models.SeverityInfo, normalizeSeverity(""))
}
