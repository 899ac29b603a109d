package services

import (
	"errors"
	"io"

	"github.com/username/pulsemetrics/backend/src/models"
)

var (
	// ErrParsingFailed wraps every rejection produced by the CSV pipeline.
	ErrParsingFailed = errors.New("csv parsing failed")
	// ErrInsufficientData is returned when insight generation is requested
	// with fewer than two stored data points.
	ErrInsufficientData = errors.New("need at least 2 data points to generate insights")
	// ErrNoInsights is returned when a user has no stored insights yet.
	ErrNoInsights = errors.New("no insights found")
)

// MetricsService owns the upload-to-dashboard flow: running the CSV
// pipeline, replacing the user's metric history atomically, and serving the
// aggregated views.
type MetricsService interface {
	ProcessUpload(file io.Reader, userID int64) (*models.MetricsEnvelope, error)
	GetMetrics(userID int64) (*models.MetricsEnvelope, error)
	GetDashboard(userID int64) (*models.DashboardData, error)
	ExportCSV(w io.Writer, userID int64) (int, error)
	DeleteAllMetrics(userID int64) error
	InvalidateUserCache(userID int64)
}

// InsightService generates, stores and serves per-user insights.
type InsightService interface {
	Generate(userID int64, records []models.MetricRecord) (*models.Insight, error)
	Regenerate(userID int64) (*models.Insight, error)
	GetStored(userID int64) (*models.Insight, error)
	DeleteFor(userID int64) error
}

// DemoService serves the synthetic dashboard shown before signup.
type DemoService interface {
	Dashboard() *models.DashboardData
	Invalidate()
}

// EmailService delivers account lifecycle mail.
type EmailService interface {
	SendVerificationEmail(toEmail, token string) error
	SendPasswordResetEmail(toEmail, token string) error
}
