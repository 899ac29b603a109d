// backend/src/services/metrics_service.go
package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/pulsemetrics/backend/src/database"
	"github.com/username/pulsemetrics/backend/src/logger"
	"github.com/username/pulsemetrics/backend/src/models"
	"github.com/username/pulsemetrics/backend/src/parsers"
	"github.com/username/pulsemetrics/backend/src/processors"
	"github.com/username/pulsemetrics/backend/src/security/validation"
)

const (
	// Aggregate caches, rebuilt on the next request after an upload.
	ckDashboard = "agg_dashboard_user_%d"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute
)

type metricsServiceImpl struct {
	parser           *parsers.MetricCSVParser
	metricsProcessor *processors.MetricsProcessor
	insightService   InsightService
	reportCache      *cache.Cache
}

func NewMetricsService(
	parser *parsers.MetricCSVParser,
	metricsProcessor *processors.MetricsProcessor,
	insightService InsightService,
	reportCache *cache.Cache,
) MetricsService {
	return &metricsServiceImpl{
		parser:           parser,
		metricsProcessor: metricsProcessor,
		insightService:   insightService,
		reportCache:      reportCache,
	}
}

// ProcessUpload runs the CSV pipeline and, on success, replaces the user's
// entire metric history in one transaction. A rejected file leaves the
// previous upload untouched.
func (s *metricsServiceImpl) ProcessUpload(fileReader io.Reader, userID int64) (*models.MetricsEnvelope, error) {
	overallStartTime := time.Now()
	logger.L.Info("ProcessUpload START", "userID", userID)

	records, err := s.parser.Parse(fileReader, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParsingFailed, err)
	}

	dbTx, err := database.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.Exec(`DELETE FROM metrics WHERE user_id = ?`, userID); err != nil {
		return nil, fmt.Errorf("error clearing previous metrics: %w", err)
	}

	stmt, err := dbTx.Prepare(`INSERT INTO metrics (user_id, date, mrr, users, churn, new_users, revenue, uploaded_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.Exec(userID, r.Date.Format("2006-01-02"), r.MRR, r.Users, r.Churn, r.NewUsers, r.Revenue, r.UploadedAt.Format(time.RFC3339))
		if err != nil {
			return nil, fmt.Errorf("error inserting metric (date: %s): %w", r.Date.Format("2006-01-02"), err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing metrics: %w", err)
	}

	s.InvalidateUserCache(userID)

	// Regenerate insights from the freshly stored history. Failure here must
	// not fail the upload; the stored metrics are already consistent.
	stored, err := fetchUserMetrics(userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching stored metrics: %w", err)
	}
	insight, err := s.insightService.Generate(userID, stored)
	if err != nil {
		logger.L.Error("insight generation after upload failed", "userID", userID, "error", err)
	}

	logger.L.Info("ProcessUpload END", "userID", userID, "count", len(stored), "duration", time.Since(overallStartTime))
	return buildEnvelope("Metrics uploaded and processed successfully", stored, insight), nil
}

// GetMetrics returns the user's stored records plus their latest insights,
// in the same envelope shape the upload endpoint produces.
func (s *metricsServiceImpl) GetMetrics(userID int64) (*models.MetricsEnvelope, error) {
	records, err := fetchUserMetrics(userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching metrics: %w", err)
	}

	insight, err := s.insightService.GetStored(userID)
	if err != nil && err != ErrNoInsights {
		logger.L.Warn("failed to load stored insights", "userID", userID, "error", err)
	}

	return buildEnvelope("Metrics retrieved successfully", records, insight), nil
}

// GetDashboard aggregates the stored metrics into the dashboard view,
// serving from the report cache when possible.
func (s *metricsServiceImpl) GetDashboard(userID int64) (*models.DashboardData, error) {
	cacheKey := fmt.Sprintf(ckDashboard, userID)
	if cached, found := s.reportCache.Get(cacheKey); found {
		logger.L.Debug("GetDashboard cache HIT", "userID", userID)
		if data, ok := cached.(*models.DashboardData); ok {
			return data, nil
		}
	}
	logger.L.Debug("GetDashboard cache MISS", "userID", userID)

	records, err := fetchUserMetrics(userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching metrics: %w", err)
	}

	var items []models.InsightItem
	if insight, err := s.insightService.GetStored(userID); err == nil {
		items = insight.Insights
	} else if err != ErrNoInsights {
		logger.L.Warn("failed to load stored insights", "userID", userID, "error", err)
	}

	data := s.metricsProcessor.BuildDashboard(records, items)
	s.reportCache.Set(cacheKey, &data, DefaultCacheExpiration)
	return &data, nil
}

// ExportCSV streams the user's stored records back out as CSV. Cell values
// are sanitized so the file opens safely in spreadsheet software. Returns
// the number of exported rows.
func (s *metricsServiceImpl) ExportCSV(w io.Writer, userID int64) (int, error) {
	records, err := fetchUserMetrics(userID)
	if err != nil {
		return 0, fmt.Errorf("error fetching metrics: %w", err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"date", "mrr", "users", "churn", "new_users", "revenue"}); err != nil {
		return 0, fmt.Errorf("error writing csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			validation.SanitizeForFormulaInjection(r.Date.Format("2006-01-02")),
			strconv.FormatFloat(r.MRR, 'f', -1, 64),
			strconv.FormatInt(r.Users, 10),
			strconv.FormatFloat(r.Churn, 'f', -1, 64),
			strconv.FormatInt(r.NewUsers, 10),
			strconv.FormatFloat(r.Revenue, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return 0, fmt.Errorf("error writing csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("error flushing csv: %w", err)
	}
	return len(records), nil
}

// DeleteAllMetrics removes the user's metrics and insights together and
// clears the report cache.
func (s *metricsServiceImpl) DeleteAllMetrics(userID int64) error {
	dbTx, err := database.DB.Begin()
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.Exec(`DELETE FROM metrics WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("error deleting metrics: %w", err)
	}
	if _, err := dbTx.Exec(`DELETE FROM insights WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("error deleting insights: %w", err)
	}
	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("error committing delete: %w", err)
	}

	s.InvalidateUserCache(userID)
	logger.L.Info("Deleted all metrics for user", "userID", userID)
	return nil
}

// InvalidateUserCache clears the user's cached aggregates, forcing a rebuild
// on the next request.
func (s *metricsServiceImpl) InvalidateUserCache(userID int64) {
	s.reportCache.Delete(fmt.Sprintf(ckDashboard, userID))
	logger.L.Debug("Invalidated report cache", "userID", userID)
}

// fetchUserMetrics loads a user's stored records in ascending date order.
// Ties on the same date preserve insertion order via the row id.
func fetchUserMetrics(userID int64) ([]models.MetricRecord, error) {
	rows, err := database.DB.Query(`
		SELECT id, user_id, date, mrr, users, churn, new_users, revenue, uploaded_at
		FROM metrics WHERE user_id = ? ORDER BY date ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying metrics for user %d: %w", userID, err)
	}
	defer rows.Close()

	records := []models.MetricRecord{}
	for rows.Next() {
		var r models.MetricRecord
		var dateStr, uploadedStr string
		if err := rows.Scan(&r.ID, &r.UserID, &dateStr, &r.MRR, &r.Users, &r.Churn, &r.NewUsers, &r.Revenue, &uploadedStr); err != nil {
			return nil, fmt.Errorf("error scanning metric row: %w", err)
		}
		if r.Date, err = time.Parse("2006-01-02", dateStr); err != nil {
			return nil, fmt.Errorf("error parsing stored date %q: %w", dateStr, err)
		}
		if r.UploadedAt, err = time.Parse(time.RFC3339, uploadedStr); err != nil {
			logger.L.Warn("unparseable uploaded_at, leaving zero", "userID", userID, "value", uploadedStr)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metric rows: %w", err)
	}
	return records, nil
}

func buildEnvelope(message string, records []models.MetricRecord, insight *models.Insight) *models.MetricsEnvelope {
	items := []models.InsightItem{}
	if insight != nil && insight.Insights != nil {
		items = insight.Insights
	}
	return &models.MetricsEnvelope{
		Message: message,
		Count:   len(records),
		Payload: models.MetricsPayload{
			Metrics:  records,
			Insights: items,
		},
	}
}
