// backend/src/services/insight_service.go
package services

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/username/pulsemetrics/backend/src/config"
	"github.com/username/pulsemetrics/backend/src/database"
	"github.com/username/pulsemetrics/backend/src/logger"
	"github.com/username/pulsemetrics/backend/src/models"
	"github.com/username/pulsemetrics/backend/src/processors"
	"github.com/username/pulsemetrics/backend/src/security/validation"
)

type insightServiceImpl struct {
	processor  *processors.InsightsProcessor
	httpClient *http.Client
	apiKey     string
	model      string
	endpoint   string
}

func NewInsightService(processor *processors.InsightsProcessor) InsightService {
	return &insightServiceImpl{
		processor:  processor,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     config.Cfg.GeminiAPIKey,
		model:      config.Cfg.GeminiModel,
		endpoint:   config.Cfg.GeminiEndpoint,
	}
}

// Generate produces insights for the given records and stores them as the
// user's current insight set. The AI path is attempted first; any failure
// falls back to the computed insights, so Generate only errors on storage
// problems.
func (s *insightServiceImpl) Generate(userID int64, records []models.MetricRecord) (*models.Insight, error) {
	var items []models.InsightItem

	if len(records) < processors.MinInsightPoints {
		items = s.processor.InsufficientData()
	} else if s.apiKey != "" {
		aiItems, err := s.generateWithGemini(records)
		if err != nil {
			logger.L.Warn("Gemini insight generation failed, using computed insights", "userID", userID, "error", err)
			items = s.processor.Compute(records)
		} else {
			items = aiItems
		}
	} else {
		items = s.processor.Compute(records)
	}

	return s.store(userID, items)
}

// Regenerate rebuilds insights from the user's stored metrics. Requires at
// least two data points, matching the explicit regeneration endpoint.
func (s *insightServiceImpl) Regenerate(userID int64) (*models.Insight, error) {
	records, err := fetchUserMetrics(userID)
	if err != nil {
		return nil, fmt.Errorf("error fetching metrics: %w", err)
	}
	if len(records) < processors.MinInsightPoints {
		return nil, ErrInsufficientData
	}
	return s.Generate(userID, records)
}

func (s *insightServiceImpl) GetStored(userID int64) (*models.Insight, error) {
	var insight models.Insight
	var payload string
	var generatedStr string
	err := database.DB.QueryRow(`SELECT id, user_id, payload, generated_at FROM insights WHERE user_id = ?`, userID).
		Scan(&insight.ID, &insight.UserID, &payload, &generatedStr)
	if err == sql.ErrNoRows {
		return nil, ErrNoInsights
	}
	if err != nil {
		return nil, fmt.Errorf("error querying insights for user %d: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(payload), &insight.Insights); err != nil {
		return nil, fmt.Errorf("error decoding stored insights: %w", err)
	}
	if insight.GeneratedAt, err = time.Parse(time.RFC3339, generatedStr); err != nil {
		logger.L.Warn("unparseable generated_at, leaving zero", "userID", userID, "value", generatedStr)
	}
	return &insight, nil
}

func (s *insightServiceImpl) DeleteFor(userID int64) error {
	if _, err := database.DB.Exec(`DELETE FROM insights WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("error deleting insights: %w", err)
	}
	return nil
}

// store upserts the user's single insight row.
func (s *insightServiceImpl) store(userID int64, items []models.InsightItem) (*models.Insight, error) {
	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("error encoding insights: %w", err)
	}
	generatedAt := time.Now().UTC()

	_, err = database.DB.Exec(`
		INSERT INTO insights (user_id, payload, generated_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET payload = excluded.payload, generated_at = excluded.generated_at`,
		userID, string(payload), generatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("error storing insights: %w", err)
	}

	return &models.Insight{UserID: userID, Insights: items, GeneratedAt: generatedAt}, nil
}

// --- Gemini REST plumbing ---

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (s *insightServiceImpl) generateWithGemini(records []models.MetricRecord) ([]models.InsightItem, error) {
	latest := records[len(records)-1]
	previous := records[len(records)-2]

	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: buildInsightPrompt(latest, previous)}}}},
		GenerationConfig: geminiGenConfig{
			Temperature:     0.7,
			MaxOutputTokens: 1000,
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error encoding gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.endpoint, s.model, s.apiKey)
	resp, err := s.httpClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error calling gemini api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini api returned status %d", resp.StatusCode)
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, fmt.Errorf("error decoding gemini response: %w", err)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini response contained no candidates")
	}

	var parsed struct {
		Insights []models.InsightItem `json:"insights"`
	}
	cleanText := cleanMarkdownFences(geminiResp.Candidates[0].Content.Parts[0].Text)
	if err := json.Unmarshal([]byte(cleanText), &parsed); err != nil {
		return nil, fmt.Errorf("error parsing gemini insight JSON: %w", err)
	}
	if len(parsed.Insights) == 0 {
		return nil, fmt.Errorf("gemini returned no insights")
	}

	items := make([]models.InsightItem, 0, len(parsed.Insights))
	for _, item := range parsed.Insights {
		items = append(items, models.InsightItem{
			ID:          uuid.NewString(),
			Title:       validation.StripUnprintable(item.Title),
			Description: validation.StripUnprintable(item.Description),
			Severity:    normalizeSeverity(item.Severity),
		})
	}
	return items, nil
}

// buildInsightPrompt compares the two most recent periods and constrains the
// model to a strict JSON response.
func buildInsightPrompt(latest, previous models.MetricRecord) string {
	return fmt.Sprintf(`You are a SaaS metrics analyst. Analyze these metrics and provide exactly 3 actionable insights in JSON format.

Current Month:
- MRR: $%.2f
- Users: %d
- Churn: %.2f%%
- New Users: %d
- Revenue: $%.2f

Previous Month:
- MRR: $%.2f
- Users: %d
- Churn: %.2f%%
- New Users: %d
- Revenue: $%.2f

Respond ONLY with this JSON structure (no markdown, no explanation):
{
  "insights": [
    {"title": "Insight Title", "description": "Detailed actionable insight", "severity": "success"},
    {"title": "Insight Title", "description": "Detailed actionable insight", "severity": "warning"},
    {"title": "Insight Title", "description": "Detailed actionable insight", "severity": "info"}
  ]
}`,
		latest.MRR, latest.Users, latest.Churn, latest.NewUsers, latest.Revenue,
		previous.MRR, previous.Users, previous.Churn, previous.NewUsers, previous.Revenue)
}

var markdownFenceRe = regexp.MustCompile("```json\n?|\n?```")

// cleanMarkdownFences strips the code fences some model responses wrap
// around the JSON payload.
func cleanMarkdownFences(text string) string {
	return strings.TrimSpace(markdownFenceRe.ReplaceAllString(text, ""))
}

func normalizeSeverity(severity string) string {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case models.SeveritySuccess:
		return models.SeveritySuccess
	case models.SeverityWarning:
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}
