// backend/src/handlers/insights_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/pulsemetrics/backend/src/logger"
	"github.com/username/pulsemetrics/backend/src/services"
	"github.com/username/pulsemetrics/backend/src/utils"
)

type InsightsHandler struct {
	insightService services.InsightService
	metricsService services.MetricsService
}

func NewInsightsHandler(insightService services.InsightService, metricsService services.MetricsService) *InsightsHandler {
	return &InsightsHandler{
		insightService: insightService,
		metricsService: metricsService,
	}
}

// HandleGetInsights returns the user's stored insight set; 404 until the
// first upload generates one.
func (h *InsightsHandler) HandleGetInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	insight, err := h.insightService.GetStored(userID)
	if err != nil {
		if errors.Is(err, services.ErrNoInsights) {
			utils.SendJSONError(w, "No insights found. Upload metrics first.", http.StatusNotFound)
			return
		}
		logger.L.Error("Error fetching insights", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to fetch insights", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(insight); err != nil {
		logger.L.Error("Error encoding insights response", "userID", userID, "error", err)
	}
}

// HandleRegenerateInsights rebuilds the insight set from the stored metrics.
// The dashboard cache is dropped so the new insights show up immediately.
func (h *InsightsHandler) HandleRegenerateInsights(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	insight, err := h.insightService.Regenerate(userID)
	if err != nil {
		if errors.Is(err, services.ErrInsufficientData) {
			utils.SendJSONError(w, "Need at least 2 data points to generate insights", http.StatusBadRequest)
			return
		}
		logger.L.Error("Error regenerating insights", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to regenerate insights", http.StatusInternalServerError)
		return
	}

	h.metricsService.InvalidateUserCache(userID)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(insight); err != nil {
		logger.L.Error("Error encoding regenerated insights", "userID", userID, "error", err)
	}
}
