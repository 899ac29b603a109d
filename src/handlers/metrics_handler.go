// backend/src/handlers/metrics_handler.go
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/username/pulsemetrics/backend/src/logger"
	"github.com/username/pulsemetrics/backend/src/services"
	"github.com/username/pulsemetrics/backend/src/utils"
)

type MetricsHandler struct {
	metricsService services.MetricsService
}

func NewMetricsHandler(service services.MetricsService) *MetricsHandler {
	return &MetricsHandler{
		metricsService: service,
	}
}

// HandleGetMetrics returns the user's stored records and insights in the
// same envelope shape as the upload response.
func (h *MetricsHandler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	envelope, err := h.metricsService.GetMetrics(userID)
	if err != nil {
		logger.L.Error("Error retrieving metrics", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to fetch metrics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(envelope); err != nil {
		logger.L.Error("Error encoding metrics response", "userID", userID, "error", err)
	}
}

// HandleGetDashboard serves the aggregated dashboard with ETag support so
// unchanged payloads cost the client nothing.
func (h *MetricsHandler) HandleGetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	data, err := h.metricsService.GetDashboard(userID)
	if err != nil {
		logger.L.Error("Error building dashboard", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to build dashboard", http.StatusInternalServerError)
		return
	}

	currentETag, etagErr := utils.GenerateETag(data)
	if etagErr != nil {
		logger.L.Error("Failed to generate ETag for dashboard", "userID", userID, "error", etagErr)
	}

	w.Header().Set("Cache-Control", "no-cache, private")

	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		clientETag := r.Header.Get("If-None-Match")
		for _, cETag := range strings.Split(clientETag, ",") {
			if strings.TrimSpace(cETag) == quotedETag {
				logger.L.Debug("ETag match for dashboard", "userID", userID, "etag", currentETag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.L.Error("Error encoding dashboard response", "userID", userID, "error", err)
	}
}

// HandleExportMetrics streams the stored records back out as a CSV download.
func (h *MetricsHandler) HandleExportMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	filename := fmt.Sprintf("metrics-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	count, err := h.metricsService.ExportCSV(w, userID)
	if err != nil {
		// Headers may already be out; log and cut the stream.
		logger.L.Error("Error exporting metrics CSV", "userID", userID, "error", err)
		return
	}
	logger.L.Info("Exported metrics CSV", "userID", userID, "rows", count)
}

// HandleDeleteMetrics removes all stored metrics and insights for the user.
func (h *MetricsHandler) HandleDeleteMetrics(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	if err := h.metricsService.DeleteAllMetrics(userID); err != nil {
		logger.L.Error("Error deleting metrics", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to delete metrics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "All metrics deleted successfully"})
}
