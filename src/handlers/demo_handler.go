// backend/src/handlers/demo_handler.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/pulsemetrics/backend/src/logger"
	"github.com/username/pulsemetrics/backend/src/services"
)

type DemoHandler struct {
	demoService services.DemoService
}

func NewDemoHandler(service services.DemoService) *DemoHandler {
	return &DemoHandler{
		demoService: service,
	}
}

// HandleGetDemoDashboard serves the synthetic dashboard. Public: no auth, no
// per-user state.
func (h *DemoHandler) HandleGetDemoDashboard(w http.ResponseWriter, r *http.Request) {
	data := h.demoService.Dashboard()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.L.Error("Error encoding demo dashboard response", "error", err)
	}
}
