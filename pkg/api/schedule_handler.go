package api

import (
	"net/http"
	"time"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
	"github.com/mimir-aip/maintenance-automation/pkg/scheduler"
)

// SweepStatus reports the maintenance sweep schedule
type SweepStatus struct {
	NextRun time.Time        `json:"next_run"`
	LastRun *models.SweepRun `json:"last_run,omitempty"`
}

// ScheduleHandler handles maintenance sweep HTTP requests
type ScheduleHandler struct {
	service *scheduler.Service
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(service *scheduler.Service) *ScheduleHandler {
	return &ScheduleHandler{
		service: service,
	}
}

// HandleSweeps reports the sweep status (GET) or runs a sweep now (POST)
func (h *ScheduleHandler) HandleSweeps(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, SweepStatus{
			NextRun: h.service.NextRun(),
			LastRun: h.service.LastRun(),
		})
	case http.MethodPost:
		run := h.service.Sweep(r.Context())
		writeJSON(w, http.StatusOK, run)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
