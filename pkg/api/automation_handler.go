package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mimir-aip/maintenance-automation/pkg/automation"
	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// DiagnosisRequest is the body of a diagnosis submission
type DiagnosisRequest struct {
	Diagnosis *models.DiagnosisRecord  `json:"diagnosis"`
	Context   models.AutomationContext `json:"context"`
}

// RuleInfo describes a configured automation rule
type RuleInfo struct {
	Name             string            `json:"name"`
	Action           models.TaskAction `json:"action"`
	Priority         models.Priority   `json:"priority"`
	CompletionWindow string            `json:"completion_window"`
	AutoAssign       bool              `json:"auto_assign"`
}

// AutomationHandler handles automation-related HTTP requests
type AutomationHandler struct {
	engine       *automation.Engine
	defaultRange string
}

// NewAutomationHandler creates a new automation handler
func NewAutomationHandler(engine *automation.Engine, defaultRange string) *AutomationHandler {
	return &AutomationHandler{
		engine:       engine,
		defaultRange: defaultRange,
	}
}

// HandleDiagnoses runs an automation pass for a submitted diagnosis. The pass
// outcome is always returned with 200, including failed passes.
func (h *AutomationHandler) HandleDiagnoses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DiagnosisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	result := h.engine.ProcessDiagnosis(r.Context(), req.Diagnosis, req.Context)
	writeJSON(w, http.StatusOK, result)
}

// HandleScheduleChecks evaluates scheduled maintenance for one equipment
func (h *AutomationHandler) HandleScheduleChecks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.ScheduleCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.EquipmentID == "" {
		http.Error(w, "Equipment ID is required", http.StatusBadRequest)
		return
	}
	if req.EquipmentType == "" {
		http.Error(w, "Equipment type is required", http.StatusBadRequest)
		return
	}

	result := h.engine.EvaluateSchedule(r.Context(), req.EquipmentID, req.EquipmentType, models.AutomationContext{Location: req.Location})
	writeJSON(w, http.StatusOK, result)
}

// HandleStats returns automation statistics for ?range=7d|30d|90d or ?since=<RFC3339>
func (h *AutomationHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()

	var stats *models.AutomationStats
	var err error
	if since := query.Get("since"); since != "" {
		start, perr := time.Parse(time.RFC3339, since)
		if perr != nil {
			http.Error(w, fmt.Sprintf("Invalid since parameter: %v", perr), http.StatusBadRequest)
			return
		}
		stats, err = h.engine.GetStatistics(r.Context(), start)
	} else {
		rangeKey := query.Get("range")
		if rangeKey == "" {
			rangeKey = h.defaultRange
		}
		stats, err = h.engine.GetStatisticsForRange(r.Context(), rangeKey)
	}

	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to get statistics: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HandleRules lists the configured rules in evaluation order
func (h *AutomationHandler) HandleRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rules := h.engine.Rules().Rules()
	infos := make([]RuleInfo, 0, len(rules))
	for _, rule := range rules {
		infos = append(infos, RuleInfo{
			Name:             rule.Name,
			Action:           rule.Action,
			Priority:         rule.Priority,
			CompletionWindow: rule.CompletionWindow.String(),
			AutoAssign:       rule.AutoAssign,
		})
	}

	writeJSON(w, http.StatusOK, infos)
}
