package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// EquipmentStore persists equipment and technicians
type EquipmentStore interface {
	SaveEquipment(ctx context.Context, equipment *models.Equipment) error
	ListEquipment(ctx context.Context) ([]*models.Equipment, error)
	SaveTechnician(ctx context.Context, technician *models.Technician) error
	ListTechnicians(ctx context.Context) ([]*models.Technician, error)
}

// EquipmentHandler handles equipment and technician HTTP requests
type EquipmentHandler struct {
	store EquipmentStore
}

// NewEquipmentHandler creates a new equipment handler
func NewEquipmentHandler(store EquipmentStore) *EquipmentHandler {
	return &EquipmentHandler{
		store: store,
	}
}

// HandleEquipment handles equipment list and create operations
func (h *EquipmentHandler) HandleEquipment(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.store.ListEquipment(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to list equipment: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		h.handleCreateEquipment(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *EquipmentHandler) handleCreateEquipment(w http.ResponseWriter, r *http.Request) {
	var req models.EquipmentCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Equipment name is required", http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		http.Error(w, "Equipment type is required", http.StatusBadRequest)
		return
	}

	now := time.Now()
	equipment := &models.Equipment{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Type:      req.Type,
		Location:  req.Location,
		Status:    models.EquipmentStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.SaveEquipment(r.Context(), equipment); err != nil {
		http.Error(w, fmt.Sprintf("Failed to save equipment: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, equipment)
}

// HandleTechnicians handles technician list and create operations
func (h *EquipmentHandler) HandleTechnicians(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		list, err := h.store.ListTechnicians(r.Context())
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to list technicians: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		h.handleCreateTechnician(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *EquipmentHandler) handleCreateTechnician(w http.ResponseWriter, r *http.Request) {
	var req models.TechnicianCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Technician name is required", http.StatusBadRequest)
		return
	}

	status := req.Status
	switch status {
	case "":
		status = models.TechnicianStatusAvailable
	case models.TechnicianStatusAvailable, models.TechnicianStatusBusy, models.TechnicianStatusOff:
	default:
		http.Error(w, fmt.Sprintf("Invalid technician status: %s", status), http.StatusBadRequest)
		return
	}

	technician := &models.Technician{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Email:     req.Email,
		Status:    status,
		CreatedAt: time.Now(),
	}
	if err := h.store.SaveTechnician(r.Context(), technician); err != nil {
		http.Error(w, fmt.Sprintf("Failed to save technician: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, technician)
}
