package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mimir-aip/maintenance-automation/pkg/metadatastore"
	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// TaskStore reads and completes maintenance tasks
type TaskStore interface {
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, equipmentID string) ([]*models.Task, error)
	CompleteTask(ctx context.Context, id string, at time.Time) (*models.Task, error)
	ListDependencies(ctx context.Context, taskID string) ([]models.TaskDependency, error)
}

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	store TaskStore
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(store TaskStore) *TaskHandler {
	return &TaskHandler{
		store: store,
	}
}

// HandleTasks lists tasks, optionally filtered by ?equipment_id=
func (h *TaskHandler) HandleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tasks, err := h.store.ListTasks(r.Context(), r.URL.Query().Get("equipment_id"))
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list tasks: %v", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// HandleTask handles /api/tasks/{id}, /api/tasks/{id}/complete and
// /api/tasks/{id}/dependencies
func (h *TaskHandler) HandleTask(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	taskID, action, _ := strings.Cut(path, "/")
	if taskID == "" {
		http.Error(w, "Task ID is required", http.StatusBadRequest)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, taskID)
	case action == "complete" && r.Method == http.MethodPost:
		h.handleComplete(w, r, taskID)
	case action == "dependencies" && r.Method == http.MethodGet:
		h.handleDependencies(w, r, taskID)
	case action == "" || action == "complete" || action == "dependencies":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

func (h *TaskHandler) handleGet(w http.ResponseWriter, r *http.Request, taskID string) {
	task, err := h.store.GetTask(r.Context(), taskID)
	if err != nil {
		writeStoreError(w, "Failed to get task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) handleComplete(w http.ResponseWriter, r *http.Request, taskID string) {
	task, err := h.store.CompleteTask(r.Context(), taskID, time.Now())
	if err != nil {
		writeStoreError(w, "Failed to complete task", err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) handleDependencies(w http.ResponseWriter, r *http.Request, taskID string) {
	deps, err := h.store.ListDependencies(r.Context(), taskID)
	if err != nil {
		writeStoreError(w, "Failed to list dependencies", err)
		return
	}
	writeJSON(w, http.StatusOK, deps)
}

func writeStoreError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, metadatastore.ErrNotFound):
		http.Error(w, fmt.Sprintf("%s: %v", msg, err), http.StatusNotFound)
	case errors.Is(err, metadatastore.ErrAlreadyCompleted):
		http.Error(w, fmt.Sprintf("%s: %v", msg, err), http.StatusConflict)
	default:
		http.Error(w, fmt.Sprintf("%s: %v", msg, err), http.StatusInternalServerError)
	}
}
