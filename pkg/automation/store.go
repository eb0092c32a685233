package automation

import (
	"context"
	"time"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// TaskStore is the persistence collaborator used during an automation pass
type TaskStore interface {
	// LastMaintenanceDate returns the latest completion date of a completed
	// Maintenance or Repair task for the equipment, or nil when there is none.
	LastMaintenanceDate(ctx context.Context, equipmentID string) (*time.Time, error)

	// AvailableTechnicians returns the technicians currently available, in store order
	AvailableTechnicians(ctx context.Context) ([]models.Technician, error)

	// SaveTask persists a new task and returns its ID
	SaveTask(ctx context.Context, task *models.Task) (string, error)

	// SaveDependency persists a blocking edge between two persisted tasks
	SaveDependency(ctx context.Context, dep *models.TaskDependency) error

	// AssignTask records the technician a task is assigned to
	AssignTask(ctx context.Context, taskID, technicianID string, at time.Time) error

	// LinkTaskToPhoto records the task generated from a photo
	LinkTaskToPhoto(ctx context.Context, taskID, photoID string) error

	// DeleteTasks removes tasks together with their dependencies, assignments
	// and photo links. It undoes the writes of a pass that failed partway.
	DeleteTasks(ctx context.Context, taskIDs []string) error
}

// StatsSource provides the task counts the statistics aggregator works on
type StatsSource interface {
	CountTasksCreatedSince(ctx context.Context, since time.Time) (int, error)
	ListCompletedTasksSince(ctx context.Context, since time.Time) ([]*models.Task, error)
	PriorityDistributionSince(ctx context.Context, since time.Time) (map[models.Priority]int, error)
}

// Store combines every collaborator the engine needs
type Store interface {
	TaskStore
	StatsSource
}
