package metadatastore

import (
	"context"
	"time"

	"github.com/mimir-aip/maintenance-automation/pkg/automation"
	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// MetadataStore is the interface for maintenance metadata persistence.
// It covers every collaborator the automation engine reads and writes during a
// pass, plus the equipment, technician and task records the API manages.
type MetadataStore interface {
	automation.Store

	// Task operations
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, equipmentID string) ([]*models.Task, error)
	CompleteTask(ctx context.Context, id string, at time.Time) (*models.Task, error)
	ListDependencies(ctx context.Context, taskID string) ([]models.TaskDependency, error)
	HasOpenScheduledTask(ctx context.Context, equipmentID string) (bool, error)

	// Photo operations
	GetPhotoTask(ctx context.Context, photoID string) (string, error)

	// Equipment operations
	SaveEquipment(ctx context.Context, equipment *models.Equipment) error
	GetEquipment(ctx context.Context, id string) (*models.Equipment, error)
	ListEquipment(ctx context.Context) ([]*models.Equipment, error)
	ListActiveEquipment(ctx context.Context) ([]*models.Equipment, error)

	// Technician operations
	SaveTechnician(ctx context.Context, technician *models.Technician) error
	ListTechnicians(ctx context.Context) ([]*models.Technician, error)

	Ping(ctx context.Context) error
	Close() error
}
