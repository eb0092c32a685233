package automation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// Notifier delivers notification payloads. Delivery is fire-and-forget from the
// engine's point of view: failures are logged, never returned to the caller.
type Notifier interface {
	Deliver(ctx context.Context, n *models.Notification) error
}

// NotifierFunc adapts a function to the Notifier interface
type NotifierFunc func(ctx context.Context, n *models.Notification) error

// Deliver calls f(ctx, n)
func (f NotifierFunc) Deliver(ctx context.Context, n *models.Notification) error {
	return f(ctx, n)
}

type nopNotifier struct{}

func (nopNotifier) Deliver(context.Context, *models.Notification) error { return nil }

// ClassifySeverity returns urgent when either the stored priority or the
// ordering priority of the task is Critical or High.
func ClassifySeverity(task *models.Task) models.NotificationSeverity {
	if task.Priority.IsUrgent() || task.RulePriority.IsUrgent() {
		return models.SeverityUrgent
	}
	return models.SeverityStandard
}

// BuildNotifications constructs one notification per task
func BuildNotifications(tasks []*models.Task, equipmentType string, now time.Time) []*models.Notification {
	notifications := make([]*models.Notification, 0, len(tasks))
	for _, task := range tasks {
		notifications = append(notifications, &models.Notification{
			ID:            uuid.New().String(),
			TaskID:        task.ID,
			Title:         task.Title,
			Severity:      ClassifySeverity(task),
			EquipmentType: equipmentType,
			EquipmentID:   task.EquipmentID,
			Location:      task.Location,
			Priority:      task.Priority,
			RulePriority:  task.RulePriority,
			EstimatedTime: task.EstimatedTime,
			CreatedAt:     now,
		})
	}
	return notifications
}
