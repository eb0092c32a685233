// Package notify delivers task notifications to technicians and managers.
package notify

import (
	"context"
	"log"

	"github.com/mimir-aip/maintenance-automation/pkg/models"
)

// LogTransport writes notifications to the process log. It is the default
// transport when no message broker is configured.
type LogTransport struct {
	logger *log.Logger
}

// NewLogTransport creates a log transport; a nil logger uses the standard logger
func NewLogTransport(logger *log.Logger) *LogTransport {
	if logger == nil {
		logger = log.Default()
	}
	return &LogTransport{logger: logger}
}

// Deliver logs the notification
func (t *LogTransport) Deliver(ctx context.Context, n *models.Notification) error {
	if n.Severity == models.SeverityUrgent {
		t.logger.Printf("URGENT notification: %s (equipment: %s, location: %s, priority: %s, rule priority: %s, task: %s)",
			n.Title, n.EquipmentType, n.Location, n.Priority, n.RulePriority, n.TaskID)
		return nil
	}
	t.logger.Printf("Notification: %s (equipment: %s, location: %s, estimated time: %s, task: %s)",
		n.Title, n.EquipmentType, n.Location, n.EstimatedTime, n.TaskID)
	return nil
}
