package models

import "time"

// NotificationSeverity classifies how a notification should be delivered
type NotificationSeverity string

const (
	SeverityUrgent   NotificationSeverity = "urgent"
	SeverityStandard NotificationSeverity = "standard"
)

// Notification is the payload emitted for a generated task. It is not persisted;
// delivery is up to the configured transport.
type Notification struct {
	ID            string               `json:"id"`
	TaskID        string               `json:"task_id,omitempty"`
	Title         string               `json:"title"`
	Severity      NotificationSeverity `json:"severity"`
	EquipmentType string               `json:"equipment_type"`
	EquipmentID   string               `json:"equipment_id,omitempty"`
	Location      string               `json:"location"`
	Priority      Priority             `json:"priority"`
	RulePriority  Priority             `json:"rule_priority"`
	EstimatedTime string               `json:"estimated_time"`
	CreatedAt     time.Time            `json:"created_at"`
}
