package models

import "time"

// Priority is the urgency of a maintenance task
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// Rank orders priorities for dependency linking: Critical=4, High=3, Medium=2, Low=1.
// Unknown priorities rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// IsUrgent reports whether the priority warrants an urgent notification
func (p Priority) IsUrgent() bool {
	return p == PriorityCritical || p == PriorityHigh
}

// Valid reports whether p is one of the known priorities
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// TaskStatus represents the lifecycle state of a maintenance task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskCategory groups tasks by the kind of work involved
type TaskCategory string

const (
	TaskCategoryEmergency   TaskCategory = "Emergency"
	TaskCategorySafety      TaskCategory = "Safety"
	TaskCategoryRepair      TaskCategory = "Repair"
	TaskCategoryMaintenance TaskCategory = "Maintenance"
	TaskCategoryPreventive  TaskCategory = "Preventive"
	TaskCategoryScheduled   TaskCategory = "Scheduled"
)

// TaskAction identifies the archetype a rule materializes
type TaskAction string

const (
	ActionCreateUrgentTask      TaskAction = "create_urgent_task"
	ActionCreateSafetyTask      TaskAction = "create_safety_task"
	ActionCreateReplacementTask TaskAction = "create_replacement_task"
	ActionCreateMaintenanceTask TaskAction = "create_maintenance_task"
	ActionCreatePreventiveTask  TaskAction = "create_preventive_task"
)

// Task is a maintenance task generated by an automation pass.
//
// Priority is the stored severity derived from the diagnosis; RulePriority is the
// nominal priority of the rule (or schedule) that produced the task and is used
// only to order co-generated tasks.
type Task struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Category         TaskCategory  `json:"category"`
	Priority         Priority      `json:"priority"`
	RulePriority     Priority      `json:"rule_priority"`
	EstimatedTime    string        `json:"estimated_time"`
	EquipmentID      string        `json:"equipment_id,omitempty"`
	Location         string        `json:"location"`
	Status           TaskStatus    `json:"status"`
	CreatedAt        time.Time     `json:"creation_date"`
	DueAt            *time.Time    `json:"due_at,omitempty"`
	CompletedAt      *time.Time    `json:"completion_date,omitempty"`
	RuleName         string        `json:"rule_name,omitempty"`
	Action           TaskAction    `json:"action,omitempty"`
	AutoAssigned     bool          `json:"auto_assigned"`
	AssignedTo       string        `json:"assigned_to,omitempty"`
	AssignedAt       *time.Time    `json:"assignment_date,omitempty"`
	IsScheduled      bool          `json:"is_scheduled"`
	ScheduleType     ScheduleType  `json:"schedule_type,omitempty"`
	SourcePhotoID    string        `json:"source_photo_id,omitempty"`
	CompletionWindow time.Duration `json:"-"`
}

// TaskDependency is a blocking edge between two tasks of the same automation pass:
// DependentTaskID cannot start before BlockingTaskID.
type TaskDependency struct {
	ID              string    `json:"id,omitempty"`
	DependentTaskID string    `json:"task_id"`
	BlockingTaskID  string    `json:"depends_on_task_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// AutomationContext is the context that accompanies a diagnosis or schedule check
type AutomationContext struct {
	EquipmentID   string `json:"equipment_id,omitempty"`
	EquipmentType string `json:"equipment_type,omitempty"`
	Location      string `json:"location,omitempty"`
	PhotoID       string `json:"photo_id,omitempty"`
}

// AutomationResult is the outcome of one automation pass. A failed pass carries
// Success=false, the error message, and empty task and rule lists.
type AutomationResult struct {
	Success        bool             `json:"success"`
	PassID         string           `json:"pass_id,omitempty"`
	Tasks          []*Task          `json:"tasks"`
	TriggeredRules []string         `json:"triggered_rules"`
	Dependencies   []TaskDependency `json:"dependencies,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
	Error          string           `json:"error,omitempty"`
}
