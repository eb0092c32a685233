package models

import "time"

// AutomationStats summarizes automation outcomes since a start date
type AutomationStats struct {
	Since                     time.Time        `json:"since"`
	TasksGenerated            int              `json:"tasks_generated"`
	TasksCompleted            int              `json:"tasks_completed"`
	AverageCompletionTimeDays float64          `json:"average_completion_time_days"`
	PriorityDistribution      map[Priority]int `json:"priority_distribution"`
	AutomationEfficiency      int              `json:"automation_efficiency"`
}
