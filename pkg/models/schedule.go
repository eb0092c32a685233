package models

import "time"

// Cadence is a calendar interval for time-based maintenance
type Cadence string

const (
	CadenceDaily    Cadence = "daily"
	CadenceWeekly   Cadence = "weekly"
	CadenceBiWeekly Cadence = "bi-weekly"
	CadenceMonthly  Cadence = "monthly"
)

// ThresholdDays returns the number of elapsed whole days after which the cadence
// is due, and false for an unknown cadence.
func (c Cadence) ThresholdDays() (int, bool) {
	switch c {
	case CadenceDaily:
		return 1, true
	case CadenceWeekly:
		return 7, true
	case CadenceBiWeekly:
		return 14, true
	case CadenceMonthly:
		return 30, true
	default:
		return 0, false
	}
}

// ScheduleType distinguishes the kinds of time-based maintenance
type ScheduleType string

const (
	ScheduleTypeRoutine    ScheduleType = "routine"
	ScheduleTypePreventive ScheduleType = "preventive"
)

// MaintenanceSchedule is the per-equipment-type maintenance cadence
type MaintenanceSchedule struct {
	Routine    Cadence `json:"routine" yaml:"routine"`
	Preventive Cadence `json:"preventive" yaml:"preventive"`
	Inspection Cadence `json:"inspection" yaml:"inspection"`
}

// Cadence returns the cadence configured for a schedule type
func (s MaintenanceSchedule) Cadence(t ScheduleType) Cadence {
	switch t {
	case ScheduleTypeRoutine:
		return s.Routine
	case ScheduleTypePreventive:
		return s.Preventive
	default:
		return ""
	}
}

// ScheduleCheckRequest represents a request to evaluate scheduled maintenance for one equipment
type ScheduleCheckRequest struct {
	EquipmentID   string `json:"equipment_id"`
	EquipmentType string `json:"equipment_type"`
	Location      string `json:"location,omitempty"`
}

// SweepRun records one execution of the scheduled maintenance sweep
type SweepRun struct {
	ID               string     `json:"id"`
	StartedAt        time.Time  `json:"started_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	EquipmentChecked int        `json:"equipment_checked"`
	EquipmentSkipped int        `json:"equipment_skipped"`
	TasksCreated     int        `json:"tasks_created"`
	Errors           []string   `json:"errors,omitempty"`
}
